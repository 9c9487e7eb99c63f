package main

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Heckie75/mipow-bulbs/internal/bulb"
	"github.com/Heckie75/mipow-bulbs/internal/protocol"
	"github.com/Heckie75/mipow-bulbs/internal/store"
	"github.com/Heckie75/mipow-bulbs/internal/transport"
)

func testApp(t *testing.T) *app {
	t.Helper()
	cfg := &Config{}
	cfg.Store.Path = filepath.Join(t.TempDir(), "bulbs.db")
	return &app{
		cfg:     cfg,
		logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
		aliases: testAliases(t),
		out:     io.Discard,
		errOut:  io.Discard,
	}
}

func TestRecordSighting(t *testing.T) {
	a := testApp(t)
	db := a.openStore()
	if db == nil {
		t.Fatal("openStore failed")
	}
	defer db.Close()

	adv := transport.Advertisement{Address: "AF:66:4B:01:AC:E6", Name: "MIPOW SMART BUL", RSSI: -61}
	a.recordSighting(db, adv)

	rec, err := db.GetBulb(adv.Address)
	if err != nil {
		t.Fatalf("GetBulb: %v", err)
	}
	if rec.Name != adv.Name || rec.RSSI != adv.RSSI {
		t.Errorf("record = %+v", rec)
	}
	if rec.FirstSeen.IsZero() || !rec.FirstSeen.Equal(rec.LastSeen) {
		t.Errorf("first sighting timestamps = %v / %v", rec.FirstSeen, rec.LastSeen)
	}

	// A second sighting updates the record but keeps the first-seen time.
	adv.Name = "BEDROOM"
	adv.RSSI = -48
	a.recordSighting(db, adv)

	again, err := db.GetBulb(adv.Address)
	if err != nil {
		t.Fatalf("GetBulb: %v", err)
	}
	if again.Name != "BEDROOM" || again.RSSI != -48 {
		t.Errorf("updated record = %+v", again)
	}
	if !again.FirstSeen.Equal(rec.FirstSeen) {
		t.Errorf("first seen changed: %v -> %v", rec.FirstSeen, again.FirstSeen)
	}
	if again.LastSeen.Before(rec.LastSeen) {
		t.Errorf("last seen went backwards: %v -> %v", rec.LastSeen, again.LastSeen)
	}
}

func TestSaveStatesSnapshotsDump(t *testing.T) {
	a := testApp(t)
	name := "BEDROOM"
	st := &bulb.State{
		Address: "AF:66:4B:01:AC:E6",
		Name:    &name,
		Color:   &protocol.Color{Red: 200},
	}

	a.saveStates([]*bulb.State{st})

	db := a.openStore()
	if db == nil {
		t.Fatal("openStore failed")
	}
	defer db.Close()
	rec, err := db.GetBulb(st.Address)
	if err != nil {
		t.Fatalf("GetBulb: %v", err)
	}
	if rec.Name != name {
		t.Errorf("name = %q, want %q", rec.Name, name)
	}
	if rec.State == nil || rec.State.Color == nil || *rec.State.Color != (protocol.Color{Red: 200}) {
		t.Errorf("state snapshot = %+v", rec.State)
	}
}

func TestForgetStatesDropsRecord(t *testing.T) {
	a := testApp(t)
	st := &bulb.State{Address: "AF:66:4B:01:AC:E6"}
	a.saveStates([]*bulb.State{st})

	a.forgetStates([]*bulb.State{st})

	db := a.openStore()
	if db == nil {
		t.Fatal("openStore failed")
	}
	defer db.Close()
	if _, err := db.GetBulb(st.Address); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestRunDevicesListsRegistry(t *testing.T) {
	a := testApp(t)
	var buf bytes.Buffer
	a.out = &buf

	db := a.openStore()
	if db == nil {
		t.Fatal("openStore failed")
	}
	a.recordSighting(db, transport.Advertisement{Address: "AF:66:4B:01:AC:E6", Name: "BEDROOM"})
	db.Close()

	if err := a.runDevices(); err != nil {
		t.Fatalf("runDevices: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "MAC-Address") {
		t.Errorf("header missing:\n%s", out)
	}
	if !strings.Contains(out, "AF:66:4B:01:AC:E6") || !strings.Contains(out, "BEDROOM") {
		t.Errorf("entry missing:\n%s", out)
	}
}

// Package alias resolves human-friendly bulb labels from the user's
// known-bulbs file, one "MAC label" pair per line in ~/.known_bulbs.
package alias

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/Heckie75/mipow-bulbs/internal/bulb"
)

// KnownBulbsFile is the file name looked up in the user's home directory.
const KnownBulbsFile = ".known_bulbs"

var (
	macPattern  = regexp.MustCompile(`^([0-9A-F]{2}:){5}[0-9A-F]{2}$`)
	linePattern = regexp.MustCompile(`^([0-9A-Fa-f:]+) +(.*)$`)
)

// Alias is the loaded label table, keyed by upper-case MAC address.
type Alias struct {
	labels map[string]string
}

// Load reads the known-bulbs file from the user's home directory. A
// missing or unreadable file yields an empty table, not an error.
func Load() *Alias {
	home, err := os.UserHomeDir()
	if err != nil {
		return &Alias{labels: map[string]string{}}
	}
	return LoadFile(filepath.Join(home, KnownBulbsFile))
}

// LoadFile reads a known-bulbs file from an explicit path.
func LoadFile(path string) *Alias {
	a := &Alias{labels: map[string]string{}}
	f, err := os.Open(path)
	if err != nil {
		return a
	}
	defer f.Close()
	a.parse(f)
	return a
}

func (a *Alias) parse(r io.Reader) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		m := linePattern.FindStringSubmatch(scanner.Text())
		if m == nil {
			continue
		}
		mac := strings.ToUpper(m[1])
		if !bulb.IsBulbAddress(mac) {
			continue
		}
		a.labels[mac] = strings.TrimSpace(m[2])
	}
}

// Resolve maps a label to bulb addresses. A literal MAC address resolves
// to itself when it carries the vendor suffix and to nothing otherwise;
// any other label matches every alias containing it as a substring.
func (a *Alias) Resolve(label string) []string {
	upper := strings.ToUpper(label)
	if macPattern.MatchString(upper) {
		if bulb.IsBulbAddress(upper) {
			return []string{upper}
		}
		return nil
	}

	var macs []string
	for mac, name := range a.labels {
		if strings.Contains(name, label) {
			macs = append(macs, mac)
		}
	}
	sort.Strings(macs)
	return macs
}

// Label returns the alias for an address, or "" when none is known.
func (a *Alias) Label(address string) string {
	return a.labels[strings.ToUpper(address)]
}

// ResolveAll resolves a list of labels into one deduplicated address set,
// failing on the first label that matches nothing.
func (a *Alias) ResolveAll(labels []string) ([]string, error) {
	seen := map[string]struct{}{}
	var macs []string
	for _, label := range labels {
		resolved := a.Resolve(label)
		if len(resolved) == 0 {
			return nil, fmt.Errorf("alias: unknown bulb %q", label)
		}
		for _, mac := range resolved {
			if _, ok := seen[mac]; ok {
				continue
			}
			seen[mac] = struct{}{}
			macs = append(macs, mac)
		}
	}
	return macs, nil
}

// String renders the table as tab-separated lines, sorted by address.
func (a *Alias) String() string {
	macs := make([]string, 0, len(a.labels))
	for mac := range a.labels {
		macs = append(macs, mac)
	}
	sort.Strings(macs)
	var b strings.Builder
	for _, mac := range macs {
		fmt.Fprintf(&b, "%s\t%s\n", mac, a.labels[mac])
	}
	return b.String()
}

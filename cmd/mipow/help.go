package main

import (
	"fmt"
	"io"
	"sort"
	"strings"
)

const helpHeader = `Mipow Playbulb bluetooth command line interface

USAGE:   mipow <mac_1/alias_1> [<mac_2/alias_2>] ... --<command_1> [<param_1> <param_2> ... --<command_2> ...]
         <mac_N>   : bluetooth mac address of bulb
         <alias_N> : you can use aliases instead of mac address if there is a ~/.known_bulbs file
         <command> : a list of commands and parameters
`

type helpEntry struct {
	usage string
	descr []string
}

var helpEntries = map[string]helpEntry{
	"aliases": {"--aliases", []string{"print known aliases from .known_bulbs file"}},
	"scan":    {"--scan", []string{"scan for Mipow bulbs"}},
	"devices": {"--devices", []string{"print bulbs recorded in the local registry"}},
	"status":  {"--status", []string{"just read and print the basic information of the bulb"}},
	"on":      {"--on", []string{"turn bulb on"}},
	"off":     {"--off", []string{"turn bulb off"}},
	"toggle":  {"--toggle", []string{"turn off / on (remembers color!)"}},
	"color": {"--color [<white> <red> <green> <blue>]", []string{
		"set color",
		"- <color> each value 0 - 255",
		"- without parameters current color will be returned"}},
	"up":     {"--up", []string{"turn up light"}},
	"down":   {"--down", []string{"dim light"}},
	"effect": {"--effect", []string{"request current effect of bulb"}},
	"pulse": {"--pulse <white> <red> <green> <blue> <hold>", []string{
		"run build-in pulse effect.",
		"- <color> values: 0=off, 1=on",
		"- <hold> per step in ms: 0 - 255"}},
	"flash": {"--flash <white> <red> <green> <blue> <time> [<repetitions> <pause>]", []string{
		"run build-in flash effect.",
		"- color values: 0 - 255",
		"- <time> in 1/100s: 0 - 255",
		"- <repetitions> (optional) before pause: 0 - 255",
		"- <pause> (optional) in 1/10s: 0 - 255"}},
	"rainbow": {"--rainbow <hold>", []string{
		"run build-in rainbow effect.",
		"- <hold> per step in ms: 0 - 255"}},
	"candle": {"--candle <white> <red> <green> <blue>", []string{
		"run build-in candle effect.",
		"- color values: 0 - 255"}},
	"disco": {"--disco <hold>", []string{
		"run build-in disco effect.",
		"- <hold> in 1/100s: 0 - 255"}},
	"hold": {"--hold <hold> [<repetitions> <pause>]", []string{
		"change hold value of current effect.",
		"- <repetitions> (optional) before pause: 0 - 255",
		"- <pause> (optional) in 1/10s: 0 - 255"}},
	"halt": {"--halt", []string{"halt build-in effect, keeps color"}},
	"timer": {"--timer [<n:1-4> <start> <minutes> [<white> <red> <green> <blue>]|[<n:1-4>] off]", []string{
		"schedules timer",
		"- <timer>: No. of timer 1 - 4",
		"- <start>: starting time (hh:mm or in minutes)",
		"- <minutes>: runtime in minutes",
		"- (optional) color values: 0 - 255",
		"- [<timer>] off: deactivates single or all timers",
		"- without parameters: request current timer settings"}},
	"fade": {"--fade <minutes> <white> <red> <green> <blue>", []string{
		"change color smoothly",
		"- <minutes>: runtime in minutes (max. 255)",
		"- color values: 0 - 255"}},
	"ambient": {"--ambient <minutes> [<start>]", []string{
		"schedules ambient program",
		"- <minutes>: runtime in minutes, best in steps of 15m",
		"- <start>: (optional) starting time (hh:mm or in minutes)"}},
	"wakeup": {"--wakeup <minutes> [<start>]", []string{
		"schedules wake-up program",
		"- <minutes>: runtime in minutes, best in steps of 15m",
		"- <start>: (optional) starting time (hh:mm or in minutes)"}},
	"doze": {"--doze <minutes> [<start>]", []string{
		"schedules doze program",
		"- <minutes>: runtime in minutes, best in steps of 15m",
		"- <start>: (optional) starting time (hh:mm or in minutes)"}},
	"wheel": {"--wheel <bgr|grb|rbg> <minutes> [<start>] [<brightness>]", []string{
		"schedules a program running through color wheel",
		"- <minutes>: runtime in minutes (best in steps of 4m, up to 1020m)",
		"- <start>: (optional) starting time (hh:mm or in minutes)",
		"- <brightness>: 0 - 255 (default: 255)"}},
	"security": {"--security [<start> <stop> <min> <max> [<white> <red> <green> <blue>]|off]", []string{
		"schedules security mode",
		"- <start>: starting time (hh:mm or in minutes)",
		"- <stop>: ending time (hh:mm or in minutes)",
		"- <min>: min. runtime in minutes",
		"- <max>: max. runtime in minutes",
		"- (optional) color values: 0 - 255",
		"- off: deactivates security mode",
		"- without parameters: request current security mode"}},
	"help": {"--help [<command>]", []string{"prints help optionally for given command"}},
	"name": {"--name <name>", []string{
		"set the name of the bulb, max. 14 characters",
		"- without parameters current name will be returned"}},
	"pin": {"--pin <1234>", []string{
		"set the pin for the bulb. Must be 4 digits",
		"- without parameters current pin will be returned"}},
	"sleep":   {"--sleep <n>", []string{"pause processing for n milliseconds"}},
	"dump":    {"--dump", []string{"request full state of bulb"}},
	"print":   {"--print", []string{"prints collected data of bulb"}},
	"json":    {"--json", []string{"prints information in json format"}},
	"verbose": {"--verbose", []string{"print information about processing"}},
	"log":     {"--log <DEBUG|INFO|WARN|ERROR>", []string{"set loglevel"}},
	"reset":   {"--reset", []string{"perform factory reset"}},
	"serve":   {"--serve", []string{"stay connected and bridge the bulbs to an MQTT broker"}},
	"script":  {"--script <file>", []string{"run a Lua script against the connected bulbs"}},
}

// commandHelp renders the usage block for one command.
func commandHelp(cmd string) string {
	e, ok := helpEntries[cmd]
	if !ok {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, " %-32s", e.usage)
	for i, d := range e.descr {
		if i == 0 && len(e.usage) < 32 {
			b.WriteString(d)
			continue
		}
		fmt.Fprintf(&b, "\n %32s%s", "", d)
	}
	return b.String()
}

func printCommandHelp(w io.Writer, topic string) {
	if _, ok := helpEntries[topic]; !ok {
		fmt.Fprintf(w, "unknown command %q, known commands:\n", topic)
		names := make([]string, 0, len(helpEntries))
		for name := range helpEntries {
			names = append(names, name)
		}
		sort.Strings(names)
		fmt.Fprintf(w, "  %s\n", strings.Join(names, " "))
		return
	}
	fmt.Fprint(w, helpHeader+"\n")
	fmt.Fprintln(w, commandHelp(topic))
}

func printHelp(w io.Writer) {
	sections := []struct {
		title    string
		commands []string
	}{
		{"Basic commands:", []string{"status", "on", "off", "toggle", "color", "up", "down"}},
		{"Build-in effects:", []string{"effect", "pulse", "flash", "rainbow", "candle", "disco", "hold", "halt"}},
		{"Timer commands:", []string{"timer"}},
		{"Scene commands:", []string{"fade", "ambient", "wakeup", "doze", "wheel"}},
		{"Security commands:", []string{"security"}},
		{"Other commands:", []string{"help", "name", "pin", "sleep", "dump", "print", "json", "verbose", "log", "reset"}},
		{"Setup commands:", []string{"scan", "aliases", "devices", "serve", "script"}},
	}

	fmt.Fprint(w, helpHeader+"\n")
	for _, s := range sections {
		fmt.Fprintf(w, "\n%s\n", s.title)
		for _, cmd := range s.commands {
			fmt.Fprintln(w, commandHelp(cmd))
		}
	}
}

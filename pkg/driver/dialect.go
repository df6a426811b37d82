package driver

import (
	"fmt"
	"regexp"
	"strconv"
)

// Dialect describes how to drive one network OS over an interactive CLI
type Dialect struct {
	Name   string
	Prompt *regexp.Regexp

	// Setup runs once after login (pager off and similar)
	Setup []string

	// ConfigEnter/ConfigExit bracket the candidate lines; Save runs after a
	// successful exit. ConfigAbort leaves config mode after a failed line.
	ConfigEnter []string
	ConfigExit  []string
	ConfigAbort []string
	Save        []string

	// ErrorMarkers in any command output fail the commit
	ErrorMarkers []string

	PingCommand func(destination string) string
	ParsePing   func(output string) (PingResult, error)
}

var (
	// router1#, router1(config-if)#, user@router1>, user@router1#
	ciscoPrompt = regexp.MustCompile(`(?:^|[\r\n])[\w.\-@:/()\[\]~]+[>#]\s*$`)
	junosPrompt = regexp.MustCompile(`(?:^|[\r\n])[\w.\-@]+[>#%]\s*$`)

	// Success rate is 100 percent (5/5), round-trip min/avg/max = 1/2/4 ms
	iosSuccessRate = regexp.MustCompile(`Success rate is \d+ percent \((\d+)/(\d+)\)`)
	// 5 packets transmitted, 5 received, 0% packet loss
	// 5 packets transmitted, 5 packets received, 0% packet loss
	unixPingSummary = regexp.MustCompile(`(\d+) packets transmitted, (\d+) (?:packets )?received`)
)

var dialects = map[string]*Dialect{
	"ios": {
		Name:         "ios",
		Prompt:       ciscoPrompt,
		Setup:        []string{"terminal length 0", "terminal width 511"},
		ConfigEnter:  []string{"configure terminal"},
		ConfigExit:   []string{"end"},
		ConfigAbort:  []string{"end"},
		Save:         []string{"write memory"},
		ErrorMarkers: []string{"% Invalid", "% Incomplete", "% Ambiguous", "% Unknown"},
		PingCommand:  func(dst string) string { return "ping " + dst + " repeat 5" },
		ParsePing:    parseIOSPing,
	},
	"eos": {
		Name:         "eos",
		Prompt:       ciscoPrompt,
		Setup:        []string{"terminal length 0", "terminal width 32767"},
		ConfigEnter:  []string{"configure"},
		ConfigExit:   []string{"end"},
		ConfigAbort:  []string{"end"},
		Save:         []string{"copy running-config startup-config"},
		ErrorMarkers: []string{"% Invalid", "% Incomplete", "% Ambiguous", "% Error"},
		PingCommand:  func(dst string) string { return "ping " + dst + " repeat 5" },
		ParsePing:    parseUnixPing,
	},
	"junos": {
		Name:         "junos",
		Prompt:       junosPrompt,
		Setup:        []string{"set cli screen-length 0", "set cli screen-width 0"},
		ConfigEnter:  []string{"configure private"},
		ConfigExit:   []string{"commit and-quit"},
		ConfigAbort:  []string{"rollback 0", "exit configuration-mode"},
		ErrorMarkers: []string{"error:", "syntax error", "unknown command", "commit failed"},
		PingCommand:  func(dst string) string { return "ping " + dst + " count 5 rapid" },
		ParsePing:    parseUnixPing,
	},
}

// LookupDialect returns the built-in dialect for os
func LookupDialect(os string) (*Dialect, bool) {
	d, ok := dialects[os]
	return d, ok
}

func parseIOSPing(out string) (PingResult, error) {
	m := iosSuccessRate.FindStringSubmatch(out)
	if m == nil {
		return PingResult{}, fmt.Errorf("unrecognised ping output: %q", out)
	}
	received, _ := strconv.Atoi(m[1])
	sent, _ := strconv.Atoi(m[2])
	return PingResult{ProbesSent: sent, PacketLoss: sent - received}, nil
}

func parseUnixPing(out string) (PingResult, error) {
	m := unixPingSummary.FindStringSubmatch(out)
	if m == nil {
		return PingResult{}, fmt.Errorf("unrecognised ping output: %q", out)
	}
	sent, _ := strconv.Atoi(m[1])
	received, _ := strconv.Atoi(m[2])
	return PingResult{ProbesSent: sent, PacketLoss: sent - received}, nil
}

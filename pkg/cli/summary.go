package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/newtron-network/newtboot/pkg/bootstrap"
)

// PrintReport writes a per-device table of a bootstrap run followed by a
// one-line verdict.
func PrintReport(w io.Writer, report *bootstrap.Report) {
	if report == nil {
		return
	}
	t := NewTableTo(w, "DEVICE", "CONNECT", "BASE", "PROBES", "BGP", "CLOSED", "ERROR")
	for _, d := range report.Devices {
		t.Row(
			d.Hostname,
			mark(d.Connected, d.ConnectErr != nil),
			mark(d.BasePushed, d.Failed() && !d.BasePushed),
			probeSummary(d.Probes),
			mark(d.BGPPushed, d.Failed() && d.BasePushed),
			mark(d.Closed, false),
			errText(d),
		)
	}
	t.Flush()

	failed := report.FailedDevices()
	switch {
	case report.Aborted:
		fmt.Fprintf(w, "\n%s run %s aborted after %s\n", Red("✗"), report.RunID, report.Duration().Round(time.Millisecond))
	case len(failed) > 0:
		fmt.Fprintf(w, "\n%s run %s finished with %d of %d devices failed: %v\n",
			Yellow("!"), report.RunID, len(failed), len(report.Devices), failed)
	default:
		fmt.Fprintf(w, "\n%s run %s bootstrapped %d devices in %s\n",
			Green("✓"), report.RunID, len(report.Devices), report.Duration().Round(time.Millisecond))
	}
}

func mark(done, failed bool) string {
	switch {
	case done:
		return Green("ok")
	case failed:
		return Red("failed")
	default:
		return Dim("-")
	}
}

func probeSummary(probes []bootstrap.ProbeResult) string {
	if len(probes) == 0 {
		return Dim("-")
	}
	ok := 0
	for _, p := range probes {
		if p.Success() {
			ok++
		}
	}
	s := fmt.Sprintf("%d/%d", ok, len(probes))
	if ok == len(probes) {
		return Green(s)
	}
	return Yellow(s)
}

func errText(d *bootstrap.DeviceResult) string {
	switch {
	case d.Err != nil:
		return d.Err.Error()
	case d.ConnectErr != nil:
		return d.ConnectErr.Error()
	}
	return ""
}

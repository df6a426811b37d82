package bootstrap

import (
	"net/netip"
	"time"

	"github.com/newtron-network/newtboot/pkg/driver"
)

// ProbeResult is the outcome of pinging one interface's peer
type ProbeResult struct {
	Interface string
	Peer      netip.Addr // invalid when no peer could be derived
	Result    driver.PingResult
	Err       error
}

// Success reports whether the peer answered at least one probe
func (p ProbeResult) Success() bool {
	return p.Err == nil && p.Result.Success()
}

// DeviceResult tracks one device through the phases of a run
type DeviceResult struct {
	Hostname   string
	Connected  bool
	ConnectErr error
	BasePushed bool
	Probes     []ProbeResult
	BGPPushed  bool
	Closed     bool

	// Err is the render or push failure that stopped this device
	Err error
}

// Failed reports whether a push phase failed for this device
func (d *DeviceResult) Failed() bool {
	return d.Err != nil
}

// Report summarises a run. Devices are in input order.
type Report struct {
	RunID    string
	Started  time.Time
	Finished time.Time
	Aborted  bool
	Devices  []*DeviceResult
}

// Duration returns the wall time of the run
func (r *Report) Duration() time.Duration {
	return r.Finished.Sub(r.Started)
}

// FailedDevices returns the hostnames of devices whose push failed
func (r *Report) FailedDevices() []string {
	var out []string
	for _, d := range r.Devices {
		if d.Failed() {
			out = append(out, d.Hostname)
		}
	}
	return out
}

// Device returns the result for hostname
func (r *Report) Device(hostname string) *DeviceResult {
	for _, d := range r.Devices {
		if d.Hostname == hostname {
			return d
		}
	}
	return nil
}

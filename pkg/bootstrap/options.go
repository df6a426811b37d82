package bootstrap

import (
	"fmt"
	"time"

	"github.com/newtron-network/newtboot/pkg/util"
)

// Phase names, as they appear in logs, the journal and metrics
const (
	PhaseConnect  = "connect"
	PhaseBase     = "base"
	PhaseValidate = "validate"
	PhaseBGP      = "bgp"
	PhaseTeardown = "teardown"
)

// Policy decides what a render or commit failure does to the rest of the run
type Policy int

const (
	// PolicyAbortRun stops the phase at the first failing device and skips
	// every later phase except teardown.
	PolicyAbortRun Policy = iota
	// PolicySkipDevice marks the failing device and carries on with the
	// others.
	PolicySkipDevice
)

// ParsePolicy maps the --on-failure flag value to a Policy
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case "", "abort":
		return PolicyAbortRun, nil
	case "skip-device":
		return PolicySkipDevice, nil
	default:
		return 0, fmt.Errorf("%w: failure policy must be 'abort' or 'skip-device', got %q", util.ErrInvalidConfig, s)
	}
}

func (p Policy) String() string {
	switch p {
	case PolicyAbortRun:
		return "abort"
	case PolicySkipDevice:
		return "skip-device"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Options tune a run
type Options struct {
	ConnectTimeout time.Duration // per connect attempt
	OpTimeout      time.Duration // per push or ping
	ConnectRetries int           // extra connect attempts after the first
	RetryDelay     time.Duration // first backoff delay between attempts
	Policy         Policy
}

// DefaultOptions returns the options the CLI uses when no flag overrides them
func DefaultOptions() Options {
	return Options{
		ConnectTimeout: 30 * time.Second,
		OpTimeout:      60 * time.Second,
		RetryDelay:     2 * time.Second,
		Policy:         PolicyAbortRun,
	}
}

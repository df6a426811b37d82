// Package bootstrap runs the phases that take a set of modelled routers to
// configured, reachability-checked devices: connect, base push, validate,
// BGP push, teardown.
//
// Only the connect phase is concurrent. Every later phase walks the devices
// one at a time in input order, and a phase completes for every device
// before the next phase starts.
package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/newtron-network/newtboot/pkg/audit"
	"github.com/newtron-network/newtboot/pkg/driver"
	"github.com/newtron-network/newtboot/pkg/metrics"
	"github.com/newtron-network/newtboot/pkg/model"
	"github.com/newtron-network/newtboot/pkg/render"
	"github.com/newtron-network/newtboot/pkg/util"
)

// Orchestrator drives one bootstrap run. Journal and Metrics are optional.
type Orchestrator struct {
	Registry    *driver.Registry
	Renderer    *render.Renderer
	Credentials driver.Credentials
	Log         logrus.FieldLogger
	Journal     audit.Logger
	Metrics     *metrics.Metrics
	Options     Options
}

// connection is one connect-phase slot. session is nil when no driver
// exists for the device or the worker panicked.
type connection struct {
	session driver.Session
	err     error
}

// pushStep renders one candidate for a phase
type pushStep struct {
	phase   string
	actions []string
	render  func(*model.Router) (string, error)
	done    func(*DeviceResult)
}

// Run executes every phase against routers. Teardown runs even when a push
// phase aborts. Under PolicyAbortRun the first push failure is returned as a
// *util.DeviceError; under PolicySkipDevice failed devices are summarised in
// an error wrapping util.ErrPartialRun.
func (o *Orchestrator) Run(ctx context.Context, routers []*model.Router) (*Report, error) {
	report := &Report{
		RunID:   uuid.NewString(),
		Started: time.Now(),
		Devices: make([]*DeviceResult, len(routers)),
	}
	for i, r := range routers {
		report.Devices[i] = &DeviceResult{Hostname: r.Hostname}
	}
	log := o.logger().WithField("run", report.RunID)
	log.Infof("Starting run over %d devices (on failure: %s)", len(routers), o.Options.Policy)

	conns := o.connectAll(ctx, routers, report, log)

	steps := []pushStep{
		{
			phase:   PhaseBase,
			actions: []string{render.ActionHostname, render.ActionInterface},
			render:  o.Renderer.RenderBase,
			done:    func(d *DeviceResult) { d.BasePushed = true },
		},
		{
			phase:   PhaseBGP,
			actions: []string{render.ActionBGPNeighbor},
			render:  o.Renderer.RenderBGP,
			done:    func(d *DeviceResult) { d.BGPPushed = true },
		},
	}

	runErr := o.pushPhase(ctx, steps[0], routers, conns, report, log)
	if runErr == nil {
		o.validate(ctx, routers, conns, report, log)
		runErr = o.pushPhase(ctx, steps[1], routers, conns, report, log)
	}
	if runErr != nil {
		report.Aborted = true
		log.Errorf("Run aborted: %v", runErr)
	}

	o.teardown(routers, conns, report, log)

	if runErr == nil {
		if failed := report.FailedDevices(); len(failed) > 0 {
			runErr = fmt.Errorf("%w: %s", util.ErrPartialRun, strings.Join(failed, ", "))
		}
	}

	report.Finished = time.Now()
	o.Metrics.ObserveRun(len(routers), runErr == nil, report.Finished)
	return report, runErr
}

func (o *Orchestrator) logger() logrus.FieldLogger {
	if o.Log == nil {
		return util.NewNullLogger()
	}
	return o.Log
}

// connectAll opens a session per device in parallel. Each worker writes
// only its own slot, so the result has exactly one entry per router in
// input order regardless of completion order.
func (o *Orchestrator) connectAll(ctx context.Context, routers []*model.Router, report *Report, log logrus.FieldLogger) []connection {
	start := time.Now()
	defer func() { o.Metrics.ObservePhase(PhaseConnect, time.Since(start)) }()

	conns := make([]connection, len(routers))

	var g errgroup.Group
	for i, r := range routers {
		g.Go(func() error {
			conns[i] = o.connectOne(ctx, r, log)
			return nil
		})
	}
	g.Wait()

	for i, c := range conns {
		res := report.Devices[i]
		res.Connected = c.err == nil
		res.ConnectErr = c.err
		o.Metrics.ObserveOperation(PhaseConnect, c.err)
	}
	return conns
}

// connectOne opens one device's session, retrying when configured. A
// driver panic is contained to this device's slot.
func (o *Orchestrator) connectOne(ctx context.Context, r *model.Router, log logrus.FieldLogger) (c connection) {
	defer func() {
		if p := recover(); p != nil {
			util.WithDevice(log, r.Hostname).Errorf("Driver panic while opening %s: %v", r.Hostname, p)
			c = connection{err: fmt.Errorf("%w: %s: driver panic: %v", util.ErrConnection, r.Hostname, p)}
		}
	}()

	target := driver.Target{
		Hostname: r.Hostname,
		Host:     r.MgmtHost(),
		OS:       r.OS,
	}
	attempt := func() (driver.Session, error) {
		actx, cancel := o.withTimeout(ctx, o.Options.ConnectTimeout)
		defer cancel()
		return driver.Connect(actx, o.Registry, target, o.Credentials, log)
	}

	if o.Options.ConnectRetries <= 0 {
		s, err := attempt()
		return connection{session: s, err: err}
	}

	builder := retrypolicy.NewBuilder[driver.Session]().
		HandleIf(func(_ driver.Session, err error) bool {
			return err != nil && !errors.Is(err, util.ErrUnsupportedDriver)
		}).
		WithMaxRetries(o.Options.ConnectRetries).
		ReturnLastFailure()
	if d := o.Options.RetryDelay; d > 0 {
		builder = builder.WithBackoff(d, 8*d).WithJitterFactor(0.1)
	}

	s, err := failsafe.With[driver.Session](builder.Build()).WithContext(ctx).Get(attempt)
	return connection{session: s, err: err}
}

// pushPhase renders and pushes one candidate per device, in order.
func (o *Orchestrator) pushPhase(ctx context.Context, step pushStep, routers []*model.Router, conns []connection, report *Report, log logrus.FieldLogger) error {
	start := time.Now()
	defer func() { o.Metrics.ObservePhase(step.phase, time.Since(start)) }()

	plog := util.WithPhase(log, step.phase)
	for i, r := range routers {
		res := report.Devices[i]
		if res.Failed() {
			continue
		}

		err := o.push(ctx, step, r, conns[i], report.RunID, plog)
		o.Metrics.ObserveOperation(step.phase, err)
		if err == nil {
			step.done(res)
			continue
		}

		derr := util.NewDeviceError(r.Hostname, step.phase, err)
		res.Err = derr
		if o.Options.Policy == PolicyAbortRun {
			return derr
		}
		util.WithDevice(plog, r.Hostname).Warnf("Skipping %s for the rest of the run: %v", r.Hostname, err)
	}
	return nil
}

func (o *Orchestrator) push(ctx context.Context, step pushStep, r *model.Router, conn connection, runID string, log logrus.FieldLogger) (err error) {
	dlog := util.WithDevice(log, r.Hostname)
	event := audit.NewEvent(runID, r.Hostname, step.phase).WithActions(step.actions...)
	start := time.Now()
	defer func() {
		event.WithDuration(time.Since(start))
		if err != nil {
			event.WithError(err)
		} else {
			event.WithSuccess()
		}
		o.journal(event, dlog)
	}()

	dlog.Infof("Generating %s configuration for %s", step.phase, r.Hostname)
	config, err := step.render(r)
	if err != nil {
		return err
	}
	event.WithCandidate(config)

	if conn.session == nil {
		return conn.err
	}

	dlog.Debugf("Sending configuration to %s", r.Hostname)
	opCtx, cancel := o.withTimeout(ctx, o.Options.OpTimeout)
	defer cancel()
	if err := conn.session.LoadMergeCandidate(opCtx, config); err != nil {
		return err
	}
	return conn.session.CommitConfig(opCtx)
}

func (o *Orchestrator) journal(event *audit.Event, log logrus.FieldLogger) {
	if o.Journal == nil {
		return
	}
	if err := o.Journal.Log(event); err != nil {
		log.Warnf("Could not journal push: %v", err)
	}
}

// validate pings the point-to-point peer of every up interface. Results are
// observational and never fail the run.
func (o *Orchestrator) validate(ctx context.Context, routers []*model.Router, conns []connection, report *Report, log logrus.FieldLogger) {
	start := time.Now()
	defer func() { o.Metrics.ObservePhase(PhaseValidate, time.Since(start)) }()

	vlog := util.WithPhase(log, PhaseValidate)
	for i, r := range routers {
		res := report.Devices[i]
		session := conns[i].session
		if res.Failed() || session == nil {
			continue
		}

		dlog := util.WithDevice(vlog, r.Hostname)
		dlog.Infof("Testing interfaces on %s", r.Hostname)
		for _, iface := range r.UpInterfaces() {
			if !util.IsPointToPoint(iface.PrefixLen()) {
				dlog.Debugf("%s on %s is a /%d; probing the lowest other host", iface.Name, r.Hostname, iface.PrefixLen())
			}
			probe := o.probe(ctx, session, iface)
			res.Probes = append(res.Probes, probe)
			o.Metrics.ObserveProbe(probe.Success())

			switch {
			case probe.Err != nil:
				dlog.Warnf("Could not test %s on %s: %v", iface.Name, r.Hostname, probe.Err)
			case probe.Success():
				dlog.Infof("%s on %s can reach its peer!", iface.Name, r.Hostname)
			default:
				dlog.Warnf("%s on %s CANNOT reach its peer!", iface.Name, r.Hostname)
			}
		}
	}
}

func (o *Orchestrator) probe(ctx context.Context, session driver.Session, iface *model.Interface) ProbeResult {
	probe := ProbeResult{Interface: iface.Name}
	peer, err := iface.P2PPeer()
	if err != nil {
		probe.Err = err
		return probe
	}
	probe.Peer = peer

	opCtx, cancel := o.withTimeout(ctx, o.Options.OpTimeout)
	defer cancel()
	probe.Result, probe.Err = session.Ping(opCtx, peer.String())
	return probe
}

// teardown closes every session that exists. Close errors are logged only.
func (o *Orchestrator) teardown(routers []*model.Router, conns []connection, report *Report, log logrus.FieldLogger) {
	start := time.Now()
	defer func() { o.Metrics.ObservePhase(PhaseTeardown, time.Since(start)) }()

	tlog := util.WithPhase(log, PhaseTeardown)
	for i, r := range routers {
		session := conns[i].session
		if session == nil {
			continue
		}
		dlog := util.WithDevice(tlog, r.Hostname)
		dlog.Infof("Closing %s connection", r.Hostname)
		err := session.Close()
		o.Metrics.ObserveOperation(PhaseTeardown, err)
		if err != nil {
			dlog.Warnf("An issue occurred while closing %s: %v", r.Hostname, err)
			continue
		}
		report.Devices[i].Closed = true
		dlog.Infof("%s is closed!", r.Hostname)
	}
}

func (o *Orchestrator) withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

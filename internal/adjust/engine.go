package adjust

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/nerrad567/gray-logic-dialogue/internal/catalog"
	"github.com/nerrad567/gray-logic-dialogue/internal/resolve"
)

const (
	// DefaultOnThreshold is the percentage at or above which an absolute set
	// switches on a device that lacks the attribute.
	DefaultOnThreshold = 20.0

	// offEpsilon is how close to zero an absolute value must be to switch
	// off a device that has the attribute.
	offEpsilon = 0.01
)

// Logger is the logging interface used by the engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// CatalogProvider hands out the current catalog snapshot. *catalog.Store
// satisfies it.
type CatalogProvider interface {
	Current() *catalog.Catalog
}

// Options tunes the engine.
type Options struct {
	// OnThreshold is a percentage; zero means DefaultOnThreshold.
	OnThreshold float64
	// Timeout bounds each device command; zero means no extra bound.
	Timeout time.Duration
}

// Report is the per-device outcome of a batch.
type Report struct {
	Applied []string         `json:"applied"`
	Skipped map[string]error `json:"-"`
	Failed  map[string]error `json:"-"`
}

func newReport() Report {
	return Report{
		Applied: []string{},
		Skipped: make(map[string]error),
		Failed:  make(map[string]error),
	}
}

// Count returns the number of devices the command was applied to.
func (r Report) Count() int {
	return len(r.Applied)
}

// Err joins the failures when nothing was applied.
func (r Report) Err() error {
	if len(r.Applied) > 0 || len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Failed))
	for _, err := range r.Failed {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Engine computes and dispatches adjustments.
//
// Thread Safety:
//   - Safe for concurrent use; the engine holds no per-call state.
type Engine struct {
	catalogs   CatalogProvider
	dispatcher Dispatcher
	reader     StateReader
	opts       Options
	recorder   Recorder
	logger     Logger
}

// NewEngine creates an engine. reader may be nil, in which case relative
// adjustments skip every device and absolute ones emit no on/off transition.
func NewEngine(catalogs CatalogProvider, dispatcher Dispatcher, reader StateReader, opts Options) *Engine {
	if opts.OnThreshold == 0 {
		opts.OnThreshold = DefaultOnThreshold
	}
	return &Engine{
		catalogs:   catalogs,
		dispatcher: dispatcher,
		reader:     reader,
		opts:       opts,
		logger:     noopLogger{},
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	e.logger = logger
}

// SetRecorder attaches a command recorder.
func (e *Engine) SetRecorder(r Recorder) {
	e.recorder = r
}

// StateReader returns the reader the engine was built with.
func (e *Engine) StateReader() StateReader {
	return e.reader
}

// ApplyAbsolute sets parameter to amount on every device.
//
// A device exposing the attribute gets a set_attribute command, with an
// on transition when it is off and amount is positive, or an off transition
// when it is on and amount is within 0.01 of zero. A device without the
// attribute is only switched: on when amount reaches the on threshold, off
// otherwise.
func (e *Engine) ApplyAbsolute(ctx context.Context, deviceIDs []string, parameter string, amount float64) (Report, error) {
	cat := e.catalogs.Current()
	report := newReport()

	for _, id := range deviceIDs {
		d, ok := cat.Device(id)
		if !ok {
			report.Failed[id] = fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
			continue
		}
		e.applyAbsolute(ctx, d, parameter, amount, &report)
	}

	return report, report.Err()
}

func (e *Engine) applyAbsolute(ctx context.Context, d *catalog.Device, parameter string, amount float64, report *Report) {
	var cmd Command
	if parameter != "" && d.HasAttribute(parameter) {
		value := amount
		cmd = Command{
			DeviceID:  d.ID,
			Domain:    d.Domain,
			Kind:      KindSetAttribute,
			Attribute: parameter,
			Value:     &value,
			State:     e.transition(ctx, d.ID, amount),
		}
	} else {
		state := StateOff
		if percent(amount) >= e.opts.OnThreshold {
			state = StateOn
		}
		cmd = Command{
			DeviceID: d.ID,
			Domain:   d.Domain,
			Kind:     KindSetState,
			State:    state,
		}
	}
	e.dispatch(ctx, cmd, report)
}

// transition decides whether a set_attribute should also switch the device.
func (e *Engine) transition(ctx context.Context, deviceID string, amount float64) string {
	if e.reader == nil {
		return ""
	}
	cur, err := e.reader.State(ctx, deviceID)
	if err != nil {
		e.logger.Debug("no current state for transition", "device_id", deviceID, "error", err)
		return ""
	}
	switch {
	case cur.State == StateOff && amount > 0:
		return StateOn
	case cur.State == StateOn && math.Abs(amount) < offEpsilon:
		return StateOff
	}
	return ""
}

// percent expresses an amount, where 1 is full scale, on the 0-100 scale
// the on threshold uses.
func percent(amount float64) float64 {
	return amount * 100
}

// ApplyRelative adds amount to the current value of parameter on every
// device and applies the result through the absolute path. Devices without
// the attribute or with a non-numeric current value are skipped.
func (e *Engine) ApplyRelative(ctx context.Context, deviceIDs []string, parameter string, amount float64) (Report, error) {
	cat := e.catalogs.Current()
	report := newReport()

	if math.IsNaN(amount) || math.IsInf(amount, 0) {
		return report, ErrNonNumericAmount
	}

	for _, id := range deviceIDs {
		d, ok := cat.Device(id)
		if !ok {
			report.Failed[id] = fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
			continue
		}
		if !d.HasAttribute(parameter) {
			e.skip(&report, id, fmt.Errorf("%w: %s has no %s", ErrAttributeMissing, id, parameter))
			continue
		}

		current, err := e.currentValue(ctx, id, parameter)
		if err != nil {
			e.skip(&report, id, err)
			continue
		}
		e.applyAbsolute(ctx, d, parameter, current+amount, &report)
	}

	return report, report.Err()
}

func (e *Engine) currentValue(ctx context.Context, deviceID, parameter string) (float64, error) {
	if e.reader == nil {
		return 0, fmt.Errorf("%w: %s", ErrStateUnavailable, deviceID)
	}
	st, err := e.reader.State(ctx, deviceID)
	if err != nil {
		return 0, fmt.Errorf("reading %s: %w", deviceID, err)
	}
	v, present, err := st.Number(parameter)
	if !present {
		return 0, fmt.Errorf("%w: %s reports no %s", ErrAttributeMissing, deviceID, parameter)
	}
	if err != nil {
		return 0, fmt.Errorf("%w: %s %s = %v", ErrNonNumericAttribute, deviceID, parameter, st.Attributes[parameter])
	}
	return v, nil
}

func (e *Engine) skip(report *Report, id string, err error) {
	e.logger.Info("skipping device", "device_id", id, "reason", err)
	report.Skipped[id] = err
}

// ApplyAction invokes action on every device, resolved to each device's own
// action name with the tri-form rule.
func (e *Engine) ApplyAction(ctx context.Context, action string, deviceIDs []string) (Report, error) {
	cat := e.catalogs.Current()
	report := newReport()

	for _, id := range deviceIDs {
		d, ok := cat.Device(id)
		if !ok {
			report.Failed[id] = fmt.Errorf("%w: %s", ErrDeviceNotFound, id)
			continue
		}
		name, ok := resolve.Canonical(d, action)
		if !ok {
			report.Failed[id] = fmt.Errorf("%w: %s cannot %s", ErrActionNotSupported, id, action)
			continue
		}
		e.dispatch(ctx, Command{
			DeviceID: id,
			Domain:   d.Domain,
			Kind:     KindInvokeAction,
			Action:   name,
		}, &report)
	}

	return report, report.Err()
}

func (e *Engine) dispatch(ctx context.Context, cmd Command, report *Report) {
	if e.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.Timeout)
		defer cancel()
	}

	err := e.dispatcher.Dispatch(ctx, cmd)
	if e.recorder != nil {
		e.recorder.RecordCommand(cmd, err)
	}
	if err != nil {
		e.logger.Warn("device command failed", "device_id", cmd.DeviceID, "kind", cmd.Kind, "error", err)
		report.Failed[cmd.DeviceID] = fmt.Errorf("dispatching to %s: %w", cmd.DeviceID, err)
		return
	}
	e.logger.Debug("device command dispatched", "device_id", cmd.DeviceID, "kind", cmd.Kind)
	report.Applied = append(report.Applied, cmd.DeviceID)
}

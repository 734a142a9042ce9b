// Package sink implements the event-sink abstraction named in spec §9:
// the simulation core never writes to stdout or a socket directly, it
// hands AVNs to whichever sinks are wired in (CLI text, the IPC bridge,
// an optional dashboard websocket, Prometheus metrics) and fans out to
// all of them.
package sink

import (
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/atcsim/atcsim/internal/monitor"
)

// AVNSink mirrors control.AVNSink structurally so this package never has
// to import control.
type AVNSink interface {
	PushAVN(avn *monitor.AVN) error
}

// Fanout broadcasts every AVN to a fixed list of sinks. A failing sink
// does not block the others; each error is logged and collected.
type Fanout struct {
	sinks  []AVNSink
	logger *slog.Logger
}

// NewFanout constructs a Fanout over the given sinks, in the order they
// should be notified.
func NewFanout(logger *slog.Logger, sinks ...AVNSink) *Fanout {
	return &Fanout{sinks: sinks, logger: logger}
}

// PushAVN notifies every wired sink. It returns the first error
// encountered, if any, but still notifies every sink regardless.
func (f *Fanout) PushAVN(avn *monitor.AVN) error {
	var first error
	for _, s := range f.sinks {
		if err := s.PushAVN(avn); err != nil {
			f.logger.Warn("sink push failed", "avn_id", avn.ID, "error", err)
			if first == nil {
				first = err
			}
		}
	}
	return first
}

// CLISink writes a one-line human-readable record to w for every AVN —
// the terminal operator's feed, treated as just another external
// collaborator per spec §9 rather than a direct stdout write scattered
// through the core.
type CLISink struct {
	mu sync.Mutex
	w  io.Writer
}

// NewCLISink wraps w (typically os.Stdout) as an AVNSink.
func NewCLISink(w io.Writer) *CLISink {
	return &CLISink{w: w}
}

// PushAVN writes avn's summary line to the wrapped writer.
func (c *CLISink) PushAVN(avn *monitor.AVN) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, err := fmt.Fprintf(c.w, "AVN #%d %s/%s %s speed=%.1f permitted=[%.0f,%.0f] total=%.2f status=%s\n",
		avn.ID, avn.AirlineName, avn.FlightID, avn.Kind, avn.RecordedSpeed,
		avn.PermittedMin, avn.PermittedMax, avn.Total, avn.Status)
	return err
}

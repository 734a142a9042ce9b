package sink

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/atcsim/atcsim/internal/monitor"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func sampleAVN() *monitor.AVN {
	return &monitor.AVN{
		ID:            7,
		AirlineName:   "PIA",
		FlightID:      "PIA-701",
		RecordedSpeed: 700,
		PermittedMin:  400,
		PermittedMax:  600,
		Total:         5750,
	}
}

func TestCLISinkWritesSummaryLine(t *testing.T) {
	var buf bytes.Buffer
	s := NewCLISink(&buf)

	if err := s.PushAVN(sampleAVN()); err != nil {
		t.Fatalf("PushAVN() error: %v", err)
	}

	got := buf.String()
	for _, want := range []string{"AVN #7", "PIA", "PIA-701", "700.0", "5750.00"} {
		if !strings.Contains(got, want) {
			t.Errorf("CLISink output %q does not contain %q", got, want)
		}
	}
}

type stubSink struct {
	err    error
	pushed []*monitor.AVN
}

func (s *stubSink) PushAVN(avn *monitor.AVN) error {
	s.pushed = append(s.pushed, avn)
	return s.err
}

func TestFanoutNotifiesEverySink(t *testing.T) {
	a, b := &stubSink{}, &stubSink{}
	f := NewFanout(discardLogger(), a, b)

	avn := sampleAVN()
	if err := f.PushAVN(avn); err != nil {
		t.Fatalf("PushAVN() error: %v", err)
	}

	if len(a.pushed) != 1 || len(b.pushed) != 1 {
		t.Fatalf("sinks pushed = %d, %d, want 1, 1", len(a.pushed), len(b.pushed))
	}
}

func TestFanoutContinuesPastFailingSink(t *testing.T) {
	failing := &stubSink{err: errors.New("boom")}
	ok := &stubSink{}
	f := NewFanout(discardLogger(), failing, ok)

	err := f.PushAVN(sampleAVN())
	if err == nil {
		t.Fatalf("PushAVN() error = nil, want the failing sink's error surfaced")
	}
	if len(ok.pushed) != 1 {
		t.Fatalf("second sink was not notified after the first failed")
	}
}

func TestFanoutWithNoSinksIsANoop(t *testing.T) {
	f := NewFanout(discardLogger())
	if err := f.PushAVN(sampleAVN()); err != nil {
		t.Fatalf("PushAVN() on empty fanout error = %v, want nil", err)
	}
}

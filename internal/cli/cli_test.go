package cli

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/atcsim/atcsim/internal/aircraft"
	"github.com/atcsim/atcsim/internal/control"
	"github.com/atcsim/atcsim/internal/metrics"
	"github.com/atcsim/atcsim/internal/monitor"
)

func sampleMetricsAVN() *monitor.AVN {
	return &monitor.AVN{AirlineName: "PIA", Kind: aircraft.Commercial}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestController() *control.Controller {
	return control.New(time.Second, 1, discardLogger())
}

func run(ctrl *control.Controller, args ...string) (string, error) {
	return runWithGatherer(ctrl, nil, args...)
}

func runWithGatherer(ctrl *control.Controller, gatherer prometheus.Gatherer, args ...string) (string, error) {
	var out bytes.Buffer
	root := NewRootCommand(ctrl, discardLogger(), &out, gatherer)
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestStatusCommandPrintsSnapshot(t *testing.T) {
	ctrl := newTestController()
	out, err := run(ctrl, "status")
	if err != nil {
		t.Fatalf("status command error: %v", err)
	}
	if !strings.Contains(out, "running=false") {
		t.Errorf("status output = %q, want it to report running=false before Start()", out)
	}
	if !strings.Contains(out, "flights active=0") {
		t.Errorf("status output = %q, want zero active flights before Start()", out)
	}
}

func TestListAVNsCommandOnFreshControllerPrintsNothing(t *testing.T) {
	ctrl := newTestController()
	out, err := run(ctrl, "list-avns")
	if err != nil {
		t.Fatalf("list-avns command error: %v", err)
	}
	if out != "" {
		t.Errorf("list-avns output = %q, want empty before any AVNs are issued", out)
	}
}

func TestPayAVNCommandUnknownIDFails(t *testing.T) {
	ctrl := newTestController()
	_, err := run(ctrl, "pay-avn", "9999", "100.0")
	if err == nil {
		t.Fatalf("pay-avn command error = nil, want an error for an unknown AVN id")
	}
}

func TestPayAVNCommandRejectsNonNumericID(t *testing.T) {
	ctrl := newTestController()
	_, err := run(ctrl, "pay-avn", "not-a-number", "100.0")
	if err == nil {
		t.Fatalf("pay-avn command error = nil, want a parse error")
	}
}

func TestQueryAirlineCommandUnknownNameFails(t *testing.T) {
	ctrl := newTestController()
	_, err := run(ctrl, "query-airline", "Not An Airline")
	if err == nil {
		t.Fatalf("query-airline command error = nil, want an error for an unknown airline")
	}
}

func TestStartPauseResumeStopCommandsSucceed(t *testing.T) {
	ctrl := newTestController()

	if out, err := run(ctrl, "start"); err != nil {
		t.Fatalf("start command error: %v", err)
	} else if !strings.Contains(out, "simulation started") {
		t.Errorf("start output = %q, want a confirmation message", out)
	}

	if out, err := run(ctrl, "pause"); err != nil || !strings.Contains(out, "paused") {
		t.Errorf("pause command = %q, err=%v", out, err)
	}
	if out, err := run(ctrl, "resume"); err != nil || !strings.Contains(out, "resumed") {
		t.Errorf("resume command = %q, err=%v", out, err)
	}
	if out, err := run(ctrl, "stop"); err != nil || !strings.Contains(out, "stopped") {
		t.Errorf("stop command = %q, err=%v", out, err)
	}
}

func TestStatusMetricsFlagWithoutGathererFails(t *testing.T) {
	ctrl := newTestController()
	_, err := runWithGatherer(ctrl, nil, "status", "--metrics")
	if err == nil {
		t.Fatalf("status --metrics error = nil, want an error when no gatherer is wired")
	}
}

func TestStatusMetricsFlagWithGathererPrintsExposition(t *testing.T) {
	ctrl := newTestController()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	m.PushAVN(sampleMetricsAVN())

	out, err := runWithGatherer(ctrl, m, "status", "--metrics")
	if err != nil {
		t.Fatalf("status --metrics error: %v", err)
	}
	if !strings.Contains(out, "atcsim_avns_issued_total") {
		t.Errorf("status --metrics output = %q, want it to include the AVN counter family", out)
	}
}

func TestStatusWithoutMetricsFlagOmitsExposition(t *testing.T) {
	ctrl := newTestController()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	out, err := runWithGatherer(ctrl, m, "status")
	if err != nil {
		t.Fatalf("status error: %v", err)
	}
	if strings.Contains(out, "# HELP") {
		t.Errorf("status output = %q, want no metrics exposition without --metrics", out)
	}
}

func TestStartCommandTwiceSurfacesError(t *testing.T) {
	ctrl := newTestController()
	if _, err := run(ctrl, "start"); err != nil {
		t.Fatalf("first start command error: %v", err)
	}
	defer ctrl.Stop()

	out, err := run(ctrl, "start")
	if err == nil {
		t.Fatalf("second start command error = nil, want ErrAlreadyRunning")
	}
	if !strings.Contains(strings.ToLower(out), "error") {
		t.Errorf("second start output = %q, want cobra's error line", out)
	}
}

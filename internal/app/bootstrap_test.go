package app

import (
	"errors"
	"testing"

	"github.com/dujiao-next/warehouse/internal/config"
)

func TestBuildRunnerRejectsStandaloneWorker(t *testing.T) {
	cfg := &config.Config{Warehouse: config.DefaultWarehouseConfig()}
	cfg.Queue.Enabled = true

	runner, err := BuildRunner(cfg, ModeWorker)
	if !errors.Is(err, ErrStandaloneWorker) {
		t.Fatalf("worker mode should be refused, got %v", err)
	}
	if runner != nil {
		t.Fatalf("runner should be nil when worker mode is refused")
	}
}

func TestBuildRunnerNilConfig(t *testing.T) {
	if _, err := BuildRunner(nil, ModeAll); err == nil {
		t.Fatalf("nil config should fail")
	}
}

func TestWorkerConfigured(t *testing.T) {
	cases := []struct {
		name     string
		queue    bool
		interval int
		want     bool
	}{
		{name: "nothing", want: false},
		{name: "queue only", queue: true, want: true},
		{name: "interval only", interval: 30, want: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := &config.Config{}
			cfg.Queue.Enabled = tc.queue
			cfg.Warehouse.StatusRefreshIntervalMinutes = tc.interval
			if got := workerConfigured(cfg); got != tc.want {
				t.Fatalf("workerConfigured = %v, want %v", got, tc.want)
			}
		})
	}
}

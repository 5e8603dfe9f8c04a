package queue

import (
	"testing"

	"github.com/dujiao-next/warehouse/internal/config"
)

func TestInventoryStatusRefreshTaskRoundTrip(t *testing.T) {
	task, err := NewInventoryStatusRefreshTask(InventoryStatusRefreshPayload{InventoryIDs: []int{3, 1}, RequestedBy: "张三"})
	if err != nil {
		t.Fatalf("new task failed: %v", err)
	}
	if task.Type() != TaskInventoryStatusRefresh {
		t.Fatalf("unexpected task type %s", task.Type())
	}
	payload, err := ParseInventoryStatusRefreshPayload(task)
	if err != nil {
		t.Fatalf("parse payload failed: %v", err)
	}
	if len(payload.InventoryIDs) != 2 || payload.InventoryIDs[0] != 3 || payload.RequestedBy != "张三" {
		t.Fatalf("unexpected payload %+v", payload)
	}

	empty, err := ParseInventoryStatusRefreshPayload(nil)
	if err != nil || len(empty.InventoryIDs) != 0 {
		t.Fatalf("nil task should yield empty payload: %+v %v", empty, err)
	}
}

func TestDisabledClientSkipsEnqueue(t *testing.T) {
	client, err := NewClient(&config.QueueConfig{Enabled: false})
	if err != nil {
		t.Fatalf("new client failed: %v", err)
	}
	if client.Enabled() {
		t.Fatalf("client should be disabled")
	}
	id, err := client.EnqueueInventoryStatusRefresh(InventoryStatusRefreshPayload{})
	if err != nil || id != "" {
		t.Fatalf("disabled enqueue should be a no-op: %q %v", id, err)
	}
}

func TestBuildServerConfigDefaults(t *testing.T) {
	opt, cfg := BuildServerConfig(&config.QueueConfig{Port: 6380, Queues: map[string]int{"critical": 6, "default": 3}})
	if opt.Addr != "127.0.0.1:6380" {
		t.Fatalf("unexpected addr %s", opt.Addr)
	}
	if cfg.Concurrency != 10 || cfg.Queues["critical"] != 6 {
		t.Fatalf("unexpected server config %+v", cfg)
	}
}

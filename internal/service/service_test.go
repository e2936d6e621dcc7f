package service_test

import (
	"errors"
	"testing"
	"time"

	"livetask/internal/service"
)

func TestSplitPath(t *testing.T) {
	tests := []struct {
		path, parent, key string
	}{
		{"tasks/abc", "tasks", "abc"},
		{"/tasks/abc/", "tasks", "abc"},
		{"connection_test", "", "connection_test"},
		{"a/b/c", "a/b", "c"},
	}
	for _, tt := range tests {
		parent, key := service.SplitPath(tt.path)
		if parent != tt.parent || key != tt.key {
			t.Errorf("SplitPath(%q) = (%q, %q), want (%q, %q)", tt.path, parent, key, tt.parent, tt.key)
		}
	}
}

func TestResolveServerValues(t *testing.T) {
	now := time.UnixMilli(1700000000000)
	in := map[string]any{
		"isDeleted": true,
		"deletedAt": service.ServerTimestamp,
	}

	out := service.ResolveServerValues(in, now)

	if out["deletedAt"] != int64(1700000000000) {
		t.Errorf("expected deletedAt resolved to %d, got %v", now.UnixMilli(), out["deletedAt"])
	}
	if out["isDeleted"] != true {
		t.Errorf("expected isDeleted untouched, got %v", out["isDeleted"])
	}
	if !service.IsServerTimestamp(in["deletedAt"]) {
		t.Error("input map must not be modified")
	}
}

func TestParsePriority(t *testing.T) {
	p, err := service.ParsePriority(" High ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p != service.PriorityHigh {
		t.Errorf("expected high, got %q", p)
	}

	_, err = service.ParsePriority("urgent")
	if !errors.Is(err, service.ErrInvalidPriority) {
		t.Errorf("expected ErrInvalidPriority, got %v", err)
	}
}

func TestPriorityWeight(t *testing.T) {
	if !(service.PriorityHigh.Weight() > service.PriorityMedium.Weight() &&
		service.PriorityMedium.Weight() > service.PriorityLow.Weight()) {
		t.Error("expected high > medium > low")
	}
	if service.Priority("").Weight() != 0 {
		t.Error("expected unknown priority to weigh 0")
	}
}

func TestTaskUpdateFields(t *testing.T) {
	done := true
	text := "Buy milk"
	fields := service.TaskUpdate{Text: &text, Completed: &done}.Fields()

	if len(fields) != 2 {
		t.Fatalf("expected 2 fields, got %v", fields)
	}
	if fields["text"] != "Buy milk" || fields["completed"] != true {
		t.Errorf("unexpected fields: %v", fields)
	}
}

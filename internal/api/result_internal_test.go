package api

import (
	"context"
	"errors"
	"strings"
	"testing"

	"ytanalyzer/internal/logging"
	"ytanalyzer/internal/services"
)

func TestInvokeRecoversPanics(t *testing.T) {
	core := &Core{logger: logging.NewNop()}
	res := invoke(context.Background(), core, "explode", func(context.Context) (int, error) {
		panic("boom")
	})
	if res.Success {
		t.Fatal("expected failure")
	}
	if res.Kind() != services.KindInternal {
		t.Fatalf("unexpected kind %q", res.Kind())
	}
	if !strings.Contains(res.Error, "boom") {
		t.Fatalf("panic value missing from %q", res.Error)
	}
}

func TestInvokeAnnotatesContext(t *testing.T) {
	core := &Core{logger: logging.NewNop()}
	res := invoke(context.Background(), core, "probe", func(ctx context.Context) (string, error) {
		op, _ := services.OperationFromContext(ctx)
		id, ok := services.RequestIDFromContext(ctx)
		if !ok || id == "" {
			return "", errors.New("missing request id")
		}
		return op, nil
	})
	if !res.Success || res.Payload != "probe" {
		t.Fatalf("unexpected result %+v", res)
	}
}

func TestResultKind(t *testing.T) {
	tests := []struct {
		name string
		res  Result[int]
		want string
	}{
		{"success", ok(1), ""},
		{"conflict", failed[int](services.Wrap(services.ErrConflict, "batch", "start", "busy", nil)), services.KindConflict},
		{"plain error", failed[int](errors.New("disk full")), services.KindInternal},
		{"no separator", Result[int]{Error: "weird"}, services.KindInternal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.res.Kind(); got != tt.want {
				t.Fatalf("Kind() = %q, want %q", got, tt.want)
			}
		})
	}
}

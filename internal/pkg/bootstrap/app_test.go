// internal/pkg/bootstrap/app_test.go
package bootstrap

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestShutdown_OrderAndHookLIFO(t *testing.T) {
	var calls []string

	err := shutdown(context.Background(),
		func() error {
			calls = append(calls, "deregister")
			return nil
		},
		func(ctx context.Context) error {
			calls = append(calls, "drain")
			return nil
		},
		[]func(context.Context){
			func(ctx context.Context) { calls = append(calls, "hook-1") },
			func(ctx context.Context) { calls = append(calls, "hook-2") },
		},
		func(ctx context.Context) error {
			calls = append(calls, "tracer")
			return nil
		},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"deregister", "drain", "hook-2", "hook-1", "tracer"}
	if !reflect.DeepEqual(calls, want) {
		t.Errorf("shutdown sequence = %v, want %v", calls, want)
	}
}

func TestShutdown_DeregisterFailureStillDrains(t *testing.T) {
	var calls []string

	err := shutdown(context.Background(),
		func() error { return errors.New("nacos unreachable") },
		func(ctx context.Context) error {
			calls = append(calls, "drain")
			return nil
		},
		[]func(context.Context){
			func(ctx context.Context) { calls = append(calls, "hook") },
		},
		func(ctx context.Context) error { return nil },
	)
	if err != nil {
		t.Fatalf("deregister failure must not abort shutdown: %v", err)
	}
	if !reflect.DeepEqual(calls, []string{"drain", "hook"}) {
		t.Errorf("remaining steps did not run: %v", calls)
	}
}

func TestShutdown_DrainErrorPropagatesAfterCleanup(t *testing.T) {
	drainErr := errors.New("listener timeout")
	hookRan := false

	err := shutdown(context.Background(),
		func() error { return nil },
		func(ctx context.Context) error { return drainErr },
		[]func(context.Context){
			func(ctx context.Context) { hookRan = true },
		},
		func(ctx context.Context) error { return nil },
	)
	if !errors.Is(err, drainErr) {
		t.Errorf("expected drain error, got %v", err)
	}
	if !hookRan {
		t.Error("cleanup hooks must run even when the drain fails")
	}
}

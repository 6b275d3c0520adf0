package extraction

import (
	"context"

	"github.com/JonMunkholm/custodia/internal/core"
)

// Task is one unit of extraction work.
type Task func(ctx context.Context) (*core.RunResult, error)

// Future is the pending result of a submitted Task.
type Future interface {
	Wait(ctx context.Context) (*core.RunResult, error)
}

// Runner decides where and when a Task executes.
type Runner interface {
	Submit(ctx context.Context, task Task) Future
}

// SyncRunner executes tasks inline in Submit.
type SyncRunner struct{}

// Submit runs task immediately and returns its settled result.
func (SyncRunner) Submit(ctx context.Context, task Task) Future {
	res, err := task(ctx)
	return settled{res: res, err: err}
}

type settled struct {
	res *core.RunResult
	err error
}

func (s settled) Wait(context.Context) (*core.RunResult, error) {
	return s.res, s.err
}

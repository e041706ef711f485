// Package asyncrun drives a vm.Interpreter from a background goroutine,
// following the cooperative run-loop/yield pattern in the teacher's
// service.DebuggerService.RunUntilHalt: a mutex-guarded running flag, a
// periodic yield so the host can still query state while the loop spins,
// and a clean stop on Halted/Called/Waiting so the host can service the
// syscall or interrupt and decide whether to resume.
package asyncrun

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/embive/embive-go/vm"
)

// yieldEvery mirrors the teacher's stepsBeforeYield: after this many
// consecutive Run() calls that each returned Running (i.e. only stopped
// because the per-call instruction budget was spent), the loop sleeps
// briefly so a host holding the same goroutine scheduler isn't starved.
const yieldEvery = 1000

// Runner wraps an Interpreter with a background run loop. The zero value
// is not usable; construct with New.
type Runner struct {
	mu      sync.Mutex
	it      *vm.Interpreter
	running bool
	cancel  context.CancelFunc
	log     *zap.Logger
}

// New wraps it. log may be nil.
func New(it *vm.Interpreter, log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{it: it, log: log}
}

// Start launches the run loop in a goroutine. onState is called exactly
// once, from the goroutine, when the loop stops: because the interpreter
// left Running (Called/Waiting/Halted), because ctx was canceled, or
// because Stop was called. Start is a no-op if the loop is already
// running.
func (r *Runner) Start(ctx context.Context, onState func(vm.State, error)) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.mu.Unlock()

	go r.loop(ctx, onState)
}

// Stop cancels an in-progress run loop. It does not wait for the
// goroutine to observe cancellation.
func (r *Runner) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cancel != nil {
		r.cancel()
	}
}

// IsRunning reports whether a run loop is currently active.
func (r *Runner) IsRunning() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

func (r *Runner) loop(ctx context.Context, onState func(vm.State, error)) {
	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	consecutive := 0
	for {
		select {
		case <-ctx.Done():
			r.log.Debug("run loop canceled")
			onState(vm.Running, ctx.Err())
			return
		default:
		}

		state, err := r.it.Run()
		if err != nil {
			r.log.Debug("run loop fault", zap.Error(err))
			onState(state, err)
			return
		}
		if state != vm.Running {
			r.log.Debug("run loop yielding to host", zap.Stringer("state", state))
			onState(state, nil)
			return
		}

		consecutive++
		if consecutive >= yieldEvery {
			consecutive = 0
			time.Sleep(time.Millisecond)
		}
	}
}

package pose

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/teslashibe/mockingbird/pkg/debug"
	"github.com/teslashibe/mockingbird/pkg/frame"
)

// Result is delivered to the submit callback.
// Epoch is the value passed to Submit, so the receiver can discard results
// that belong to a session that has since stopped.
type Result struct {
	Epoch       uint64
	Seq         uint64
	Observation Observation
	Err         error
	Latency     time.Duration
}

// Adapter runs engine inference asynchronously, one frame at a time.
// It performs no retries: a failed inference is reported once and the
// caller moves on to the next frame.
type Adapter struct {
	engine Engine
	logger *slog.Logger

	inflight atomic.Bool
	wg       sync.WaitGroup

	submitted atomic.Uint64
	failed    atomic.Uint64
}

// NewAdapter wraps engine.
func NewAdapter(engine Engine, logger *slog.Logger) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		engine: engine,
		logger: logger.With("component", "pose"),
	}
}

// Ready reports whether the underlying engine is initialized.
func (a *Adapter) Ready() bool {
	return a.engine.Ready()
}

// InFlight reports whether an inference is currently running.
func (a *Adapter) InFlight() bool {
	return a.inflight.Load()
}

// Submit starts inference on f and returns immediately. onResult is called
// from another goroutine when inference completes. Submit returns false
// without calling onResult if an inference is already running.
func (a *Adapter) Submit(ctx context.Context, f frame.Frame, epoch uint64, onResult func(Result)) bool {
	if !a.inflight.CompareAndSwap(false, true) {
		return false
	}
	a.submitted.Add(1)
	a.wg.Add(1)

	go func() {
		defer a.wg.Done()
		defer a.inflight.Store(false)

		res := a.run(ctx, f, epoch)
		onResult(res)
	}()
	return true
}

func (a *Adapter) run(ctx context.Context, f frame.Frame, epoch uint64) (res Result) {
	res = Result{Epoch: epoch, Seq: f.Seq}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res.Err = fmt.Errorf("pose: engine panic: %v", r)
		}
		res.Latency = time.Since(start)
		if res.Err != nil {
			a.failed.Add(1)
			a.logger.Warn("inference failed", "seq", f.Seq, "epoch", epoch, "error", res.Err)
		}
	}()

	if !a.engine.Ready() {
		res.Err = ErrNotReady
		return res
	}

	poses, err := a.engine.Detect(ctx, f)
	if err != nil {
		res.Err = err
		return res
	}

	res.Observation = Observation{Poses: poses, CapturedAt: f.Timestamp}
	debug.FrameLog("🦴 frame %d: %d pose(s) in %v\n", f.Seq, len(poses), time.Since(start))
	return res
}

// Wait blocks until any in-flight inference has delivered its result.
func (a *Adapter) Wait() {
	a.wg.Wait()
}

// Stats returns the number of submissions and failures so far.
func (a *Adapter) Stats() (submitted, failed uint64) {
	return a.submitted.Load(), a.failed.Load()
}

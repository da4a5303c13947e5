package session

import (
	"context"
	"sync"
	"time"

	"github.com/teslashibe/mockingbird/pkg/debug"
	"github.com/teslashibe/mockingbird/pkg/pose"
)

// frameLoop ticks at the frame interval until ctx is cancelled.
func (s *Session) frameLoop(ctx context.Context, epoch uint64, loops *sync.WaitGroup) {
	defer loops.Done()

	ticker := time.NewTicker(s.opts.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx, epoch)
		}
	}
}

// tick runs one loop iteration: throttle by frame timestamp, then submit.
func (s *Session) tick(ctx context.Context, epoch uint64) {
	s.mu.Lock()
	if !s.running || s.epoch.Load() != epoch {
		s.mu.Unlock()
		return
	}
	if !s.source.Ready() || s.adapter.InFlight() {
		s.mu.Unlock()
		return
	}
	f, ok := s.source.Latest()
	if !ok {
		s.mu.Unlock()
		return
	}
	if !s.throttle.Admit(f.Timestamp) {
		s.mu.Unlock()
		debug.FrameLog("⏭️  frame %d unchanged, skipped\n", f.Seq)
		return
	}
	s.frames++
	s.mu.Unlock()

	if !s.adapter.Submit(ctx, f, epoch, s.handleResult) {
		debug.FrameLog("⏭️  frame %d dropped, inference busy\n", f.Seq)
	}
}

// handleResult applies an inference result if its epoch is still current.
func (s *Session) handleResult(res pose.Result) {
	s.mu.Lock()
	if !s.running || s.epoch.Load() != res.Epoch {
		s.discarded++
		s.mu.Unlock()
		s.logger.Debug("stale inference result discarded", "epoch", res.Epoch, "seq", res.Seq)
		return
	}
	if res.Err != nil {
		// no observation this tick; the loop carries on with the next frame
		s.mu.Unlock()
		return
	}

	state, tr, changed := s.detector.Reduce(res.Observation)
	if changed {
		s.events.Append(tr.Message())
	}
	s.mu.Unlock()

	if changed {
		s.logger.Info("presence changed", "transition", tr, "last_present_at", state.LastPresentAt)
		s.notifyStatus()
	}
	s.render(res.Epoch, res.Observation)
}

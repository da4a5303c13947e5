package camera

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/teslashibe/mockingbird/pkg/debug"
	"github.com/teslashibe/mockingbird/pkg/frame"
	"gocv.io/x/gocv"
)

// Capture reads frames from a GoCV VideoCapture and keeps the latest one.
// It implements frame.Source.
type Capture struct {
	cfg    Config
	logger *slog.Logger

	cap *gocv.VideoCapture

	mu      sync.RWMutex
	latest  frame.Frame
	has     bool
	running bool
	clock   *frameClock

	cancel context.CancelFunc
	done   chan struct{}
}

// Open opens the capture device described by cfg.
func Open(cfg Config, logger *slog.Logger) (*Capture, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, fmt.Errorf("camera: invalid config: %v", errs)
	}

	vc, err := gocv.OpenVideoCapture(cfg.Device)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, cfg.Device, err)
	}
	if !vc.IsOpened() {
		vc.Close()
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, cfg.Device)
	}

	vc.Set(gocv.VideoCaptureFrameWidth, float64(cfg.Width))
	vc.Set(gocv.VideoCaptureFrameHeight, float64(cfg.Height))
	vc.Set(gocv.VideoCaptureFPS, float64(cfg.FPS))

	return &Capture{
		cfg:    cfg,
		logger: logger.With("component", "camera", "device", cfg.Device),
		cap:    vc,
	}, nil
}

// Start begins the background read loop.
func (c *Capture) Start(ctx context.Context) {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return
	}
	ctx, c.cancel = context.WithCancel(ctx)
	c.done = make(chan struct{})
	c.running = true
	c.clock = newFrameClock(time.Now())
	c.mu.Unlock()

	go c.readLoop(ctx)
	c.logger.Info("capture started", "width", c.cfg.Width, "height", c.cfg.Height, "fps", c.cfg.FPS)
}

func (c *Capture) readLoop(ctx context.Context) {
	defer close(c.done)

	img := gocv.NewMat()
	defer img.Close()

	var seq uint64
	misses := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if ok := c.cap.Read(&img); !ok || img.Empty() {
			misses++
			if misses == 30 {
				c.logger.Warn("no frames from device")
			}
			time.Sleep(10 * time.Millisecond)
			continue
		}
		misses = 0

		buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{int(gocv.IMWriteJpegQuality), c.cfg.Quality})
		if err != nil {
			c.logger.Debug("encode failed", "error", err)
			continue
		}
		data := append([]byte(nil), buf.GetBytes()...)
		buf.Close()

		ts := c.clock.stamp(c.cap.Get(gocv.VideoCapturePosMsec), time.Now())
		seq++

		c.mu.Lock()
		c.latest = frame.Frame{Data: data, Timestamp: ts, Seq: seq}
		c.has = true
		c.mu.Unlock()

		debug.FrameLog("📷 frame %d at %v (%d KB)\n", seq, ts, len(data)/1024)
	}
}

// Latest implements frame.Source.
func (c *Capture) Latest() (frame.Frame, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.latest, c.has
}

// Ready implements frame.Source.
func (c *Capture) Ready() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.running && c.has
}

// Config returns the capture configuration.
func (c *Capture) Config() Config {
	return c.cfg
}

// Close stops the read loop and releases the device.
func (c *Capture) Close() error {
	c.mu.Lock()
	running := c.running
	c.running = false
	cancel := c.cancel
	done := c.done
	c.mu.Unlock()

	if running {
		cancel()
		<-done
	}
	return c.cap.Close()
}

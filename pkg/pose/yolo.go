package pose

import (
	"context"
	"fmt"
	"image"
	"os"
	"sync"

	"github.com/teslashibe/mockingbird/pkg/debug"
	"github.com/teslashibe/mockingbird/pkg/frame"
	"gocv.io/x/gocv"
)

// YOLOConfig holds YOLOv8-pose engine configuration
type YOLOConfig struct {
	ModelPath        string
	ConfidenceThresh float32
	NMSThresh        float32
	InputWidth       int
	InputHeight      int
	MaxPoses         int // keep at most this many people per frame
}

// DefaultYOLOConfig returns production defaults for YOLOv8n-pose
func DefaultYOLOConfig() YOLOConfig {
	return YOLOConfig{
		ModelPath:        "models/yolov8n-pose.onnx",
		ConfidenceThresh: 0.5,
		NMSThresh:        0.45,
		InputWidth:       640,
		InputHeight:      640,
		MaxPoses:         2,
	}
}

// YOLOEngine runs a YOLOv8-pose ONNX model through OpenCV DNN.
type YOLOEngine struct {
	net       gocv.Net
	config    YOLOConfig
	mu        sync.Mutex // Protects inference
	inputSize image.Point
	closed    bool
}

// NewYOLO loads the pose model.
func NewYOLO(cfg YOLOConfig) (*YOLOEngine, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%w: %s", ErrModelNotFound, cfg.ModelPath)
	}

	net := gocv.ReadNetFromONNX(cfg.ModelPath)
	if net.Empty() {
		return nil, fmt.Errorf("pose: failed to load model from %s", cfg.ModelPath)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &YOLOEngine{
		net:       net,
		config:    cfg,
		inputSize: image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

// Ready implements Engine.
func (e *YOLOEngine) Ready() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return !e.closed
}

// Detect implements Engine.
func (e *YOLOEngine) Detect(ctx context.Context, f frame.Frame) ([]LandmarkSet, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil, ErrClosed
	}

	if len(f.Data) == 0 {
		return nil, ErrEmptyFrame
	}
	img, err := gocv.IMDecode(f.Data, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, ErrEmptyFrame
	}

	blob := gocv.BlobFromImage(img, 1.0/255.0, e.inputSize, gocv.NewScalar(0, 0, 0, 0), true, false)
	defer blob.Close()

	e.net.SetInput(blob, "")
	output := e.net.Forward("")
	defer output.Close()

	// Output shape: [1, 56, N] - 56 = 4 bbox + 1 score + 17*3 keypoints
	sizes := output.Size()
	if len(sizes) != 3 {
		return nil, fmt.Errorf("pose: unexpected output shape %v", sizes)
	}
	data, err := output.DataPtrFloat32()
	if err != nil {
		return nil, fmt.Errorf("pose: read output: %w", err)
	}

	poses := e.parseOutput(data, sizes[1], sizes[2])
	if len(poses) > 0 {
		debug.Log("🦴 YOLO found %d pose(s)\n", len(poses))
	}
	return poses, nil
}

// parseOutput decodes the channel-major YOLOv8-pose tensor.
// channels must be 5 + 3*KeypointCount.
func (e *YOLOEngine) parseOutput(data []float32, channels, anchors int) []LandmarkSet {
	if channels != 5+3*KeypointCount || len(data) < channels*anchors {
		return nil
	}

	inW := float32(e.config.InputWidth)
	inH := float32(e.config.InputHeight)

	var boxes []image.Rectangle
	var scores []float32
	var candidates []int

	for i := 0; i < anchors; i++ {
		score := data[4*anchors+i]
		if score < e.config.ConfidenceThresh {
			continue
		}

		cx := data[0*anchors+i]
		cy := data[1*anchors+i]
		w := data[2*anchors+i]
		h := data[3*anchors+i]

		boxes = append(boxes, image.Rect(int(cx-w/2), int(cy-h/2), int(cx+w/2), int(cy+h/2)))
		scores = append(scores, score)
		candidates = append(candidates, i)
	}

	if len(boxes) == 0 {
		return nil
	}

	indices := gocv.NMSBoxes(boxes, scores, e.config.ConfidenceThresh, e.config.NMSThresh)

	var poses []LandmarkSet
	for _, idx := range indices {
		if e.config.MaxPoses > 0 && len(poses) >= e.config.MaxPoses {
			break
		}
		anchor := candidates[idx]
		set := make(LandmarkSet, KeypointCount)
		for k := 0; k < KeypointCount; k++ {
			base := 5 + 3*k
			set[k] = Landmark{
				X:          float64(data[base*anchors+anchor] / inW),
				Y:          float64(data[(base+1)*anchors+anchor] / inH),
				Confidence: float64(data[(base+2)*anchors+anchor]),
			}
		}
		poses = append(poses, set)
	}
	return poses
}

// Close releases the model resources
func (e *YOLOEngine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return nil
	}
	e.closed = true
	return e.net.Close()
}

package detector

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"time"

	"github.com/disintegration/imaging"
	"github.com/sirupsen/logrus"

	"headwatch/internal/config"
	"headwatch/pkg/log"
)

// Backend runs the model on a prepared frame and returns the flattened
// detection rows.
type Backend interface {
	Ready(ctx context.Context) error
	Infer(ctx context.Context, frame *Frame) ([]float32, error)
}

// Detector resizes images to a fixed working resolution and runs them
// through the backend. It holds no mutable state once constructed and may be
// shared between goroutines.
type Detector struct {
	backend Backend
	width   int
	height  int
	logger  *logrus.Entry
}

// New probes the backend once; a model that is not ready fails here rather
// than on every request.
func New(ctx context.Context, conf config.DetectorConfig, backend Backend) (*Detector, error) {
	if backend == nil {
		return nil, modelUnavailableError("load", errors.New("no inference backend"))
	}
	if conf.Width <= 0 || conf.Height <= 0 {
		return nil, fmt.Errorf("invalid working resolution %dx%d", conf.Width, conf.Height)
	}
	if err := backend.Ready(ctx); err != nil {
		return nil, modelUnavailableError("load", err)
	}

	return &Detector{
		backend: backend,
		width:   conf.Width,
		height:  conf.Height,
		logger:  log.GetLogger(ctx).WithField("component", "detector"),
	}, nil
}

func (d *Detector) Size() (int, int) {
	return d.width, d.height
}

// Load opens the image at path and resizes it to the working resolution.
func (d *Detector) Load(path string) (*image.NRGBA, error) {
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, imageLoadError("open "+path, err)
	}
	return d.Prepare(img)
}

// Decode reads an encoded image and resizes it to the working resolution.
func (d *Detector) Decode(r io.Reader) (*image.NRGBA, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return nil, imageLoadError("decode", err)
	}
	return d.Prepare(img)
}

func (d *Detector) Prepare(img image.Image) (*image.NRGBA, error) {
	if img == nil {
		return nil, imageLoadError("resize", errors.New("nil image"))
	}
	if img.Bounds().Empty() {
		return nil, imageLoadError("resize", errors.New("empty image"))
	}
	return imaging.Resize(img, d.width, d.height, imaging.Linear), nil
}

// Detect returns the detections for img. Box coordinates refer to the image
// after it has been resized to the working resolution.
func (d *Detector) Detect(ctx context.Context, img image.Image) ([]Detection, error) {
	working, ok := img.(*image.NRGBA)
	if !ok || working.Rect.Dx() != d.width || working.Rect.Dy() != d.height {
		var err error
		if working, err = d.Prepare(img); err != nil {
			return nil, err
		}
	}

	start := time.Now()
	raw, err := d.backend.Infer(ctx, bgrFrame(working))
	if err != nil {
		return nil, modelUnavailableError("infer", err)
	}
	detections := parseDetections(raw, d.width, d.height)

	d.logger.Debugf("inference returned %d detections in %v", len(detections), time.Since(start))
	return detections, nil
}

func bgrFrame(img *image.NRGBA) *Frame {
	w, h := img.Rect.Dx(), img.Rect.Dy()
	data := make([]byte, 0, w*h*3)
	for y := 0; y < h; y++ {
		off := img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y+y)
		row := img.Pix[off : off+w*4]
		for x := 0; x < len(row); x += 4 {
			data = append(data, row[x+2], row[x+1], row[x])
		}
	}
	return &Frame{Width: w, Height: h, Data: data}
}

// parseDetections decodes rows of [x1, y1, x2, y2, confidence, class_id].
// A trailing partial row and rows holding NaN or Inf are dropped.
func parseDetections(raw []float32, width, height int) []Detection {
	detections := make([]Detection, 0, len(raw)/6)
	for i := 0; i+5 < len(raw); i += 6 {
		if !finite(raw[i : i+6]) {
			continue
		}
		x1, x2 := clampCoord(raw[i], width), clampCoord(raw[i+2], width)
		y1, y2 := clampCoord(raw[i+1], height), clampCoord(raw[i+3], height)
		if x1 > x2 {
			x1, x2 = x2, x1
		}
		if y1 > y2 {
			y1, y2 = y2, y1
		}

		detections = append(detections, Detection{
			ClassID:    int(raw[i+5]),
			Confidence: clampConfidence(raw[i+4]),
			Box:        Box{X1: x1, Y1: y1, X2: x2, Y2: y2},
		})
	}
	return detections
}

func finite(row []float32) bool {
	for _, v := range row {
		f := float64(v)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return false
		}
	}
	return true
}

func clampCoord(v float32, limit int) int {
	if v < 0 {
		return 0
	}
	if float64(v) > float64(limit) {
		return limit
	}
	return int(v)
}

func clampConfidence(v float32) float32 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

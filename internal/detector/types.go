package detector

import (
	"errors"
	"fmt"
	"image"
)

var (
	ErrImageLoad        = errors.New("image load failed")
	ErrModelUnavailable = errors.New("model unavailable")
)

// Error is returned by every failing Detector call. Kind is either
// ErrImageLoad or ErrModelUnavailable.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func imageLoadError(op string, err error) error {
	return &Error{Op: op, Kind: ErrImageLoad, Err: err}
}

func modelUnavailableError(op string, err error) error {
	return &Error{Op: op, Kind: ErrModelUnavailable, Err: err}
}

// Box is a bounding box in pixel coordinates of the working image.
type Box struct {
	X1 int `json:"x1"`
	Y1 int `json:"y1"`
	X2 int `json:"x2"`
	Y2 int `json:"y2"`
}

func (b Box) Rect() image.Rectangle {
	return image.Rect(b.X1, b.Y1, b.X2, b.Y2)
}

type Detection struct {
	ClassID    int     `json:"classId"`
	Confidence float32 `json:"confidence"`
	Box        Box     `json:"box"`
}

// Frame is the raw model input: Height x Width x 3 bytes in BGR order.
type Frame struct {
	Width  int
	Height int
	Data   []byte
}

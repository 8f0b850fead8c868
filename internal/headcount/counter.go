// Package headcount turns raw detections into a head count and an annotated
// copy of the frame.
package headcount

import (
	"image"
	"image/color"
	"image/draw"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font/gofont/goregular"

	"headwatch/internal/config"
	"headwatch/internal/detector"
)

const (
	DefaultConfThreshold = 0.5
	DefaultLabel         = "Head"

	lineWidth    = 2
	fontSize     = 14
	labelOffsetY = 5
)

var (
	boxColor = color.RGBA{0, 255, 0, 255}
	font     *truetype.Font
)

func init() {
	var err error
	font, err = truetype.Parse(goregular.TTF)
	if err != nil {
		panic(err)
	}
}

type Options struct {
	HeadClass     int
	ConfThreshold float32
	Label         string
}

func DefaultOptions() Options {
	return Options{
		HeadClass:     0,
		ConfThreshold: DefaultConfThreshold,
		Label:         DefaultLabel,
	}
}

func OptionsFromConfig(conf config.CounterConfig) Options {
	opts := Options{
		HeadClass:     conf.HeadClass,
		ConfThreshold: conf.ConfThreshold,
		Label:         conf.Label,
	}
	if opts.Label == "" {
		opts.Label = DefaultLabel
	}
	return opts
}

type FrameResult struct {
	Annotated *image.RGBA
	HeadCount int
	// Heads are the detections that were counted, in input order.
	Heads []detector.Detection
}

// Qualifies reports whether d is a head above the confidence threshold.
func (o Options) Qualifies(d detector.Detection) bool {
	return d.ClassID == o.HeadClass && d.Confidence > o.ConfThreshold
}

func Filter(detections []detector.Detection, opts Options) []detector.Detection {
	heads := make([]detector.Detection, 0, len(detections))
	for _, d := range detections {
		if opts.Qualifies(d) {
			heads = append(heads, d)
		}
	}
	return heads
}

// Count filters detections and draws the qualifying ones onto a copy of img.
// img is never modified. With nothing to draw the copy is pixel-identical to
// the input.
func Count(img image.Image, detections []detector.Detection, opts Options) FrameResult {
	heads := Filter(detections, opts)
	return FrameResult{
		Annotated: annotate(img, heads, opts.Label),
		HeadCount: len(heads),
		Heads:     heads,
	}
}

func annotate(img image.Image, heads []detector.Detection, label string) *image.RGBA {
	b := img.Bounds()
	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	if len(heads) == 0 {
		return dst
	}

	dc := gg.NewContextForRGBA(dst)
	dc.SetFontFace(truetype.NewFace(font, &truetype.Options{Size: fontSize}))
	dc.SetColor(boxColor)
	dc.SetLineWidth(lineWidth)
	for _, h := range heads {
		r := h.Box.Rect().Sub(b.Min)
		dc.DrawRectangle(float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()))
		dc.Stroke()
		dc.DrawString(label, float64(r.Min.X), float64(r.Min.Y-labelOffsetY))
	}
	return dst
}

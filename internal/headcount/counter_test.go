package headcount

import (
	"image"
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headwatch/internal/config"
	"headwatch/internal/detector"
)

func blankFrame() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, 160, 120))
	for i := 3; i < len(img.Pix); i += 4 {
		img.Pix[i] = 255
	}
	return img
}

func head(x1, y1, x2, y2 int, confidence float32) detector.Detection {
	return detector.Detection{
		ClassID:    0,
		Confidence: confidence,
		Box:        detector.Box{X1: x1, Y1: y1, X2: x2, Y2: y2},
	}
}

func TestCountFiltersByClassAndConfidence(t *testing.T) {
	detections := []detector.Detection{
		head(10, 20, 40, 60, 0.9),
		head(50, 20, 80, 60, 0.5), // not strictly above the threshold
		head(90, 20, 120, 60, 0.51),
		{ClassID: 2, Confidence: 0.99, Box: detector.Box{X1: 1, Y1: 1, X2: 5, Y2: 5}},
	}

	res := Count(blankFrame(), detections, DefaultOptions())

	assert.Equal(t, 2, res.HeadCount)
	require.Len(t, res.Heads, 2)
	assert.Equal(t, float32(0.9), res.Heads[0].Confidence)
	assert.Equal(t, float32(0.51), res.Heads[1].Confidence)
}

func TestCountEmptyIsUnannotatedCopy(t *testing.T) {
	src := blankFrame()
	src.Set(7, 9, color.RGBA{12, 34, 56, 255})

	res := Count(src, nil, DefaultOptions())

	assert.Equal(t, 0, res.HeadCount)
	assert.Empty(t, res.Heads)
	assert.Equal(t, src.Bounds(), res.Annotated.Bounds())
	assert.Equal(t, src.Pix, res.Annotated.Pix)

	res.Annotated.Set(0, 0, color.White)
	assert.NotEqual(t, src.Pix, res.Annotated.Pix, "annotated image must be a copy")
}

func TestCountBelowThresholdDrawsNothing(t *testing.T) {
	src := blankFrame()
	res := Count(src, []detector.Detection{head(10, 20, 40, 60, 0.2)}, DefaultOptions())

	assert.Equal(t, 0, res.HeadCount)
	assert.Equal(t, src.Pix, res.Annotated.Pix)
}

func TestCountDrawsBoxes(t *testing.T) {
	src := blankFrame()
	orig := append([]byte(nil), src.Pix...)

	res := Count(src, []detector.Detection{head(20, 40, 80, 100, 0.8)}, DefaultOptions())
	require.Equal(t, 1, res.HeadCount)

	edge := res.Annotated.RGBAAt(20, 70)
	assert.Greater(t, edge.G, uint8(200))
	assert.Less(t, edge.R, uint8(50))

	inside := res.Annotated.RGBAAt(50, 70)
	assert.Equal(t, color.RGBA{0, 0, 0, 255}, inside)

	assert.Equal(t, orig, src.Pix, "input must not be modified")
}

func TestCountIsDeterministic(t *testing.T) {
	detections := []detector.Detection{head(10, 30, 50, 70, 0.7), head(60, 30, 100, 70, 0.95)}

	a := Count(blankFrame(), detections, DefaultOptions())
	b := Count(blankFrame(), detections, DefaultOptions())

	assert.Equal(t, a.HeadCount, b.HeadCount)
	assert.Equal(t, a.Annotated.Pix, b.Annotated.Pix)
}

func TestCountIsMonotonic(t *testing.T) {
	opts := DefaultOptions()
	var detections []detector.Detection
	prev := 0
	for i := 0; i < 10; i++ {
		if i%3 == 0 {
			detections = append(detections, detector.Detection{ClassID: 1, Confidence: 0.9})
		}
		detections = append(detections, head(i, i, i+10, i+10, 0.6+float32(i)/100))

		n := Count(blankFrame(), detections, opts).HeadCount
		assert.GreaterOrEqual(t, n, prev)
		assert.Equal(t, prev+1, n)
		prev = n
	}
}

func TestCountNonZeroOrigin(t *testing.T) {
	src := image.NewRGBA(image.Rect(10, 10, 30, 20))
	src.Set(10, 10, color.RGBA{1, 2, 3, 255})

	res := Count(src, nil, DefaultOptions())

	assert.Equal(t, image.Rect(0, 0, 20, 10), res.Annotated.Bounds())
	assert.Equal(t, color.RGBA{1, 2, 3, 255}, res.Annotated.RGBAAt(0, 0))
}

func TestCountNonZeroOriginDrawsInImageSpace(t *testing.T) {
	src := image.NewRGBA(image.Rect(100, 50, 260, 170))
	for i := 3; i < len(src.Pix); i += 4 {
		src.Pix[i] = 255
	}

	res := Count(src, []detector.Detection{head(120, 90, 180, 150, 0.8)}, DefaultOptions())
	require.Equal(t, 1, res.HeadCount)

	edge := res.Annotated.RGBAAt(20, 70)
	assert.Greater(t, edge.G, uint8(200))
	assert.Less(t, edge.R, uint8(50))

	assert.Equal(t, color.RGBA{0, 0, 0, 255}, res.Annotated.RGBAAt(120, 70))
}

func TestOptionsFromConfig(t *testing.T) {
	opts := OptionsFromConfig(config.CounterConfig{HeadClass: 3, ConfThreshold: 0.25})

	assert.Equal(t, 3, opts.HeadClass)
	assert.Equal(t, float32(0.25), opts.ConfThreshold)
	assert.Equal(t, DefaultLabel, opts.Label)
	assert.True(t, opts.Qualifies(detector.Detection{ClassID: 3, Confidence: 0.3}))
	assert.False(t, opts.Qualifies(detector.Detection{ClassID: 0, Confidence: 0.3}))
}

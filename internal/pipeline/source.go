package pipeline

import (
	"image"
	"io"

	"headwatch/internal/detector"
)

// Source is an image to analyze: an already decoded image, an encoded
// stream, or a file path. Decoding and resizing are done by the detector.
type Source interface {
	Name() string
	open(d *detector.Detector) (image.Image, error)
}

type imageSource struct {
	name string
	img  image.Image
}

func FromImage(name string, img image.Image) Source {
	return &imageSource{name: name, img: img}
}

func (s *imageSource) Name() string { return s.name }

func (s *imageSource) open(d *detector.Detector) (image.Image, error) {
	return d.Prepare(s.img)
}

type pathSource string

func FromPath(path string) Source {
	return pathSource(path)
}

func (s pathSource) Name() string { return string(s) }

func (s pathSource) open(d *detector.Detector) (image.Image, error) {
	return d.Load(string(s))
}

type readerSource struct {
	name string
	r    io.Reader
}

func FromReader(name string, r io.Reader) Source {
	return &readerSource{name: name, r: r}
}

func (s *readerSource) Name() string { return s.name }

func (s *readerSource) open(d *detector.Detector) (image.Image, error) {
	return d.Decode(s.r)
}

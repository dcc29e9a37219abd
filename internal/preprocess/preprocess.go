// Package preprocess turns an image into the normalized tensor the model reads.
package preprocess

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
	"github.com/pkg/errors"

	"github.com/Brownie44l1/breed-classifier/internal/config"
)

const channels = 3

// Pipeline resizes to a fixed square with bilinear interpolation and maps
// 8-bit channel values from [0,255] to [0,1].
type Pipeline struct {
	Size   int
	Layout string
}

// New returns the pipeline described by a variant.
func New(v config.Variant) Pipeline {
	return Pipeline{Size: v.ImageSize, Layout: v.Layout}
}

// Len is the number of values Process produces.
func (p Pipeline) Len() int {
	return channels * p.Size * p.Size
}

// Shape is the engine input shape including the batch dimension.
func (p Pipeline) Shape() []int64 {
	s := int64(p.Size)
	if p.Layout == config.LayoutNCHW {
		return []int64{1, channels, s, s}
	}
	return []int64{1, s, s, channels}
}

// Process returns a fresh tensor for img. img is not modified.
func (p Pipeline) Process(img image.Image) ([]float32, error) {
	if img == nil {
		return nil, errors.New("nil image")
	}
	if p.Size <= 0 {
		return nil, errors.Errorf("invalid target size %d", p.Size)
	}
	if b := img.Bounds(); b.Dx() == 0 || b.Dy() == 0 {
		return nil, errors.Errorf("empty image %v", b)
	}

	size := uint(p.Size)
	resized := resize.Resize(size, size, img, resize.Bilinear)

	out := make([]float32, p.Len())
	b := resized.Bounds()
	plane := p.Size * p.Size
	for y := 0; y < p.Size; y++ {
		for x := 0; x < p.Size; x++ {
			c := color.NRGBAModel.Convert(resized.At(b.Min.X+x, b.Min.Y+y)).(color.NRGBA)
			r, g, bl := normalize(c.R), normalize(c.G), normalize(c.B)

			pixel := y*p.Size + x
			if p.Layout == config.LayoutNCHW {
				out[pixel] = r
				out[plane+pixel] = g
				out[2*plane+pixel] = bl
				continue
			}
			out[pixel*channels] = r
			out[pixel*channels+1] = g
			out[pixel*channels+2] = bl
		}
	}
	return out, nil
}

func normalize(v uint8) float32 {
	return float32(v) / 255
}

// Package imageproc decodes uploaded images and turns them into classifier
// input tensors.
package imageproc

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"

	"github.com/nfnt/resize"

	"github.com/Brownie44l1/safe-skin/internal/model"
)

// DefaultSize is the square edge the classifier expects.
const DefaultSize = 224

const channels = 3

var ErrUnsupportedFormat = errors.New("unsupported image format")

// Decode reads a JPEG or PNG upload.
func Decode(data []byte) (image.Image, string, error) {
	if len(data) == 0 {
		return nil, "", fmt.Errorf("%w: empty upload", ErrUnsupportedFormat)
	}
	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return img, format, nil
}

// Normalizer converts bitmaps into (1, Size, Size, 3) tensors scaled to [0, 1].
type Normalizer struct {
	Size int
}

func NewNormalizer(size int) *Normalizer {
	if size <= 0 {
		size = DefaultSize
	}
	return &Normalizer{Size: size}
}

// Normalize stretches img to Size x Size (aspect ratio is not kept) and
// divides every 8-bit channel value by 255. Alpha is dropped; the stored
// colour of translucent pixels is kept rather than darkened.
func (n *Normalizer) Normalize(img image.Image) (model.Tensor, error) {
	if img == nil || img.Bounds().Empty() {
		return model.Tensor{}, fmt.Errorf("%w: empty bitmap", ErrUnsupportedFormat)
	}

	size := n.Size
	resized := resize.Resize(uint(size), uint(size), img, resize.Bilinear)

	bounds := resized.Bounds()
	data := make([]float32, size*size*channels)
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			c := color.NRGBAModel.Convert(resized.At(bounds.Min.X+x, bounds.Min.Y+y)).(color.NRGBA)

			i := (y*size + x) * channels
			data[i] = float32(c.R) / 255.0
			data[i+1] = float32(c.G) / 255.0
			data[i+2] = float32(c.B) / 255.0
		}
	}

	return model.Tensor{
		Shape: []int64{1, int64(size), int64(size), channels},
		Data:  data,
	}, nil
}

// DecodeAndNormalize is Decode followed by Normalize.
func (n *Normalizer) DecodeAndNormalize(data []byte) (model.Tensor, error) {
	img, _, err := Decode(data)
	if err != nil {
		return model.Tensor{}, err
	}
	return n.Normalize(img)
}

package service

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// maxImagePixels rejects decompression bombs before the pixel buffer is
// allocated.
const maxImagePixels = 178956970

// ErrInvalidImage is returned for any upload that cannot be decoded
var ErrInvalidImage = errors.New("invalid image")

// DecodedImage is an uploaded photo normalized to opaque RGB. Format is the
// codec name reported by the decoder ("jpeg", "png", "webp", ...).
type DecodedImage struct {
	Image  *image.NRGBA
	Format string
}

// DecodeImage decodes raw upload bytes and normalizes them to RGB.
// Every failure, including a panicking codec, is reported as ErrInvalidImage.
func DecodeImage(data []byte) (img *DecodedImage, err error) {
	defer func() {
		if r := recover(); r != nil {
			img, err = nil, fmt.Errorf("%w: decoder panic: %v", ErrInvalidImage, r)
		}
	}()

	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return nil, fmt.Errorf("%w: unsupported dimensions %dx%d", ErrInvalidImage, cfg.Width, cfg.Height)
	}

	src, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	return &DecodedImage{Image: toRGB(src), Format: format}, nil
}

// toRGB drops the alpha channel while keeping colour values, so transparent
// pixels keep whatever colour they carried.
func toRGB(src image.Image) *image.NRGBA {
	b := src.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(src.At(x, y)).(color.NRGBA)
			c.A = 0xff
			dst.SetNRGBA(x-b.Min.X, y-b.Min.Y, c)
		}
	}
	return dst
}

// Encode writes the image in its source format. Formats without an encoder
// (jpeg itself, webp, anything unknown) are written as JPEG.
func (d *DecodedImage) Encode(w io.Writer) error {
	switch d.Format {
	case "png":
		return png.Encode(w, d.Image)
	case "gif":
		return gif.Encode(w, d.Image, nil)
	case "bmp":
		return bmp.Encode(w, d.Image)
	case "tiff":
		return tiff.Encode(w, d.Image, nil)
	default:
		return jpeg.Encode(w, d.Image, &jpeg.Options{Quality: jpeg.DefaultQuality})
	}
}

// DataURL encodes the image as an inline data URL. The MIME label is always
// image/jpeg, whatever format Encode produced.
func (d *DecodedImage) DataURL() (string, error) {
	var buf bytes.Buffer
	if err := d.Encode(&buf); err != nil {
		return "", fmt.Errorf("failed to encode image: %w", err)
	}
	return "data:image/jpeg;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

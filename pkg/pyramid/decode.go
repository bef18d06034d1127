package pyramid

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"

	"github.com/jpfielding/rok4tile.go/pkg/compress/deflate"
	"github.com/jpfielding/rok4tile.go/pkg/compress/lzw"
	"github.com/jpfielding/rok4tile.go/pkg/compress/packbits"
	"github.com/jpfielding/rok4tile.go/pkg/tiff"
)

// pngSignature marks PNG tiles stored in deflate pyramids
var pngSignature = []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}

// decodeTile expands one encoded tile to interleaved samples.
func decodeTile(c tiff.Compression, data []byte, channels, rawSize int) ([]byte, error) {
	switch c {
	case tiff.CompressionNone:
		return data, nil
	case tiff.CompressionJPEG:
		img, err := jpeg.Decode(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("jpeg: %w", err)
		}
		return samples(img, channels), nil
	case tiff.CompressionLZW:
		return lzw.Decode(data, rawSize)
	case tiff.CompressionPackBits:
		return packbits.Decode(data, rawSize)
	case tiff.CompressionDeflate, tiff.CompressionAdobeDeflate:
		if bytes.HasPrefix(data, pngSignature) {
			img, err := png.Decode(bytes.NewReader(data))
			if err != nil {
				return nil, fmt.Errorf("png: %w", err)
			}
			return samples(img, channels), nil
		}
		return deflate.Decode(data, rawSize)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedCompression, c)
	}
}

// samples flattens a decoded image to channels samples per pixel.
func samples(img image.Image, channels int) []byte {
	b := img.Bounds()
	out := make([]byte, 0, b.Dx()*b.Dy()*channels)
	if g, ok := img.(*image.Gray); ok && channels == 1 {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := g.PixOffset(b.Min.X, y)
			out = append(out, g.Pix[i:i+b.Dx()]...)
		}
		return out
	}
	if n, ok := img.(*image.NRGBA); ok && channels == 4 {
		for y := b.Min.Y; y < b.Max.Y; y++ {
			i := n.PixOffset(b.Min.X, y)
			out = append(out, n.Pix[i:i+4*b.Dx()]...)
		}
		return out
	}
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.NRGBAModel.Convert(img.At(x, y)).(color.NRGBA)
			switch channels {
			case 1:
				out = append(out, color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y)
			case 2:
				out = append(out, color.GrayModel.Convert(img.At(x, y)).(color.Gray).Y, c.A)
			case 3:
				out = append(out, c.R, c.G, c.B)
			default:
				out = append(out, c.R, c.G, c.B, c.A)
			}
		}
	}
	return out
}

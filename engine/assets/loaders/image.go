package loaders

import (
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"

	"github.com/spaghettifunk/instanced/engine/renderer/metadata"
)

// DecodeImage decodes any registered format (png, jpeg, bmp, tiff) and
// converts it to tightly packed RGBA8. With FlipY the first row is the bottom
// of the image, which is what glTexImage2D expects.
func DecodeImage(r io.Reader, params metadata.ImageParams) (*metadata.ImageData, error) {
	src, _, err := image.Decode(r)
	if err != nil {
		return nil, fmt.Errorf("decoding image: %w", err)
	}

	b := src.Bounds()
	rgba, ok := src.(*image.RGBA)
	if !ok || rgba.Stride != b.Dx()*4 || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), src, b.Min, draw.Src)
	}

	w, h := rgba.Bounds().Dx(), rgba.Bounds().Dy()
	pixels := rgba.Pix
	if params.FlipY {
		pixels = make([]uint8, len(rgba.Pix))
		row := w * 4
		for y := 0; y < h; y++ {
			copy(pixels[(h-1-y)*row:(h-y)*row], rgba.Pix[y*row:(y+1)*row])
		}
	}

	return &metadata.ImageData{
		ChannelCount: 4,
		Width:        uint32(w),
		Height:       uint32(h),
		Pixels:       pixels,
	}, nil
}

func LoadImage(path string, params metadata.ImageParams) (*metadata.ImageData, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := DecodeImage(f, params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return img, nil
}

// CheckerImage is the fallback texture used when the default one is missing.
func CheckerImage(size, cell int) *metadata.ImageData {
	img := image.NewRGBA(image.Rect(0, 0, size, size))
	light := color.RGBA{R: 200, G: 200, B: 200, A: 255}
	dark := color.RGBA{R: 90, G: 90, B: 90, A: 255}
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			if (x/cell+y/cell)%2 == 0 {
				img.SetRGBA(x, y, light)
			} else {
				img.SetRGBA(x, y, dark)
			}
		}
	}
	return &metadata.ImageData{
		ChannelCount: 4,
		Width:        uint32(size),
		Height:       uint32(size),
		Pixels:       img.Pix,
	}
}

package loaders

import (
	"bytes"
	"image"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"github.com/spaghettifunk/anima-prefab/engine/core"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/metadata"
)

/**
 * @brief Decodes png, jpeg, bmp, tiff and webp images into RGBA8 pixels.
 */
type ImageFormat struct {
	/** @brief Indicates if the image should be flipped on the y-axis when loaded. */
	FlipY bool
	/** @brief Images larger than this on either side are scaled down. Zero keeps the size. */
	MaxSize uint32
	Sampler metadata.TextureSampler
}

func (f ImageFormat) Name() string {
	return "IMAGE"
}

func (f ImageFormat) Import(data []byte) (*metadata.TextureData, error) {
	img, kind, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}

	bounds := img.Bounds()
	width, height := bounds.Dx(), bounds.Dy()
	if f.MaxSize > 0 && (width > int(f.MaxSize) || height > int(f.MaxSize)) {
		scale := float64(f.MaxSize) / float64(max(width, height))
		width = max(1, int(float64(width)*scale))
		height = max(1, int(float64(height)*scale))
		core.LogDebug("scaling %s image from %dx%d to %dx%d", kind, bounds.Dx(), bounds.Dy(), width, height)
	}

	rgba := image.NewRGBA(image.Rect(0, 0, width, height))
	if width == bounds.Dx() && height == bounds.Dy() {
		draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	} else {
		draw.CatmullRom.Scale(rgba, rgba.Bounds(), img, bounds, draw.Src, nil)
	}

	stride := width * 4
	pixels := make([]uint8, stride*height)
	for y := 0; y < height; y++ {
		src := y
		if f.FlipY {
			src = height - 1 - y
		}
		copy(pixels[y*stride:(y+1)*stride], rgba.Pix[src*rgba.Stride:src*rgba.Stride+stride])
	}

	transparent := false
	for i := 3; i < len(pixels); i += 4 {
		if pixels[i] < 255 {
			transparent = true
			break
		}
	}

	sampler := f.Sampler
	if sampler == (metadata.TextureSampler{}) {
		sampler = metadata.DefaultTextureSampler()
	}
	return &metadata.TextureData{
		Width:           uint32(width),
		Height:          uint32(height),
		ChannelCount:    4,
		HasTransparency: transparent,
		Pixels:          pixels,
		Sampler:         sampler,
	}, nil
}

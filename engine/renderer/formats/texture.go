package formats

import (
	"errors"

	"github.com/spaghettifunk/anima-prefab/engine/assets"
	"github.com/spaghettifunk/anima-prefab/engine/assets/loaders"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/metadata"
)

var ErrTextureNotLoaded = errors.New("texture is not loaded")
var ErrNoTextureSource = errors.New("texture has neither data, a file nor a handle")

type TextureHandle = assets.Handle[*metadata.Texture]

type TextureStorage = assets.Storage[*metadata.Texture, *metadata.TextureData]

type TextureSystemData struct {
	Loader  *assets.Loader
	Storage *TextureStorage
}

/**
 * @brief A texture given as decoded pixels, as an image file or as a handle.
 */
type TexturePrefab struct {
	Data   *metadata.TextureData
	File   string
	Format assets.Format[*metadata.TextureData]
	handle TextureHandle
}

func TextureFromData(data *metadata.TextureData) *TexturePrefab {
	return &TexturePrefab{Data: data}
}

func TextureFromFile(file string) *TexturePrefab {
	return &TexturePrefab{File: file}
}

func TextureFromHandle(h TextureHandle) *TexturePrefab {
	return &TexturePrefab{handle: h}
}

func (p *TexturePrefab) LoadSubAssets(progress *assets.ProgressCounter, data TextureSystemData) (bool, error) {
	switch {
	case p.handle.IsValid():
		return false, nil
	case p.Data != nil:
		p.handle = assets.LoadFromData(data.Loader, p.Data, progress, data.Storage)
		p.Data = nil
		return true, nil
	case p.File != "":
		format := p.Format
		if format == nil {
			format = loaders.ImageFormat{FlipY: true}
		}
		p.handle = assets.Load(data.Loader, p.File, format, progress, data.Storage)
		return true, nil
	default:
		return false, ErrNoTextureSource
	}
}

func (p *TexturePrefab) Handle() TextureHandle {
	return p.handle
}

// cloneLoaded shares the handle, which makes LoadSubAssets a no-op on the copy.
func (p *TexturePrefab) cloneLoaded() *TexturePrefab {
	if p == nil {
		return nil
	}
	return &TexturePrefab{File: p.File, handle: p.handle}
}

package renderer

import "github.com/spaghettifunk/anima-prefab/engine/renderer/metadata"

/**
 * @brief The GPU facing side of the renderer. Only upload and release are needed
 * while loading; implementations set the InternalID of what they create.
 */
type RendererBackend interface {
	CreateGeometry(mesh *metadata.Mesh, vertices []byte, indices []uint32) error
	DestroyGeometry(mesh *metadata.Mesh)
	CreateTexture(texture *metadata.Texture, pixels []uint8) error
	DestroyTexture(texture *metadata.Texture)
}

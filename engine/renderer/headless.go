package renderer

import (
	"errors"
	"fmt"
	"sync"

	"github.com/spaghettifunk/anima-prefab/engine/core"
	"github.com/spaghettifunk/anima-prefab/engine/renderer/metadata"
)

var ErrEmptyGeometry = errors.New("geometry has no vertices")
var ErrInvalidPixels = errors.New("pixel buffer does not match texture size")

/**
 * @brief Backend that keeps uploads in memory. Used by tests and tools that
 * run without a window.
 */
type HeadlessBackend struct {
	mu       sync.Mutex
	nextID   uint32
	meshes   map[uint32][]byte
	textures map[uint32][]uint8
}

func NewHeadlessBackend() *HeadlessBackend {
	return &HeadlessBackend{
		meshes:   make(map[uint32][]byte),
		textures: make(map[uint32][]uint8),
	}
}

func (hb *HeadlessBackend) CreateGeometry(mesh *metadata.Mesh, vertices []byte, indices []uint32) error {
	if mesh.VertexCount == 0 || len(vertices) == 0 {
		return fmt.Errorf("create geometry '%s': %w", mesh.Name, ErrEmptyGeometry)
	}
	for _, i := range indices {
		if i >= mesh.VertexCount {
			return fmt.Errorf("create geometry '%s': index %d out of range for %d vertices", mesh.Name, i, mesh.VertexCount)
		}
	}
	hb.mu.Lock()
	defer hb.mu.Unlock()
	hb.nextID++
	mesh.InternalID = hb.nextID
	mesh.Generation++
	hb.meshes[mesh.InternalID] = vertices
	core.LogDebug("uploaded geometry '%s' (%d vertices, %d indices)", mesh.Name, mesh.VertexCount, mesh.IndexCount)
	return nil
}

func (hb *HeadlessBackend) DestroyGeometry(mesh *metadata.Mesh) {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	delete(hb.meshes, mesh.InternalID)
}

func (hb *HeadlessBackend) CreateTexture(texture *metadata.Texture, pixels []uint8) error {
	expected := int(texture.Width) * int(texture.Height) * int(texture.ChannelCount)
	if expected == 0 || len(pixels) != expected {
		return fmt.Errorf("create texture '%s': %w", texture.Name, ErrInvalidPixels)
	}
	hb.mu.Lock()
	defer hb.mu.Unlock()
	hb.nextID++
	texture.InternalID = hb.nextID
	texture.Generation++
	hb.textures[texture.InternalID] = pixels
	core.LogDebug("uploaded texture '%s' (%dx%d)", texture.Name, texture.Width, texture.Height)
	return nil
}

func (hb *HeadlessBackend) DestroyTexture(texture *metadata.Texture) {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	delete(hb.textures, texture.InternalID)
}

// Stats returns how many meshes and textures are currently resident.
func (hb *HeadlessBackend) Stats() (meshes, textures int) {
	hb.mu.Lock()
	defer hb.mu.Unlock()
	return len(hb.meshes), len(hb.textures)
}

package metadata

const (
	/** @brief The default texture name. */
	DEFAULT_TEXTURE_NAME string = "default"
)

type TextureFlag int

const (
	/** @brief Indicates if the texture has transparency. */
	TextureFlagHasTransparency TextureFlag = 0x1
)

/** @brief Holds bit flags for textures.. */
type TextureFlagBits uint8

/** @brief Represents supported texture filtering modes. */
type TextureFilter int

const (
	/** @brief Nearest-neighbor filtering. */
	TextureFilterModeNearest TextureFilter = iota
	/** @brief Linear (i.e. bilinear) filtering.*/
	TextureFilterModeLinear
)

type TextureRepeat int

const (
	TextureRepeatRepeat TextureRepeat = iota
	TextureRepeatMirroredRepeat
	TextureRepeatClampToEdge
	TextureRepeatClampToBorder
)

/**
 * @brief How a texture is sampled.
 */
type TextureSampler struct {
	FilterMinify  TextureFilter
	FilterMagnify TextureFilter
	RepeatU       TextureRepeat
	RepeatV       TextureRepeat
}

func DefaultTextureSampler() TextureSampler {
	return TextureSampler{
		FilterMinify:  TextureFilterModeLinear,
		FilterMagnify: TextureFilterModeLinear,
		RepeatU:       TextureRepeatRepeat,
		RepeatV:       TextureRepeatRepeat,
	}
}

/**
 * @brief Decoded pixels waiting to be uploaded. Always RGBA8.
 */
type TextureData struct {
	Name string
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The number of channels. */
	ChannelCount uint8
	/** @brief Indicates the image has at least one non opaque pixel. */
	HasTransparency bool
	/** @brief The pixel data of the image. */
	Pixels  []uint8
	Sampler TextureSampler
}

/**
 * @brief Represents a texture.
 */
type Texture struct {
	/** @brief The internal texture identifier, used by the renderer backend. */
	InternalID uint32
	/** @brief The texture Width. */
	Width uint32
	/** @brief The texture Height. */
	Height uint32
	/** @brief The number of channels in the texture. */
	ChannelCount uint8
	/** @brief Holds various Flags for this texture. */
	Flags TextureFlagBits
	/** @brief The texture Generation. Incremented every time the data is reloaded. */
	Generation uint32
	/** @brief The texture Name. */
	Name    string
	Sampler TextureSampler
}

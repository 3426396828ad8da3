package metadata

/** @brief Decoded texture pixels, tightly packed RGBA8, rows bottom-up when flipped. */
type ImageData struct {
	/** @brief The number of channels. Always 4 once converted. */
	ChannelCount uint8
	/** @brief The width of the image. */
	Width uint32
	/** @brief The height of the image. */
	Height uint32
	/** @brief The pixel data of the image. */
	Pixels []uint8
}

type ImageParams struct {
	/** @brief Indicates if the image should be flipped on the y-axis when loaded. */
	FlipY bool
}

/** @brief GLSL sources of one vertex/fragment program. */
type ShaderSource struct {
	Name     string
	Vertex   string
	Fragment string
}

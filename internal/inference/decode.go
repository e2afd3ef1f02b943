package inference

import (
	"bytes"
	"image"
	_ "image/jpeg" // register JPEG decoder for image.DecodeConfig
	_ "image/png"  // register PNG decoder for image.DecodeConfig

	_ "golang.org/x/image/webp" // register WebP decoder for image.DecodeConfig
)

// Dimensions reads the image header and returns its width, height, and
// detected format without decoding the pixels.
func (i *Image) Dimensions() (width, height int, format string, err error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(i.Data))
	if err != nil {
		return 0, 0, "", err
	}
	return cfg.Width, cfg.Height, format, nil
}

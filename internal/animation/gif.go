// Package animation assembles generated frames into an animated GIF that
// plays at the same rate as the browser preview.
package animation

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"image/color/palette"
	"image/gif"
	_ "image/jpeg" // register JPEG decoder
	_ "image/png"  // register PNG decoder
	"io"
	"time"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp" // register WebP decoder
)

// DefaultFrameDelay matches the frontend playback interval.
const DefaultFrameDelay = 200 * time.Millisecond

// Options controls GIF assembly.
type Options struct {
	// Delay between frames. Zero means DefaultFrameDelay.
	Delay time.Duration
	// MaxWidth downscales frames wider than this, keeping aspect ratio.
	// Zero keeps the first frame's size.
	MaxWidth int
}

// DecodeBase64 decodes base64 frames as returned by the pipeline.
func DecodeBase64(encoded []string) ([][]byte, error) {
	out := make([][]byte, 0, len(encoded))
	for i, s := range encoded {
		data, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("frame %d: invalid base64: %w", i+1, err)
		}
		out = append(out, data)
	}
	return out, nil
}

// EncodeGIF decodes each frame and writes a looping GIF to w. All frames are
// scaled to the first frame's (possibly downscaled) size.
func EncodeGIF(w io.Writer, frames [][]byte, opts Options) error {
	if len(frames) == 0 {
		return errors.New("no frames to encode")
	}
	delay := opts.Delay
	if delay <= 0 {
		delay = DefaultFrameDelay
	}
	// GIF delays are in hundredths of a second.
	centis := int(delay / (10 * time.Millisecond))
	if centis < 1 {
		centis = 1
	}

	var (
		anim   gif.GIF
		bounds image.Rectangle
	)
	for i, data := range frames {
		src, _, err := image.Decode(bytes.NewReader(data))
		if err != nil {
			return fmt.Errorf("frame %d: failed to decode image: %w", i+1, err)
		}
		if i == 0 {
			bounds = targetBounds(src.Bounds(), opts.MaxWidth)
		}
		anim.Image = append(anim.Image, toPaletted(src, bounds))
		anim.Delay = append(anim.Delay, centis)
	}

	if err := gif.EncodeAll(w, &anim); err != nil {
		return fmt.Errorf("failed to encode GIF: %w", err)
	}
	return nil
}

func targetBounds(src image.Rectangle, maxWidth int) image.Rectangle {
	w, h := src.Dx(), src.Dy()
	if maxWidth > 0 && w > maxWidth {
		h = h * maxWidth / w
		w = maxWidth
		if h < 1 {
			h = 1
		}
	}
	return image.Rect(0, 0, w, h)
}

// toPaletted scales src into bounds when needed and dithers it onto the
// Plan 9 palette.
func toPaletted(src image.Image, bounds image.Rectangle) *image.Paletted {
	var scaled image.Image = src
	if src.Bounds().Dx() != bounds.Dx() || src.Bounds().Dy() != bounds.Dy() {
		rgba := image.NewRGBA(bounds)
		draw.CatmullRom.Scale(rgba, bounds, src, src.Bounds(), draw.Src, nil)
		scaled = rgba
	}
	dst := image.NewPaletted(bounds, palette.Plan9)
	draw.FloydSteinberg.Draw(dst, bounds, scaled, scaled.Bounds().Min)
	return dst
}

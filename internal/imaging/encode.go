package imaging

import (
	"bytes"
	"fmt"
	"image"

	// Register decoders for the formats product pages serve.
	_ "image/gif"
	"image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/webp"

	"github.com/chai2010/webp"
	"github.com/disintegration/imaging"
)

// encoded is the output of one decode/resize/re-encode pass.
type encoded struct {
	data     []byte
	mimeType string
	width    int
	height   int
}

// transcode decodes raw image bytes, scales the long edge down to maxEdge
// (never up), and re-encodes. WEBP is preferred; JPEG is the fallback when
// WEBP encoding fails for the input.
func (p *Pipeline) transcode(raw []byte) (encoded, error) {
	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		return encoded{}, fmt.Errorf("decode image: %w", err)
	}

	bounds := img.Bounds()
	if bounds.Dx() > p.cfg.MaxEdge || bounds.Dy() > p.cfg.MaxEdge {
		img = imaging.Fit(img, p.cfg.MaxEdge, p.cfg.MaxEdge, imaging.Lanczos)
		bounds = img.Bounds()
	}

	var buf bytes.Buffer
	if err := webp.Encode(&buf, img, &webp.Options{Quality: float32(p.cfg.WebPQuality)}); err == nil {
		return encoded{
			data:     buf.Bytes(),
			mimeType: "image/webp",
			width:    bounds.Dx(),
			height:   bounds.Dy(),
		}, nil
	}

	buf.Reset()
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.cfg.JPEGQuality}); err != nil {
		return encoded{}, fmt.Errorf("encode jpeg fallback: %w", err)
	}
	return encoded{
		data:     buf.Bytes(),
		mimeType: "image/jpeg",
		width:    bounds.Dx(),
		height:   bounds.Dy(),
	}, nil
}

package imaging

import (
	"bytes"
	"image"
	"image/color"
	"image/draw"
	"image/jpeg"

	"github.com/shoplens/extractor/internal/product"
)

const (
	placeholderWidth  = 800
	placeholderHeight = 600
)

// placeholderAsset synthesizes a neutral stand-in graphic for products whose
// pages yielded no usable images. The asset is flagged so downstream
// consumers can distinguish it from real product media, and it attributes
// the product page itself as its source so every asset carries a non-empty
// SourceURL.
func (p *Pipeline) placeholderAsset(in Input) (product.ImageAsset, error) {
	img := image.NewRGBA(image.Rect(0, 0, placeholderWidth, placeholderHeight))

	bg := color.RGBA{R: 0xEC, G: 0xEE, B: 0xF1, A: 0xFF}
	draw.Draw(img, img.Bounds(), image.NewUniform(bg), image.Point{}, draw.Src)

	// Centered darker frame so the asset reads as intentional, not broken.
	frame := color.RGBA{R: 0xB8, G: 0xBE, B: 0xC8, A: 0xFF}
	inset := img.Bounds().Inset(placeholderWidth / 8)
	for x := inset.Min.X; x < inset.Max.X; x++ {
		img.Set(x, inset.Min.Y, frame)
		img.Set(x, inset.Max.Y-1, frame)
	}
	for y := inset.Min.Y; y < inset.Max.Y; y++ {
		img.Set(inset.Min.X, y, frame)
		img.Set(inset.Max.X-1, y, frame)
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: p.cfg.JPEGQuality}); err != nil {
		return product.ImageAsset{}, err
	}

	return product.ImageAsset{
		Data:        buf.Bytes(),
		MIMEType:    "image/jpeg",
		Width:       placeholderWidth,
		Height:      placeholderHeight,
		Alt:         placeholderAlt(in.Title),
		SourceURL:   placeholderSource(in.PageURL),
		Placeholder: true,
	}, nil
}

// bareAsset is the last-resort stand-in when even the placeholder graphic
// cannot be encoded. It has no pixel data but keeps the alt text and source
// attribution so a record never ends up with an empty image list.
func bareAsset(in Input) product.ImageAsset {
	return product.ImageAsset{
		MIMEType:    "image/jpeg",
		Alt:         placeholderAlt(in.Title),
		SourceURL:   placeholderSource(in.PageURL),
		Placeholder: true,
	}
}

func placeholderAlt(title string) string {
	if title != "" {
		return "No image available for " + title
	}
	return "No image available"
}

// placeholderSource attributes a placeholder to the product page it stands
// in for, upgraded to https so the value is stable across http/https fetches
// of the same page.
func placeholderSource(pageURL string) string {
	secure, err := product.ForceHTTPS(pageURL)
	if err != nil {
		return pageURL
	}
	return secure
}

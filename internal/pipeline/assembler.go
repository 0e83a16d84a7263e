package pipeline

import (
	"time"

	"github.com/shoplens/extractor/internal/normalize"
	"github.com/shoplens/extractor/internal/product"
)

// assemble builds the final record from the normalized page data and the
// processed image assets, derives the completeness status, and stamps the
// payload signature.
//
// Missing real media outranks a missing price: a record with a placeholder
// image is INCOMPLETE_MEDIA even when the price is also absent.
func assemble(norm normalize.Normalized, assets []product.ImageAsset, sourceURL, runID string, now time.Time) product.Record {
	record := product.Record{
		Title:           norm.Title,
		DescriptionHTML: norm.DescriptionHTML,
		Price:           norm.Price,
		Images:          assets,
		Attributes:      norm.Attributes,
		SourceURL:       sourceURL,
		ExtractedAt:     now.UTC(),
		RunID:           runID,
	}

	switch {
	case record.RealImageCount() == 0:
		record.Status = product.StatusIncompleteMedia
	case record.Price == nil:
		record.Status = product.StatusIncompletePrice
	default:
		record.Status = product.StatusComplete
	}

	record.PayloadSignature = product.Signature(record)
	return record
}

package service

import "errors"

var (
	// ErrPreviewNotFound covers unknown, expired and already submitted batches.
	ErrPreviewNotFound  = errors.New("preview not found or already submitted")
	ErrCatalogNotLoaded = errors.New("catalog is not loaded")
	ErrUnknownTable     = errors.New("unknown export table")
	ErrUnknownSKU       = errors.New("sku not found in catalog")
	ErrNoAdjuster       = errors.New("stock adjustments are not configured")
)

package models

import "errors"

// Custom errors
var (
	ErrNotFound         = errors.New("record not found")
	ErrEmptySeries      = errors.New("series is empty")
	ErrUnsortedSeries   = errors.New("series timestamps must be strictly increasing")
	ErrNonPositiveValue = errors.New("series values must be positive")
	ErrUnknownColumn    = errors.New("unknown column")
	ErrTickerRequired   = errors.New("ticker is required")
)

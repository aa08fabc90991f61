package domain

import "context"

// LineInfo describes a transit line from the TfL line data.
type LineInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LineService provides the canonical list of active transit lines. A failed
// fetch surfaces as an error wrapping ErrLineDataUnavailable; it must never
// be treated as "all lines valid".
type LineService interface {
	GetLines(ctx context.Context) ([]LineInfo, error)
}

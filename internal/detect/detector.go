// Package detect implements the photo matching pipeline: fetch a user's
// reference photos from blob storage under a concurrency cap, fingerprint
// them, and decide which registered cosmetic (if any) an uploaded capture
// matches.
package detect

import (
	"context"

	"github.com/viewlulu/pouch-backend/internal/catalog"
)

// Verdict is the outcome of one detection request.
type Verdict struct {
	// Matched reports whether a group scored within the acceptance threshold.
	Matched bool
	// GroupID is the matched group, empty when Matched is false.
	GroupID string
	// Score is the matched group's collapsed score.
	Score float64
	// Best is the best collapsed score seen when no group matched, for
	// observability. Nil when no candidate produced a usable score.
	Best *float64
}

// Detector decides which of a user's registered cosmetics an uploaded photo
// shows. Two implementations exist: the local Resolver, and the remote
// recognizer client that delegates the whole comparison to an external
// service. The choice is made once at startup.
type Detector interface {
	Detect(ctx context.Context, image []byte, candidates []catalog.Candidate) (Verdict, error)
}

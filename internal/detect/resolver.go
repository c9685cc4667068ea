package detect

import (
	"context"
	"fmt"
	"log"
	"sort"

	"github.com/viewlulu/pouch-backend/internal/catalog"
	"github.com/viewlulu/pouch-backend/internal/fingerprint"
)

// Collapse policies for combining a group's per-photo distances into one score.
const (
	// CollapseBestTwoAverage averages the two smallest distances when a
	// group has at least two usable photos, softening the score against a
	// single lucky or unlucky photo. Falls back to the lone distance.
	CollapseBestTwoAverage = "best-two-average"
	// CollapseBest takes the single smallest distance.
	CollapseBest = "best"
)

// DefaultThreshold is the default acceptance threshold: maximum collapsed
// score (bits of difference out of 64) still considered a match.
const DefaultThreshold = 18

// Policy is the configurable part of match resolution. The source app never
// converged on fixed values, so both knobs stay configuration.
type Policy struct {
	Threshold float64
	Collapse  string
}

// DefaultPolicy returns the reference policy: average of the two best
// distances, threshold 18.
func DefaultPolicy() Policy {
	return Policy{Threshold: DefaultThreshold, Collapse: CollapseBestTwoAverage}
}

// collapse combines per-photo distances into one group score. The second
// return value is false when the group produced no usable distance at all,
// in which case it must never be selectable.
func (p Policy) collapse(distances []int) (float64, bool) {
	if len(distances) == 0 {
		return 0, false
	}
	sorted := append([]int(nil), distances...)
	sort.Ints(sorted)
	if p.Collapse == CollapseBest || len(sorted) < 2 {
		return float64(sorted[0]), true
	}
	return float64(sorted[0]+sorted[1]) / 2, true
}

// Resolver is the local Detector: it fingerprints the uploaded capture and
// every fetchable reference photo, scores each candidate group, and applies
// the acceptance policy.
type Resolver struct {
	fetcher *Fetcher
	hasher  fingerprint.Hasher
	policy  Policy
}

// NewResolver creates a resolver.
func NewResolver(fetcher *Fetcher, hasher fingerprint.Hasher, policy Policy) *Resolver {
	return &Resolver{fetcher: fetcher, hasher: hasher, policy: policy}
}

// Detect implements Detector.
//
// The uploaded image is fingerprinted once; a decode failure there is fatal
// to the request and propagates as fingerprint.ErrDecode. All candidates'
// reference photos are fetched in a single bounded-concurrency wave, so
// total wall time is bounded by fetch rounds over the whole pool rather
// than by the number of groups. Individual fetch or decode failures only
// shrink a group's evidence; a group with no usable photo is excluded.
func (r *Resolver) Detect(ctx context.Context, image []byte, candidates []catalog.Candidate) (Verdict, error) {
	target, err := r.hasher.Compute(image)
	if err != nil {
		return Verdict{}, fmt.Errorf("fingerprint uploaded image: %w", err)
	}

	var allKeys []string
	for _, c := range candidates {
		allKeys = append(allKeys, c.StorageKeys...)
	}

	fetched, failures, err := r.fetcher.FetchMany(ctx, allKeys)
	if err != nil {
		return Verdict{}, err
	}
	// An expired context surfaces as per-key failures above, but whatever
	// did arrive before the deadline is partial evidence. An interrupted
	// request fails; it never produces a verdict.
	if err := ctx.Err(); err != nil {
		return Verdict{}, fmt.Errorf("detection interrupted: %w", err)
	}
	for key, ferr := range failures {
		log.Printf("detect: skipping reference photo %s: %v", key, ferr)
	}

	// Per-request accumulator; candidates arrive most recently created
	// first and a strict comparison keeps the earlier one on exact ties.
	var (
		bestGroup string
		bestScore float64
		haveBest  bool
	)

	for _, c := range candidates {
		var distances []int
		for _, key := range c.StorageKeys {
			data, ok := fetched[key]
			if !ok {
				continue
			}
			fp, err := r.hasher.Compute(data)
			if err != nil {
				log.Printf("detect: skipping undecodable reference photo %s: %v", key, err)
				continue
			}
			distances = append(distances, fingerprint.Distance(target, fp))
		}

		score, ok := r.policy.collapse(distances)
		if !ok {
			continue
		}
		if !haveBest || score < bestScore {
			bestGroup = c.GroupID
			bestScore = score
			haveBest = true
		}
	}

	if !haveBest {
		return Verdict{Matched: false}, nil
	}
	if bestScore > r.policy.Threshold {
		return Verdict{Matched: false, Best: &bestScore}, nil
	}
	return Verdict{Matched: true, GroupID: bestGroup, Score: bestScore}, nil
}

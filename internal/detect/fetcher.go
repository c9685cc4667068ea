package detect

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/viewlulu/pouch-backend/internal/storage"
)

// DefaultConcurrency is the default cap on simultaneous in-flight blob
// fetches for one detection request.
const DefaultConcurrency = 5

// Fetcher retrieves reference photo bytes from blob storage in one bounded
// fan-out wave per detection request. Fetched objects are staged in a
// per-batch temporary directory that is always removed before FetchMany
// returns, whatever the outcome.
type Fetcher struct {
	store       storage.ObjectGetter
	concurrency int
}

// NewFetcher creates a fetcher with the given concurrency cap.
func NewFetcher(store storage.ObjectGetter, concurrency int) *Fetcher {
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &Fetcher{store: store, concurrency: concurrency}
}

// fetchResult holds the outcome of one staged object fetch.
type fetchResult struct {
	key  string
	path string
	err  error
}

// FetchMany retrieves the given keys with at most the configured number of
// fetches in flight. Per-key failures (storage errors, empty bodies,
// cancellation) are collected in the returned error map and never abort
// sibling fetches; one bad object degrades precision, not availability.
// Duplicate keys are fetched once. The returned error is non-nil only for
// batch-level failures such as being unable to create the staging area.
func (f *Fetcher) FetchMany(ctx context.Context, keys []string) (map[string][]byte, map[string]error, error) {
	fetched := make(map[string][]byte)
	failures := make(map[string]error)
	if len(keys) == 0 {
		return fetched, failures, nil
	}

	unique := make([]string, 0, len(keys))
	seen := make(map[string]bool, len(keys))
	for _, key := range keys {
		if !seen[key] {
			seen[key] = true
			unique = append(unique, key)
		}
	}

	stagingDir, err := os.MkdirTemp("", "pouch-detect-*")
	if err != nil {
		return nil, nil, fmt.Errorf("create staging directory: %w", err)
	}
	// The staging area belongs to this batch alone and must disappear on
	// every exit path.
	defer os.RemoveAll(stagingDir)

	resultsChan := make(chan fetchResult, len(unique))
	semaphore := make(chan struct{}, f.concurrency)
	var wg sync.WaitGroup

	for _, key := range unique {
		wg.Add(1)
		go func(key string) {
			defer wg.Done()

			// Acquire semaphore
			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			if err := ctx.Err(); err != nil {
				resultsChan <- fetchResult{key: key, err: err}
				return
			}

			path, err := f.stageObject(ctx, stagingDir, key)
			resultsChan <- fetchResult{key: key, path: path, err: err}
		}(key)
	}

	// The aggregation step needs the whole wave, successes and failures
	// alike; this is a join barrier, not a race to first match.
	go func() {
		wg.Wait()
		close(resultsChan)
	}()

	for r := range resultsChan {
		if r.err != nil {
			failures[r.key] = r.err
			continue
		}
		data, err := os.ReadFile(r.path)
		if err != nil {
			failures[r.key] = fmt.Errorf("read staged object: %w", err)
			continue
		}
		fetched[r.key] = data
	}

	return fetched, failures, nil
}

// stageObject downloads one object into the staging directory and returns
// the staged file path.
func (f *Fetcher) stageObject(ctx context.Context, stagingDir, key string) (string, error) {
	data, err := f.store.GetObject(ctx, key)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", errors.New("empty object body")
	}

	path := filepath.Join(stagingDir, uuid.NewString())
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("stage object: %w", err)
	}
	return path, nil
}

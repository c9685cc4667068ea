// Package recognizer delegates detection to an external recognition
// service. It is the remote counterpart of the local resolver: the raw
// capture and the per-group storage key listing go over the wire and the
// service's verdict is relayed unchanged.
package recognizer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/viewlulu/pouch-backend/internal/catalog"
	"github.com/viewlulu/pouch-backend/internal/detect"
)

// searchPath is the group-search endpoint on the recognition service.
const searchPath = "/pouch/group-search"

// Client calls the external recognition service. It implements
// detect.Detector.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a recognizer client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// verdictResponse is the recognition service's JSON reply.
type verdictResponse struct {
	Matched         bool     `json:"matched"`
	DetectedGroupID string   `json:"detectedGroupId"`
	Score           *float64 `json:"score"`
}

// Detect implements detect.Detector by forwarding the capture and the
// candidate listing to the recognition service.
func (c *Client) Detect(ctx context.Context, image []byte, candidates []catalog.Candidate) (detect.Verdict, error) {
	groups := make(map[string][]string, len(candidates))
	for _, cand := range candidates {
		groups[cand.GroupID] = cand.StorageKeys
	}
	groupsJSON, err := json.Marshal(groups)
	if err != nil {
		return detect.Verdict{}, fmt.Errorf("marshal groups: %w", err)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	filePart, err := writer.CreateFormFile("file", "capture.jpg")
	if err != nil {
		return detect.Verdict{}, fmt.Errorf("create file part: %w", err)
	}
	if _, err := filePart.Write(image); err != nil {
		return detect.Verdict{}, fmt.Errorf("write file part: %w", err)
	}
	if err := writer.WriteField("groups", string(groupsJSON)); err != nil {
		return detect.Verdict{}, fmt.Errorf("write groups field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return detect.Verdict{}, fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+searchPath, &body)
	if err != nil {
		return detect.Verdict{}, fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return detect.Verdict{}, fmt.Errorf("could not send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return detect.Verdict{}, fmt.Errorf("recognition service returned status %d: %s",
			resp.StatusCode, readErrorBody(resp.Body))
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return detect.Verdict{}, fmt.Errorf("could not read response body: %w", err)
	}

	var result verdictResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return detect.Verdict{}, fmt.Errorf("could not unmarshal response: %w", err)
	}

	if !result.Matched {
		return detect.Verdict{Matched: false, Best: result.Score}, nil
	}
	verdict := detect.Verdict{Matched: true, GroupID: result.DetectedGroupID}
	if result.Score != nil {
		verdict.Score = *result.Score
	}
	return verdict, nil
}

// readErrorBody reads up to 1KB of an error response body for diagnostics.
func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 1024))
	if err != nil {
		return "<unreadable body>"
	}
	return strings.TrimSpace(string(body))
}

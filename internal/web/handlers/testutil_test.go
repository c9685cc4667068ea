package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/viewlulu/pouch-backend/internal/auth"
	"github.com/viewlulu/pouch-backend/internal/web/middleware"
)

// testIdentity is the authenticated caller used by handler tests.
func testIdentity() *auth.Identity {
	return &auth.Identity{UserID: 1, Email: "tester@example.com"}
}

// requestWithIdentity creates a request with an authenticated identity in context.
func requestWithIdentity(t *testing.T, method, path string, body io.Reader) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, body)
	ctx := middleware.SetIdentityInContext(req.Context(), testIdentity())
	return req.WithContext(ctx)
}

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// filePart is one file in a multipart test request.
type filePart struct {
	field    string
	filename string
	data     []byte
}

// multipartBody builds a multipart body with form fields and files, returning
// the body and its content type.
func multipartBody(t *testing.T, fields map[string]string, files []filePart) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	mw := multipart.NewWriter(body)
	for key, value := range fields {
		if err := mw.WriteField(key, value); err != nil {
			t.Fatalf("failed to write form field %s: %v", key, err)
		}
	}
	for _, f := range files {
		part, err := mw.CreateFormFile(f.field, f.filename)
		if err != nil {
			t.Fatalf("failed to create form file %s: %v", f.field, err)
		}
		if _, err := part.Write(f.data); err != nil {
			t.Fatalf("failed to write form file %s: %v", f.field, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("failed to close multipart writer: %v", err)
	}
	return body, mw.FormDataContentType()
}

// patternPNG encodes an 8x8 black and white image from a 64-bit pattern,
// row-major, true = white. Two 8x8 patterns keep a Hamming distance equal
// to the number of differing cells, which makes match scores predictable.
func patternPNG(t *testing.T, pattern [64]bool) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 8))
	for i, white := range pattern {
		c := color.Gray{Y: 0}
		if white {
			c = color.Gray{Y: 255}
		}
		img.SetGray(i%8, i/8, c)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("failed to encode test image: %v", err)
	}
	return buf.Bytes()
}

// halfPattern is a pattern with the top half white.
func halfPattern() [64]bool {
	var p [64]bool
	for i := 0; i < 32; i++ {
		p[i] = true
	}
	return p
}

// shiftedPattern flips n cells of halfPattern starting at cell 16.
func shiftedPattern(n int) [64]bool {
	p := halfPattern()
	for i := 16; i < 16+n; i++ {
		p[i] = !p[i]
	}
	return p
}

// parseJSONResponse parses a JSON response body into the target type.
func parseJSONResponse(t *testing.T, recorder *httptest.ResponseRecorder, target any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), target); err != nil {
		t.Fatalf("failed to parse JSON response: %v\nBody: %s", err, recorder.Body.String())
	}
}

// assertStatusCode checks if the response has the expected status code.
func assertStatusCode(t *testing.T, recorder *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if recorder.Code != expected {
		t.Errorf("expected status %d, got %d\nBody: %s", expected, recorder.Code, recorder.Body.String())
	}
}

// assertJSONError checks if the response is a JSON error with the expected message.
func assertJSONError(t *testing.T, recorder *httptest.ResponseRecorder, expectedMessage string) {
	t.Helper()
	var result map[string]string
	if err := json.Unmarshal(recorder.Body.Bytes(), &result); err != nil {
		t.Fatalf("failed to parse error response: %v\nBody: %s", err, recorder.Body.String())
	}
	if result["error"] != expectedMessage {
		t.Errorf("expected error '%s', got '%s'", expectedMessage, result["error"])
	}
}

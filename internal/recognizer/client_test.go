package recognizer

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/viewlulu/pouch-backend/internal/catalog"
)

func TestDetectForwardsCaptureAndGroups(t *testing.T) {
	var gotFile []byte
	var gotGroups map[string][]string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pouch/group-search" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if err := r.ParseMultipartForm(32 << 20); err != nil {
			t.Fatalf("parse multipart: %v", err)
		}

		file, _, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file field: %v", err)
		}
		defer file.Close()
		gotFile, _ = io.ReadAll(file)

		if err := json.Unmarshal([]byte(r.FormValue("groups")), &gotGroups); err != nil {
			t.Fatalf("groups field is not valid JSON: %v", err)
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"matched":         true,
			"detectedGroupId": "g42",
			"score":           3.5,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	verdict, err := client.Detect(context.Background(), []byte("image-bytes"), []catalog.Candidate{
		{GroupID: "g42", StorageKeys: []string{"k1", "k2"}},
		{GroupID: "g7", StorageKeys: []string{"k3"}},
	})
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if string(gotFile) != "image-bytes" {
		t.Errorf("service received file %q; want image-bytes", gotFile)
	}
	if len(gotGroups) != 2 || len(gotGroups["g42"]) != 2 || gotGroups["g7"][0] != "k3" {
		t.Errorf("service received groups %v", gotGroups)
	}

	if !verdict.Matched || verdict.GroupID != "g42" || verdict.Score != 3.5 {
		t.Errorf("verdict = %+v; want matched g42 with score 3.5", verdict)
	}
}

func TestDetectNotMatched(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"matched": false,
			"score":   21.0,
		})
	}))
	defer server.Close()

	client := NewClient(server.URL)
	verdict, err := client.Detect(context.Background(), []byte("image"), nil)
	if err != nil {
		t.Fatalf("Detect failed: %v", err)
	}

	if verdict.Matched {
		t.Error("verdict should not be matched")
	}
	if verdict.Best == nil || *verdict.Best != 21 {
		t.Errorf("best = %v; want 21 relayed from the service", verdict.Best)
	}
}

func TestDetectServiceError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model unavailable", http.StatusBadGateway)
	}))
	defer server.Close()

	client := NewClient(server.URL)
	if _, err := client.Detect(context.Background(), []byte("image"), nil); err == nil {
		t.Fatal("Detect should surface non-200 responses as errors")
	}
}

func TestDetectCancelledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	client := NewClient(server.URL)
	if _, err := client.Detect(ctx, []byte("image"), nil); err == nil {
		t.Fatal("Detect should fail when the request context is cancelled")
	}
}

package handlers

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/viewlulu/pouch-backend/internal/catalog"
	"github.com/viewlulu/pouch-backend/internal/detect"
	"github.com/viewlulu/pouch-backend/internal/fingerprint"
	"github.com/viewlulu/pouch-backend/internal/web/middleware"
)

// DetectHandler handles the detection endpoint. The detector is chosen at
// startup: the local fingerprint resolver or the remote recognizer client.
type DetectHandler struct {
	candidates catalog.CandidateSource
	detector   detect.Detector
	timeout    time.Duration
}

// NewDetectHandler creates a new detection handler. timeout is the
// end-to-end budget for one detection request.
func NewDetectHandler(candidates catalog.CandidateSource, detector detect.Detector, timeout time.Duration) *DetectHandler {
	return &DetectHandler{
		candidates: candidates,
		detector:   detector,
		timeout:    timeout,
	}
}

// detectResponse is the wire shape of a detection verdict. DetectedID and
// Score stay null when nothing matched and no score is available.
type detectResponse struct {
	DetectedID *string  `json:"detectedId"`
	Score      *float64 `json:"score"`
	Matched    bool     `json:"matched"`
}

// respondMessage sends an error body in the detect endpoint's shape.
func respondMessage(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"message": message})
}

// Detect handles POST /cosmetics/detect. It accepts one photo in the
// multipart field "photo" and reports which registered cosmetic it shows.
func (h *DetectHandler) Detect(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentityFromContext(r.Context())
	if identity == nil {
		respondMessage(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		respondMessage(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "photo file is required")
		return
	}
	defer file.Close()

	image, err := io.ReadAll(file)
	if err != nil {
		respondMessage(w, http.StatusBadRequest, "failed to read photo")
		return
	}
	if len(image) == 0 {
		respondMessage(w, http.StatusBadRequest, "empty photo upload")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	candidates, err := h.candidates.ListCandidates(ctx, identity.UserID)
	if err != nil {
		log.Printf("list candidates for user %d failed: %v", identity.UserID, err)
		respondMessage(w, http.StatusInternalServerError, "failed to load catalog")
		return
	}
	if len(candidates) == 0 {
		respondMessage(w, http.StatusNotFound, "no cosmetics registered")
		return
	}

	verdict, err := h.detector.Detect(ctx, image, candidates)
	if err != nil {
		if errors.Is(err, fingerprint.ErrDecode) {
			respondMessage(w, http.StatusBadRequest, "undecodable image")
			return
		}
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			log.Printf("detection for user %d timed out: %v", identity.UserID, err)
			respondMessage(w, http.StatusInternalServerError, "detection timed out")
			return
		}
		log.Printf("detection for user %d failed: %v", identity.UserID, err)
		respondMessage(w, http.StatusInternalServerError, "detection failed")
		return
	}

	resp := detectResponse{Matched: verdict.Matched}
	if verdict.Matched {
		resp.DetectedID = &verdict.GroupID
		score := verdict.Score
		resp.Score = &score
	} else if verdict.Best != nil {
		best := *verdict.Best
		resp.Score = &best
	}
	respondJSON(w, http.StatusOK, resp)
}

package main

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"menucritic/internal/config"
	"menucritic/internal/critique"
	"menucritic/internal/failure"
	"menucritic/internal/input"
	"menucritic/internal/pipeline"
)

// sessionCookie identifies the browser session for the cooldown limiter.
const sessionCookie = "menu_critic_session"

type server struct {
	cfg      *config.Config
	pipeline *pipeline.Pipeline
}

// analyzeRequest is the JSON body for text analyses.
type analyzeRequest struct {
	Mode    string `json:"mode"`
	Text    string `json:"text"`
	Goal    string `json:"goal,omitempty"`
	Context string `json:"context,omitempty"`
}

// handleAnalyze accepts either an application/json body with menu text or a
// multipart/form-data upload with a menu image, runs the pipeline, and
// renders the critique or the user-facing failure state.
func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "POST only")
		return
	}

	req, ok := s.decodeRequest(w, r)
	if !ok {
		return
	}
	req.SessionID = s.sessionID(w, r)

	result, state := s.pipeline.Analyze(r.Context(), req)
	if state != nil {
		s.renderFailure(w, state)
		return
	}

	if r.URL.Query().Get("download") == "1" {
		renderDownload(w, result)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// decodeRequest builds the AnalysisRequest from either supported body type.
// Returns ok=false after writing an error response.
func (s *server) decodeRequest(w http.ResponseWriter, r *http.Request) (*input.AnalysisRequest, bool) {
	contentType := r.Header.Get("Content-Type")

	if strings.HasPrefix(contentType, "multipart/form-data") {
		return s.decodeMultipart(w, r)
	}

	var body analyzeRequest
	// Text bodies are small; the cap just blocks abuse.
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return nil, false
	}

	return &input.AnalysisRequest{
		Mode:    critique.Mode(body.Mode),
		Kind:    input.KindText,
		Text:    body.Text,
		Goal:    body.Goal,
		Context: body.Context,
	}, true
}

func (s *server) decodeMultipart(w http.ResponseWriter, r *http.Request) (*input.AnalysisRequest, bool) {
	// Leave headroom over the image ceiling so the size check in the
	// preprocessor produces the proper failure category instead of a
	// blunt 413.
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxImageUploadBytes+(1<<20))
	if err := r.ParseMultipartForm(s.cfg.MaxImageUploadBytes + (1 << 20)); err != nil {
		httpError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return nil, false
	}

	req := &input.AnalysisRequest{
		Mode:    critique.Mode(r.FormValue("mode")),
		Goal:    r.FormValue("goal"),
		Context: r.FormValue("context"),
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		// No image part; fall back to a text field so forms can post
		// either input through the same endpoint.
		req.Kind = input.KindText
		req.Text = r.FormValue("text")
		return req, true
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		httpError(w, http.StatusBadRequest, "could not read upload")
		return nil, false
	}

	req.Kind = input.KindImage
	req.Image = data
	return req, true
}

// sessionID returns the session from the request cookie, assigning a new one
// when absent.
func (s *server) sessionID(w http.ResponseWriter, r *http.Request) string {
	if c, err := r.Cookie(sessionCookie); err == nil && c.Value != "" {
		return c.Value
	}

	id := uuid.NewString()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	log.Debug().Str("sessionId", id).Msg("Assigned new session")
	return id
}

func (s *server) renderFailure(w http.ResponseWriter, state *failure.UserFacingState) {
	status := statusForCategory(state.Category)
	if state.Category == failure.RateLimited && state.RetryAfterSeconds > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(state.RetryAfterSeconds))
	}
	respondJSON(w, status, state)
}

func statusForCategory(c failure.Category) int {
	switch c {
	case failure.RateLimited:
		return http.StatusTooManyRequests
	case failure.UpstreamUnavailable:
		return http.StatusServiceUnavailable
	case failure.ImageParseFailure:
		return http.StatusUnprocessableEntity
	case failure.InvalidResponseFormat, failure.SchemaValidationFailure:
		return http.StatusBadGateway
	}
	return http.StatusBadRequest
}

// renderDownload serves the critique as a pretty-printed JSON attachment.
func renderDownload(w http.ResponseWriter, result *critique.Result) {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		httpError(w, http.StatusInternalServerError, "could not serialize critique")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="menu-critique.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

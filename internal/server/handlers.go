package server

import (
	"encoding/json"
	"net/http"

	"github.com/devrev/langdetect/internal/errors"
	"github.com/devrev/langdetect/internal/middleware"
	"github.com/devrev/langdetect/internal/model"
	"github.com/devrev/langdetect/internal/service"
)

// jsonEscapeFactor bounds how much JSON escaping can grow query text
const jsonEscapeFactor = 6

// IdentifyRequest is the body of both identify routes
type IdentifyRequest struct {
	Text *string `json:"text"`
}

// IdentifyResponse answers POST /v1/identify
type IdentifyResponse struct {
	Language  model.Language `json:"language"`
	RequestID string         `json:"request_id,omitempty"`
}

// IdentifyAllResponse answers POST /v1/identify/all
type IdentifyAllResponse struct {
	Languages []model.LanguageDistance `json:"languages"`
	RequestID string                   `json:"request_id,omitempty"`
}

// LanguagesResponse answers GET /v1/languages
type LanguagesResponse struct {
	Languages []service.LanguageInfo `json:"languages"`
}

// Identify handles POST /v1/identify requests.
func (s *Server) Identify(w http.ResponseWriter, r *http.Request) {
	text, ok := s.decodeText(w, r)
	if !ok {
		return
	}

	lang, err := s.detector.Identify(r.Context(), text)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, IdentifyResponse{
		Language:  lang,
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

// IdentifyAll handles POST /v1/identify/all requests.
func (s *Server) IdentifyAll(w http.ResponseWriter, r *http.Request) {
	text, ok := s.decodeText(w, r)
	if !ok {
		return
	}

	ranking, err := s.detector.IdentifyAll(r.Context(), text)
	if err != nil {
		s.handleError(w, r, err)
		return
	}

	s.writeJSON(w, http.StatusOK, IdentifyAllResponse{
		Languages: ranking,
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

// Languages handles GET /v1/languages requests.
func (s *Server) Languages(w http.ResponseWriter, r *http.Request) {
	infos, err := s.detector.Languages()
	if err != nil {
		s.handleError(w, r, err)
		return
	}
	s.writeJSON(w, http.StatusOK, LanguagesResponse{Languages: infos})
}

// Training handles GET /v1/training requests.
func (s *Server) Training(w http.ResponseWriter, r *http.Request) {
	report, ok := s.detector.LastReport()
	if !ok {
		s.handleError(w, r, errors.NoTrainedLanguages())
		return
	}
	s.writeJSON(w, http.StatusOK, report)
}

// decodeText reads the query text from the request body. Oversized text is
// left for the detector's validator to reject.
func (s *Server) decodeText(w http.ResponseWriter, r *http.Request) (string, bool) {
	limit := int64(s.cfg.Detector.MaxQueryBytes)*jsonEscapeFactor + 1024
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	var req IdentifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeValidationError(w, r, "invalid request body: "+err.Error())
		return "", false
	}
	if req.Text == nil {
		s.writeValidationError(w, r, "text is required")
		return "", false
	}
	return *req.Text, true
}

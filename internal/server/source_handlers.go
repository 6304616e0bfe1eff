// internal/server/source_handlers.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"newsproof/internal/feed"
)

type sourceResponse struct {
	ID         int64  `json:"id"`
	URL        string `json:"url"`
	Title      string `json:"title"`
	Status     string `json:"status"`
	ErrorCount int    `json:"errorCount"`
	LastError  string `json:"lastError,omitempty"`
}

// handleSources manages the curated source list for admins.
func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listSources(w, r)
	case http.MethodPost:
		s.addSource(w, r)
	case http.MethodDelete:
		s.deleteSource(w, r)
	default:
		RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.GetSources(r.Context())
	if err != nil {
		s.logger.Printf("Error listing sources: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "error listing sources")
		return
	}

	resp := make([]sourceResponse, 0, len(sources))
	for _, src := range sources {
		resp = append(resp, sourceResponse{
			ID:         src.ID,
			URL:        src.URL,
			Title:      src.Title,
			Status:     src.Status,
			ErrorCount: src.ErrorCount,
			LastError:  src.LastError,
		})
	}
	RespondWithJSON(w, http.StatusOK, resp)
}

func (s *Server) addSource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		RespondWithError(w, http.StatusBadRequest, "url is required")
		return
	}

	id, err := s.feedService.AddSource(req.URL)
	if err != nil {
		s.logger.Printf("Error adding source %s: %v", req.URL, err)
		if errors.Is(err, feed.ErrInvalidURL) || errors.Is(err, feed.ErrNotAFeed) || errors.Is(err, feed.ErrTimeout) {
			RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		RespondWithError(w, http.StatusInternalServerError, "error adding source")
		return
	}
	RespondWithJSON(w, http.StatusCreated, map[string]int64{"id": id})
}

func (s *Server) deleteSource(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID int64 `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.ID == 0 {
		RespondWithError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := s.feedService.DeleteSource(req.ID); err != nil {
		s.logger.Printf("Error deleting source %d: %v", req.ID, err)
		RespondWithError(w, http.StatusInternalServerError, "error deleting source")
		return
	}
	RespondWithJSON(w, http.StatusOK, map[string]string{"message": "source deleted"})
}

// handleSourceValidation previews a candidate feed URL without registering
// it.
func (s *Server) handleSourceValidation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.URL == "" {
		RespondWithError(w, http.StatusBadRequest, "url is required")
		return
	}

	result, err := feed.ValidateSourceURL(req.URL)
	if err != nil {
		RespondWithError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	RespondWithJSON(w, http.StatusOK, result)
}

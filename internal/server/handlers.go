// internal/server/handlers.go
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"newsproof/internal/database"
	"newsproof/internal/newsapi"
	"newsproof/internal/submission"
	"newsproof/internal/verify"
)

// customEntryLimit caps how many curated entries one feed request serves.
const customEntryLimit = 100

// handleDB serves the unseen browsing backlog and records seen state.
func (s *Server) handleDB(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.getUnseenNews(w, r)
	case http.MethodPost:
		s.updateSeen(w, r)
	default:
		RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) getUnseenNews(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	news, err := s.db.GetUnseenNews(ctx)
	if err != nil {
		s.logger.Printf("Error fetching unseen news: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "error fetching news")
		return
	}
	count, err := s.db.CountUnseenNews(ctx)
	if err != nil {
		s.logger.Printf("Error counting unseen news: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "error fetching news")
		return
	}

	RespondWithJSON(w, http.StatusOK, struct {
		Count int                   `json:"count"`
		News  []database.NewsRecord `json:"news"`
	}{Count: count, News: news})
}

func (s *Server) updateSeen(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID      string `json:"id"`
		HasSeen bool   `json:"hasSeen"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	err := s.db.SetSeen(r.Context(), req.ID, req.HasSeen)
	switch {
	case errors.Is(err, database.ErrInvalidInput):
		RespondWithError(w, http.StatusBadRequest, "id is required")
	case errors.Is(err, database.ErrNotFound):
		RespondWithError(w, http.StatusNotFound, "news record not found")
	case err != nil:
		s.logger.Printf("Error updating seen state for %s: %v", req.ID, err)
		RespondWithError(w, http.StatusInternalServerError, "error updating seen state")
	default:
		RespondWithJSON(w, http.StatusOK, map[string]string{"message": "seen updated"})
	}
}

// handleNews serves the categorized browsing feed. The "custom" category is
// served from locally aggregated source entries; everything else goes
// upstream.
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	var category, country string

	switch r.Method {
	case http.MethodGet:
		category = r.URL.Query().Get("category")
		country = r.URL.Query().Get("country")
	case http.MethodPost:
		var req struct {
			Category string `json:"category"`
			Country  string `json:"country"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			RespondWithError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		category = req.Category
		country = req.Country
	default:
		RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if category == "custom" {
		s.getCustomNews(w, r)
		return
	}

	items := s.news.Fetch(r.Context(), category, country)
	RespondWithJSON(w, http.StatusOK, items)
}

func (s *Server) getCustomNews(w http.ResponseWriter, r *http.Request) {
	entries, err := s.db.GetRecentSourceEntries(r.Context(), customEntryLimit)
	if err != nil {
		s.logger.Printf("Error fetching source entries: %v", err)
		// Same degradation contract as the upstream feed.
		RespondWithJSON(w, http.StatusOK, []newsapi.Item{})
		return
	}

	items := make([]newsapi.Item, 0, len(entries))
	for _, entry := range entries {
		items = append(items, newsapi.Item{
			Title:       entry.Title,
			Description: entry.Summary,
			ImageURL:    entry.ImageURL,
			Source:      entry.SourceTitle,
			PublishedAt: entry.PublishedAt.UTC().Format(time.RFC3339),
			URL:         entry.URL,
		})
	}
	RespondWithJSON(w, http.StatusOK, items)
}

// verifyResponse is the oracle verdict plus the derived score and the gate
// decision, so the client learns acceptance in one round trip.
type verifyResponse struct {
	ConfidenceScore float64  `json:"confidenceScore"`
	IsVerified      bool     `json:"isVerified"`
	MatchingDetails []string `json:"matchingDetails"`
	Discrepancies   []string `json:"discrepancies"`
	Score           int      `json:"score"`
	Accepted        bool     `json:"accepted"`
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		SourceURL   string `json:"sourceUrl"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" ||
		strings.TrimSpace(req.Description) == "" ||
		strings.TrimSpace(req.SourceURL) == "" {
		RespondWithError(w, http.StatusBadRequest, "title, description and sourceUrl are required")
		return
	}

	result, err := s.verifier.Verify(r.Context(), req.Title, req.Description, req.SourceURL)
	if err != nil {
		s.logger.Printf("Verification failed: %v", err)
		if errors.Is(err, verify.ErrMalformedResponse) {
			RespondWithError(w, http.StatusBadGateway, "verification service returned an unusable response")
			return
		}
		RespondWithError(w, http.StatusBadGateway, "verification service unavailable")
		return
	}

	score := submission.DeriveScore(result.ConfidenceScore)
	RespondWithJSON(w, http.StatusOK, verifyResponse{
		ConfidenceScore: result.ConfidenceScore,
		IsVerified:      result.IsVerified,
		MatchingDetails: result.MatchingDetails,
		Discrepancies:   result.Discrepancies,
		Score:           score,
		Accepted:        submission.Accept(score),
	})
}

func (s *Server) handleSubmit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Title           string `json:"title"`
		Summary         string `json:"summary"`
		ConfidenceScore int    `json:"confidenceScore"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		RespondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Title) == "" || strings.TrimSpace(req.Summary) == "" {
		RespondWithError(w, http.StatusBadRequest, "title and summary are required")
		return
	}

	if !submission.Accept(req.ConfidenceScore) {
		RespondWithError(w, http.StatusUnprocessableEntity, "confidence score below submission threshold")
		return
	}

	id, err := s.db.CreateNews(r.Context(), req.Title, req.Summary, req.ConfidenceScore)
	if err != nil {
		s.logger.Printf("Error persisting news: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "error saving news")
		return
	}

	RespondWithJSON(w, http.StatusOK, map[string]string{"id": id})
}

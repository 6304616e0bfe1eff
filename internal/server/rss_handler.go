// internal/server/rss_handler.go
package server

import (
	"fmt"
	"net/http"
	"time"

	"newsproof/internal/rss"
)

// rssItemLimit caps how many records the published feed carries.
const rssItemLimit = 50

// handleRSS publishes the verified news records as an RSS 2.0 feed.
func (s *Server) handleRSS(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		RespondWithError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	records, err := s.db.GetRecentNews(r.Context(), rssItemLimit)
	if err != nil {
		s.logger.Printf("Error loading news for RSS feed: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "error building feed")
		return
	}

	items := make([]rss.Item, 0, len(records))
	for _, rec := range records {
		items = append(items, rss.Item{
			Title:       rec.Title,
			Description: fmt.Sprintf("%s (confidence %d)", rec.Summary, rec.ConfidenceScore),
			PubDate:     rec.CreatedAt.UTC().Format(time.RFC1123Z),
			GUID:        rec.ID,
		})
	}

	feed := rss.NewFeed("Newsproof", "/", "Verified news submissions", items)
	body, err := feed.Marshal()
	if err != nil {
		s.logger.Printf("Error marshaling RSS feed: %v", err)
		RespondWithError(w, http.StatusInternalServerError, "error building feed")
		return
	}

	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// internal/newsapi/client.go
// Client for the external news aggregation API (NewsAPI).
package newsapi

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"
)

const (
	defaultBaseURL = "https://newsapi.org/v2"

	// Fixed full-text query for the "ai" category.
	aiQuery = "artificial intelligence OR machine learning"
)

// Item is the normalized article shape served to the browsing feed. JSON
// field names match what the swipe UI consumes.
type Item struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	ImageURL    string `json:"urlToImage,omitempty"`
	Source      string `json:"source"`
	PublishedAt string `json:"publishedAt"`
	URL         string `json:"url"`
	HasSeen     bool   `json:"hasSeen"`
}

// article is the upstream boundary shape. Fields absent upstream stay
// empty rather than failing the decode.
type article struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

type apiResponse struct {
	Status   string    `json:"status"`
	Articles []article `json:"articles"`
}

// Client fetches categorized headlines. The zero BaseURL targets the real
// service; tests point it at a mock server.
type Client struct {
	BaseURL string

	apiKey string
	logger *log.Logger
	client *http.Client
}

// NewClient creates a reusable client. The API key is required
// configuration, validated at startup.
func NewClient(apiKey string, logger *log.Logger) *Client {
	return &Client{
		BaseURL: defaultBaseURL,
		apiKey:  apiKey,
		logger:  logger,
		client:  &http.Client{Timeout: 15 * time.Second},
	}
}

// Fetch returns normalized articles for a category. It never fails: any
// upstream problem is logged and degrades to an empty slice, since the
// browsing feed is a non-critical read path.
func (c *Client) Fetch(ctx context.Context, category, country string) []Item {
	items, err := c.fetch(ctx, category, country)
	if err != nil {
		c.logger.Printf("Error fetching %s news: %v", category, err)
		return []Item{}
	}
	return items
}

func (c *Client) fetch(ctx context.Context, category, country string) ([]Item, error) {
	if category == "" {
		category = "technology"
	}
	if country == "" {
		country = "us"
	}

	endpoint := c.BaseURL + "/top-headlines"
	params := url.Values{}
	params.Set("apiKey", c.apiKey)

	switch category {
	case "technology", "business":
		params.Set("category", category)
		params.Set("country", country)
	case "ai":
		// Full-text search sorted by publish time; country does not apply.
		endpoint = c.BaseURL + "/everything"
		params.Set("q", aiQuery)
		params.Set("sortBy", "publishedAt")
	case "india":
		params.Set("country", "in")
	default:
		params.Set("category", category)
		params.Set("country", country)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}

	var decoded apiResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	items := make([]Item, 0, len(decoded.Articles))
	for _, a := range decoded.Articles {
		items = append(items, Item{
			Title:       a.Title,
			Description: a.Description,
			ImageURL:    a.URLToImage,
			Source:      a.Source.Name,
			PublishedAt: a.PublishedAt,
			URL:         a.URL,
			HasSeen:     false,
		})
	}
	return items, nil
}

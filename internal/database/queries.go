// internal/database/queries.go
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Error definitions
var (
	ErrNotFound     = errors.New("record not found")
	ErrInvalidInput = errors.New("invalid input")
)

// PlaceholderAuthor is stored on every record until identity propagation
// from the auth layer is wired in.
// TODO: thread the authenticated user through CreateNews instead.
const PlaceholderAuthor = "fetch from middleware"

// NewsRecord is a persisted, gate-accepted news submission.
type NewsRecord struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	Summary         string    `json:"summary"`
	Author          string    `json:"author"`
	ConfidenceScore int       `json:"confidence_score"`
	HasMinted       bool      `json:"has_minted"`
	HasSeen         bool      `json:"has_seen"`
	CreatedAt       time.Time `json:"-"`
}

// Source represents a curated feed subscription
type Source struct {
	ID           int64
	URL          string
	Title        string
	Status       string
	ErrorCount   int
	LastError    string
	LastFetched  time.Time
	LastModified string
	ETag         string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// SourceEntry is an article pulled from a curated source.
type SourceEntry struct {
	ID          int64
	SourceID    int64
	Title       string
	URL         string
	Summary     string
	GUID        string
	ImageURL    string
	PublishedAt time.Time
	SourceTitle string // Joined from sources table
}

// CreateNews inserts a new record and returns its generated id. The caller
// is responsible for having run the submission gate; no threshold is
// enforced here.
func (db *DB) CreateNews(ctx context.Context, title, summary string, confidenceScore int) (string, error) {
	id := uuid.NewString()
	_, err := db.ExecContext(ctx,
		`INSERT INTO news (id, title, summary, author, confidence_score, has_minted, has_seen)
		VALUES (?, ?, ?, ?, ?, 0, 0)`,
		id, title, summary, PlaceholderAuthor, confidenceScore,
	)
	if err != nil {
		return "", fmt.Errorf("error inserting news record: %w", err)
	}
	return id, nil
}

// GetUnseenNews returns all records the user has not dismissed yet, newest
// first.
func (db *DB) GetUnseenNews(ctx context.Context) ([]NewsRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, title, summary, author, confidence_score, has_minted, has_seen
		FROM news
		WHERE has_seen = 0
		ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	news := make([]NewsRecord, 0)
	for rows.Next() {
		var n NewsRecord
		err := rows.Scan(
			&n.ID, &n.Title, &n.Summary, &n.Author,
			&n.ConfidenceScore, &n.HasMinted, &n.HasSeen,
		)
		if err != nil {
			return nil, err
		}
		news = append(news, n)
	}

	return news, rows.Err()
}

// CountUnseenNews returns how many records have has_seen = 0.
func (db *DB) CountUnseenNews(ctx context.Context) (int, error) {
	var count int
	err := db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM news WHERE has_seen = 0",
	).Scan(&count)
	return count, err
}

// SetSeen updates a record's seen flag. Repeated calls with the same
// arguments converge on the same stored state; last write wins between
// concurrent callers.
func (db *DB) SetSeen(ctx context.Context, id string, seen bool) error {
	if id == "" {
		return ErrInvalidInput
	}
	result, err := db.ExecContext(ctx,
		"UPDATE news SET has_seen = ? WHERE id = ?",
		seen, id,
	)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}

// GetNews retrieves a single record by id.
func (db *DB) GetNews(ctx context.Context, id string) (*NewsRecord, error) {
	var n NewsRecord
	err := db.QueryRowContext(ctx,
		`SELECT id, title, summary, author, confidence_score, has_minted, has_seen
		FROM news WHERE id = ?`,
		id,
	).Scan(&n.ID, &n.Title, &n.Summary, &n.Author, &n.ConfidenceScore, &n.HasMinted, &n.HasSeen)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

// GetRecentNews returns the newest persisted records regardless of seen
// state, for the published feed.
func (db *DB) GetRecentNews(ctx context.Context, limit int) ([]NewsRecord, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, title, summary, author, confidence_score, has_minted, has_seen, created_at
		FROM news
		ORDER BY created_at DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("error querying news: %w", err)
	}
	defer rows.Close()

	news := make([]NewsRecord, 0)
	for rows.Next() {
		var n NewsRecord
		if err := rows.Scan(&n.ID, &n.Title, &n.Summary, &n.Author, &n.ConfidenceScore, &n.HasMinted, &n.HasSeen, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("error scanning news record: %w", err)
		}
		news = append(news, n)
	}
	return news, rows.Err()
}

// GetSources retrieves all curated sources
func (db *DB) GetSources(ctx context.Context) ([]Source, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT id, url, COALESCE(title, ''), status, error_count,
		        COALESCE(last_error, ''), COALESCE(last_modified, ''), COALESCE(etag, '')
		FROM sources
		ORDER BY title`,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var s Source
		err := rows.Scan(
			&s.ID, &s.URL, &s.Title, &s.Status, &s.ErrorCount,
			&s.LastError, &s.LastModified, &s.ETag,
		)
		if err != nil {
			return nil, err
		}
		sources = append(sources, s)
	}

	return sources, rows.Err()
}

// UpdateSourceStatus updates a source's status and error information
func (db *DB) UpdateSourceStatus(ctx context.Context, sourceID int64, status string, errMsg string) error {
	_, err := db.ExecContext(ctx,
		`UPDATE sources SET
		status = ?,
		error_count = CASE
			WHEN ? = 'error' THEN error_count + 1
			ELSE 0
		END,
		last_error = CASE
			WHEN ? = 'error' THEN ?
			ELSE NULL
		END,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		status, status, status, errMsg, sourceID,
	)
	return err
}

// GetRecentSourceEntries returns the latest entries across all active
// sources for the browsing feed.
func (db *DB) GetRecentSourceEntries(ctx context.Context, limit int) ([]SourceEntry, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT e.id, e.source_id, e.title, e.url, COALESCE(e.summary, ''),
		        COALESCE(e.guid, ''), COALESCE(e.image_url, ''), e.published_at,
		        COALESCE(s.title, '') as source_title
		FROM source_entries e
		JOIN sources s ON e.source_id = s.id
		WHERE s.status != 'deleted'
		ORDER BY e.published_at DESC
		LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []SourceEntry
	for rows.Next() {
		var e SourceEntry
		err := rows.Scan(
			&e.ID, &e.SourceID, &e.Title, &e.URL, &e.Summary,
			&e.GUID, &e.ImageURL, &e.PublishedAt, &e.SourceTitle,
		)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// CleanupOldEntries removes source entries beyond the per-source retention
// limit.
func (db *DB) CleanupOldEntries(ctx context.Context, maxEntries int) error {
	_, err := db.ExecContext(ctx,
		`DELETE FROM source_entries
		WHERE id IN (
			SELECT e.id
			FROM source_entries e
			JOIN sources s ON e.source_id = s.id
			WHERE e.id NOT IN (
				SELECT e2.id
				FROM source_entries e2
				WHERE e2.source_id = s.id
				ORDER BY published_at DESC
				LIMIT ?
			)
		)`,
		maxEntries,
	)
	return err
}

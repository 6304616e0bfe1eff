// internal/feed/service.go
package feed

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"
)

// Service owns the curated-source refresh loop and source registration.
type Service struct {
	db       *sql.DB
	logger   *log.Logger
	fetcher  *Fetcher
	interval time.Duration
	done     chan struct{}
}

func NewService(db *sql.DB, logger *log.Logger, interval time.Duration, maxEntries int) *Service {
	if interval < time.Minute {
		interval = time.Minute
	}
	s := &Service{
		db:       db,
		logger:   logger,
		interval: interval,
		done:     make(chan struct{}),
	}
	s.fetcher = NewFetcher(db, logger, maxEntries)
	return s
}

func (s *Service) Start() {
	go s.updateLoop()
}

func (s *Service) Stop() {
	close(s.done)
}

func (s *Service) updateLoop() {
	s.logger.Printf("Starting source refresh loop (interval %v)", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.UpdateSources(context.Background()); err != nil {
				s.logger.Printf("Scheduled source update failed: %v", err)
			}
		case <-s.done:
			s.logger.Printf("Source refresh loop shutting down")
			return
		}
	}
}

func (s *Service) UpdateSources(ctx context.Context) error {
	return s.fetcher.UpdateSources(ctx)
}

// AddSource validates and registers a new source, then fetches it once so
// its entries show up without waiting for the next refresh tick.
func (s *Service) AddSource(url string) (int64, error) {
	validationResult, err := ValidateSourceURL(url)
	if err != nil {
		return 0, fmt.Errorf("source validation failed: %w", err)
	}

	result, err := s.db.Exec(
		"INSERT INTO sources (url, title) VALUES (?, ?)",
		url, validationResult.Title,
	)
	if err != nil {
		return 0, err
	}

	sourceID, err := result.LastInsertId()
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	src := Source{
		ID:    sourceID,
		URL:   url,
		Title: validationResult.Title,
	}

	fetchResult := s.fetcher.fetchSource(ctx, src)
	if fetchResult.Error != nil {
		// Registration stands even when the initial fetch fails.
		s.logger.Printf("Error fetching new source %s: %v", url, fetchResult.Error)
		return sourceID, nil
	}

	if err := s.fetcher.saveEntries(ctx, fetchResult); err != nil {
		s.logger.Printf("Error saving entries for new source %s: %v", url, err)
	}
	return sourceID, nil
}

func (s *Service) DeleteSource(id int64) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	// Delete entries first
	_, err = tx.Exec("DELETE FROM source_entries WHERE source_id = ?", id)
	if err != nil {
		return err
	}

	_, err = tx.Exec("DELETE FROM sources WHERE id = ?", id)
	if err != nil {
		return err
	}

	return tx.Commit()
}

// internal/feed/fetcher.go
package feed

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"runtime"
	"strings"
	"sync"
	"time"

	securitynet "newsproof/internal/security/netutil"

	"github.com/mmcdole/gofeed"
)

// summaryLength caps how much stripped description text is kept per entry.
const summaryLength = 500

type Fetcher struct {
	db         *sql.DB
	logger     *log.Logger
	parser     *gofeed.Parser
	client     *http.Client
	cache      *sync.Map
	maxEntries int
}

func NewFetcher(db *sql.DB, logger *log.Logger, maxEntries int) *Fetcher {
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 10 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		ResponseHeaderTimeout: 10 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	if maxEntries < 1 {
		maxEntries = 100
	}
	return &Fetcher{
		db:     db,
		logger: logger,
		parser: gofeed.NewParser(),
		client: &http.Client{Timeout: 30 * time.Second, Transport: transport, CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("stopped after 5 redirects")
			}
			return nil
		}},
		cache:      &sync.Map{},
		maxEntries: maxEntries,
	}
}

// formattedTimestamp returns the current time formatted for database storage
func (f *Fetcher) formattedTimestamp() string {
	return time.Now().UTC().Format("2006-01-02 15:04:05")
}

// formatTimestamp formats a given time for database storage
func (f *Fetcher) formatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}

type cacheEntry struct {
	lastModified string
	etag         string
	timestamp    time.Time
}

func (f *Fetcher) UpdateSources(ctx context.Context) error {
	f.logger.Printf("Starting source update...")

	rows, err := f.db.QueryContext(ctx, "SELECT id, url, COALESCE(title, '') FROM sources WHERE status != 'deleted'")
	if err != nil {
		return fmt.Errorf("error querying sources: %w", err)
	}
	defer rows.Close()

	var sources []Source
	for rows.Next() {
		var src Source
		if err := rows.Scan(&src.ID, &src.URL, &src.Title); err != nil {
			f.logger.Printf("Error scanning source: %v", err)
			continue
		}
		sources = append(sources, src)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating sources: %w", err)
	}

	f.logger.Printf("Found %d sources to update", len(sources))

	results := make(chan FetchResult, len(sources))
	var wg sync.WaitGroup

	// Concurrency limiter tuned to an IO-bound workload.
	concurrency := runtime.NumCPU() * 4
	if concurrency < 4 {
		concurrency = 4
	}
	if concurrency > 32 {
		concurrency = 32
	}
	sem := make(chan struct{}, concurrency)

	for _, src := range sources {
		wg.Add(1)
		sem <- struct{}{}
		go func(src Source) {
			defer wg.Done()
			defer func() { <-sem }()
			result := f.fetchSource(ctx, src)
			if result.Error != nil {
				f.logger.Printf("Error fetching source %s: %v", src.URL, result.Error)
			} else {
				f.logger.Printf("Fetched %d entries from %s", len(result.Entries), src.URL)
			}
			results <- result
		}(src)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for result := range results {
		if result.Error != nil {
			if err := f.markSourceError(ctx, result.Source.ID, result.Error); err != nil {
				f.logger.Printf("Error recording failure for source %s: %v", result.Source.URL, err)
			}
			continue
		}

		if err := f.saveEntries(ctx, result); err != nil {
			f.logger.Printf("Error saving entries for source %s: %v", result.Source.URL, err)
		}
	}

	f.logger.Printf("Source update completed")
	return nil
}

func (f *Fetcher) fetchSource(ctx context.Context, src Source) FetchResult {
	result := FetchResult{Source: src}

	cacheKey := fmt.Sprintf("source_%d", src.ID)
	cached, exists := f.cache.Load(cacheKey)

	req, err := http.NewRequestWithContext(ctx, "GET", src.URL, nil)
	if err != nil {
		result.Error = fmt.Errorf("error creating request: %w", err)
		return result
	}

	req.Header.Set("User-Agent", "Newsproof/0.1")

	// Conditional GET from the in-memory cache, falling back to validators
	// persisted on the source row.
	var condLastMod, condETag string
	if exists {
		entry := cached.(cacheEntry)
		condLastMod = entry.lastModified
		condETag = entry.etag
	} else {
		var dbLastMod, dbETag sql.NullString
		if err := f.db.QueryRowContext(ctx, "SELECT last_modified, etag FROM sources WHERE id = ?", src.ID).Scan(&dbLastMod, &dbETag); err == nil {
			if dbLastMod.Valid {
				condLastMod = strings.TrimSpace(dbLastMod.String)
			}
			if dbETag.Valid {
				condETag = strings.TrimSpace(dbETag.String)
			}
		}
	}
	if condLastMod != "" {
		req.Header.Set("If-Modified-Since", condLastMod)
	}
	if condETag != "" {
		req.Header.Set("If-None-Match", condETag)
	}

	// Resolve host and block private/reserved ranges (allow loopback for tests)
	if host := req.URL.Hostname(); host != "" {
		if ip := net.ParseIP(host); ip != nil {
			if securitynet.IsPrivateIP(ip) && !ip.IsLoopback() {
				result.Error = fmt.Errorf("destination resolves to private/reserved address")
				return result
			}
		} else {
			if addrs, err := net.LookupIP(host); err == nil {
				for _, a := range addrs {
					if securitynet.IsPrivateIP(a) && !a.IsLoopback() {
						result.Error = fmt.Errorf("destination resolves to private/reserved address")
						return result
					}
				}
			}
		}
	}

	resp, err := f.client.Do(req)
	if err != nil {
		result.Error = fmt.Errorf("error fetching source: %w", err)
		return result
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 400 && resp.StatusCode != http.StatusNotModified) {
		result.Error = fmt.Errorf("unexpected response status %d", resp.StatusCode)
		return result
	}

	// Handle 304 Not Modified
	if resp.StatusCode == http.StatusNotModified {
		lm := resp.Header.Get("Last-Modified")
		if lm == "" {
			lm = condLastMod
		}
		et := resp.Header.Get("ETag")
		if et == "" {
			et = condETag
		}
		result.LastModified = lm
		result.ETag = et
		f.cache.Store(cacheKey, cacheEntry{lastModified: lm, etag: et, timestamp: time.Now()})
		return result
	}

	f.cache.Store(cacheKey, cacheEntry{
		lastModified: resp.Header.Get("Last-Modified"),
		etag:         resp.Header.Get("ETag"),
		timestamp:    time.Now(),
	})

	result.LastModified = resp.Header.Get("Last-Modified")
	result.ETag = resp.Header.Get("ETag")

	// Parse with a size limit (5MB) to avoid huge downloads.
	const maxFeedBytes = 5 << 20
	limited := io.LimitReader(resp.Body, maxFeedBytes)
	parsed, err := f.parser.Parse(limited)
	if err != nil {
		result.Error = fmt.Errorf("error parsing feed: %w", err)
		return result
	}
	if parsed == nil {
		result.Error = fmt.Errorf("error parsing feed: empty document")
		return result
	}

	result.SourceTitle = parsed.Title

	// Skip entries already older than what we have stored.
	var latestTimestampStr sql.NullString
	err = f.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(published_at), '') FROM source_entries WHERE source_id = ?`,
		src.ID,
	).Scan(&latestTimestampStr)

	var latestTimestamp time.Time
	if err != nil && err != sql.ErrNoRows {
		f.logger.Printf("Warning: error getting latest timestamp for source %s: %v", src.URL, err)
	} else if latestTimestampStr.Valid && latestTimestampStr.String != "" {
		latestTimestamp, err = time.Parse("2006-01-02 15:04:05", latestTimestampStr.String)
		if err != nil {
			f.logger.Printf("Warning: error parsing timestamp %s for source %s: %v",
				latestTimestampStr.String, src.URL, err)
		}
	}

	entries := make([]Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		pubDate := item.PublishedParsed
		if pubDate == nil {
			pubDate = item.UpdatedParsed
		}
		if pubDate == nil {
			now := time.Now()
			pubDate = &now
		}

		if !latestTimestamp.IsZero() && pubDate.Before(latestTimestamp) {
			continue
		}

		var imageURL string
		if item.Image != nil {
			imageURL = item.Image.URL
		}

		entries = append(entries, Entry{
			SourceID:    src.ID,
			Title:       item.Title,
			URL:         item.Link,
			Summary:     truncate(stripHTML(item.Description), summaryLength),
			GUID:        item.GUID,
			ImageURL:    imageURL,
			PublishedAt: *pubDate,
		})
	}

	result.Entries = entries
	return result
}

func (f *Fetcher) markSourceError(ctx context.Context, sourceID int64, fetchErr error) error {
	_, err := f.db.ExecContext(ctx,
		`UPDATE sources SET
		status = 'error',
		error_count = error_count + 1,
		last_error = ?,
		updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		fetchErr.Error(), sourceID,
	)
	return err
}

func (f *Fetcher) saveEntries(ctx context.Context, result FetchResult) error {
	if len(result.Entries) == 0 {
		// Record the successful fetch and any new validator headers even
		// when nothing new arrived.
		_, err := f.db.ExecContext(ctx,
			`UPDATE sources SET
			status = 'active', error_count = 0, last_error = NULL,
			last_fetched = DATETIME(?),
			last_modified = COALESCE(NULLIF(?, ''), last_modified),
			etag = COALESCE(NULLIF(?, ''), etag),
			title = COALESCE(NULLIF(?, ''), title),
			updated_at = CURRENT_TIMESTAMP
			WHERE id = ?`,
			f.formattedTimestamp(), result.LastModified, result.ETag, result.SourceTitle, result.Source.ID,
		)
		return err
	}

	tx, err := f.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`UPDATE sources SET
		status = 'active', error_count = 0, last_error = NULL,
		last_fetched = DATETIME(?),
		last_modified = COALESCE(NULLIF(?, ''), last_modified),
		etag = COALESCE(NULLIF(?, ''), etag),
		title = COALESCE(NULLIF(?, ''), title),
		updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		f.formattedTimestamp(), result.LastModified, result.ETag, result.SourceTitle, result.Source.ID,
	)
	if err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, `
    INSERT INTO source_entries (
        source_id, title, url, summary, guid,
        image_url, published_at
    )
    VALUES (?, ?, ?, ?, ?, ?, ?)
    ON CONFLICT(url) DO UPDATE SET
        title = excluded.title,
        summary = excluded.summary,
        published_at = excluded.published_at
        WHERE excluded.published_at > published_at
`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, entry := range result.Entries {
		_, err = stmt.ExecContext(ctx,
			entry.SourceID,
			entry.Title,
			entry.URL,
			entry.Summary,
			entry.GUID,
			entry.ImageURL,
			f.formatTimestamp(entry.PublishedAt),
		)
		if err != nil {
			f.logger.Printf("Error inserting entry %s: %v", entry.URL, err)
			continue
		}
	}

	// Keep only the newest entries for this source.
	_, err = tx.ExecContext(ctx, `
        DELETE FROM source_entries
        WHERE id IN (
            SELECT id FROM source_entries
            WHERE source_id = ?
            ORDER BY published_at DESC
            LIMIT -1 OFFSET ?
        )
    `, result.Source.ID, f.maxEntries)
	if err != nil {
		return err
	}

	return tx.Commit()
}

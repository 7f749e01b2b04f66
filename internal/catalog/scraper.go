package catalog

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zlib"

	"gamedeck/internal/artwork"
	"gamedeck/internal/logging"
	"gamedeck/internal/services"
)

const (
	defaultMaxResults = 18
	maxPageBytes      = 8 << 20
)

// PosterResolver finds a poster image for a catalog title.
type PosterResolver interface {
	Poster(ctx context.Context, name string, policy artwork.Policy) (string, bool)
}

// Scraper reads search listings and detail pages from a catalog site.
type Scraper struct {
	baseURL        string
	userAgent      string
	acceptLanguage string
	maxResults     int
	httpClient     *http.Client
	posters        PosterResolver
	logger         *slog.Logger
}

// Option configures a Scraper.
type Option func(*Scraper)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(s *Scraper) {
		if client != nil {
			s.httpClient = client
		}
	}
}

// WithTimeout bounds each catalog request.
func WithTimeout(timeout time.Duration) Option {
	return func(s *Scraper) {
		if timeout > 0 {
			s.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithHeaders overrides the browser-like request headers.
func WithHeaders(userAgent, acceptLanguage string) Option {
	return func(s *Scraper) {
		if ua := strings.TrimSpace(userAgent); ua != "" {
			s.userAgent = ua
		}
		if al := strings.TrimSpace(acceptLanguage); al != "" {
			s.acceptLanguage = al
		}
	}
}

// WithMaxResults caps the number of search entries (at most 18).
func WithMaxResults(n int) Option {
	return func(s *Scraper) {
		if n > 0 && n <= defaultMaxResults {
			s.maxResults = n
		}
	}
}

// WithPosterResolver enables poster enrichment of search results.
func WithPosterResolver(posters PosterResolver) Option {
	return func(s *Scraper) {
		s.posters = posters
	}
}

// New creates a scraper for the catalog at baseURL.
func New(baseURL string, logger *slog.Logger, opts ...Option) (*Scraper, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "new scraper", "base url required", nil)
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "catalog", "new scraper", "invalid base url", err)
	}
	s := &Scraper{
		baseURL:        baseURL,
		userAgent:      "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		acceptLanguage: "en-US,en;q=0.9",
		maxResults:     defaultMaxResults,
		httpClient:     &http.Client{Timeout: 30 * time.Second},
		logger:         logging.NewComponentLogger(logger, "catalog"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Search returns up to the configured number of entries for query, each
// enriched with a poster when one can be found. Failures yield an empty
// slice; a poster failure only affects its own entry.
func (s *Scraper) Search(ctx context.Context, query string, policy artwork.Policy) []Entry {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Entry{}
	}
	searchURL := s.baseURL + "/?s=" + url.QueryEscape(query)
	logger := logging.WithContext(ctx, s.logger)

	body, pageURL, err := s.fetch(ctx, searchURL)
	if err != nil {
		s.warn(logger, "catalog search failed", "catalog_search_failed", err,
			logging.String("query", query))
		return []Entry{}
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		s.warn(logger, "catalog search page unparseable", "catalog_search_failed",
			services.Wrap(services.ErrDecode, "catalog", "search", "parse html", err),
			logging.String("query", query))
		return []Entry{}
	}

	entries := parseEntries(doc, pageURL, s.maxResults)
	logger.Debug("catalog search parsed", logging.String("query", query), logging.Int("entries", len(entries)))
	s.attachPosters(ctx, entries, policy)
	return entries
}

func (s *Scraper) attachPosters(ctx context.Context, entries []Entry, policy artwork.Policy) {
	if s.posters == nil || len(entries) == 0 {
		return
	}
	var wg sync.WaitGroup
	for i := range entries {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if poster, ok := s.posters.Poster(ctx, entries[i].Title, policy); ok {
				entries[i].PosterURL = poster
			}
		}(i)
	}
	wg.Wait()
}

// FetchDetails parses a detail page. The bool is false when the page could
// not be fetched or parsed.
func (s *Scraper) FetchDetails(ctx context.Context, detailURL string) (Details, bool) {
	detailURL = strings.TrimSpace(detailURL)
	if detailURL == "" {
		return Details{}, false
	}
	logger := logging.WithContext(ctx, s.logger)

	body, pageURL, err := s.fetch(ctx, detailURL)
	if err != nil {
		s.warn(logger, "catalog detail fetch failed", "catalog_details_failed", err,
			logging.String("url", detailURL))
		return Details{}, false
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		s.warn(logger, "catalog detail page unparseable", "catalog_details_failed",
			services.Wrap(services.ErrDecode, "catalog", "details", "parse html", err),
			logging.String("url", detailURL))
		return Details{}, false
	}
	details := assembleDetails(doc, string(body), pageURL)
	logger.Debug("catalog details parsed",
		logging.String("url", detailURL),
		logging.Int("hosts", len(details.AllLinks)),
		logging.Bool("direct_install", details.DirectInstallAPI != ""),
	)
	return details, true
}

// Ping checks that the catalog base URL answers with a 2xx status.
func (s *Scraper) Ping(ctx context.Context) error {
	_, _, err := s.fetch(ctx, s.baseURL+"/")
	return err
}

func (s *Scraper) fetch(ctx context.Context, rawURL string) ([]byte, *url.URL, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrValidation, "catalog", "build request", rawURL, err)
	}
	req.Header.Set("User-Agent", s.userAgent)
	req.Header.Set("Accept-Language", s.acceptLanguage)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	req.Header.Set("Accept-Encoding", "gzip, deflate")

	requestStart := time.Now()
	resp, err := s.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransport, "catalog", "request", fmt.Sprintf("latency=%v", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, nil, services.Wrap(services.ErrHTTPStatus, "catalog", "request",
			fmt.Sprintf("catalog returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	reader, err := decodeBody(resp)
	if err != nil {
		return nil, nil, err
	}
	defer reader.Close()
	body, err := io.ReadAll(io.LimitReader(reader, maxPageBytes))
	if err != nil {
		return nil, nil, services.Wrap(services.ErrTransport, "catalog", "read body", "", err)
	}
	return body, resp.Request.URL, nil
}

// decodeBody undoes the Content-Encoding we asked for. The transport only
// decompresses transparently when it set Accept-Encoding itself.
func decodeBody(resp *http.Response) (io.ReadCloser, error) {
	switch strings.ToLower(strings.TrimSpace(resp.Header.Get("Content-Encoding"))) {
	case "gzip":
		zr, err := gzip.NewReader(resp.Body)
		if err != nil {
			return nil, services.Wrap(services.ErrDecode, "catalog", "gzip", "", err)
		}
		return zr, nil
	case "deflate":
		zr, err := zlib.NewReader(resp.Body)
		if err != nil {
			return nil, services.Wrap(services.ErrDecode, "catalog", "deflate", "", err)
		}
		return zr, nil
	default:
		return io.NopCloser(resp.Body), nil
	}
}

func (s *Scraper) warn(logger *slog.Logger, msg, eventType string, err error, attrs ...logging.Attr) {
	attrs = append(attrs,
		logging.Error(err),
		logging.String(logging.FieldErrorHint, services.Hint(err)),
		logging.String(logging.FieldImpact, "catalog results unavailable for this request"),
	)
	logging.WarnWithContext(logger, msg, eventType, attrs...)
}

package artwork

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"gamedeck/internal/services"
)

// Registry is the subset of the artwork registry the resolver depends on.
type Registry interface {
	SearchGames(ctx context.Context, name, nsfw string) ([]Game, error)
	Images(ctx context.Context, kind Kind, gameID int64, query ImageQuery) ([]Image, error)
}

// ImageQuery carries the per-request filters for an image listing.
type ImageQuery struct {
	NSFW       string
	Dimensions []string
	Mimes      string
}

// ResponseCache stores successful registry response bodies keyed by URL.
type ResponseCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Put(ctx context.Context, key string, body []byte)
}

// Client talks to a SteamGridDB v2 compatible registry.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	cache      ResponseCache
}

var _ Registry = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithCache enables response caching.
func WithCache(cache ResponseCache) Option {
	return func(c *Client) {
		c.cache = cache
	}
}

// New creates a registry client. An empty API key is a configuration error;
// callers without a key should not build a client at all.
func New(apiKey, baseURL string, timeout time.Duration, opts ...Option) (*Client, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, services.Wrap(services.ErrConfiguration, "artwork", "new client", "api key required", nil)
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, services.Wrap(services.ErrConfiguration, "artwork", "new client", "base url required", nil)
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	client := &Client{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Errors  []string        `json:"errors"`
}

// SearchGames queries the autocomplete endpoint.
func (c *Client) SearchGames(ctx context.Context, name, nsfw string) ([]Game, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "artwork", "search", "name must not be empty", nil)
	}
	endpoint, err := url.Parse(c.baseURL + "/search/autocomplete/" + url.PathEscape(name))
	if err != nil {
		return nil, fmt.Errorf("parse registry url: %w", err)
	}
	params := url.Values{}
	params.Set("nsfw", nsfw)
	endpoint.RawQuery = params.Encode()

	var games []Game
	if err := c.getData(ctx, endpoint.String(), &games); err != nil {
		return nil, err
	}
	return games, nil
}

// Images lists the artwork of one kind for a game.
func (c *Client) Images(ctx context.Context, kind Kind, gameID int64, query ImageQuery) ([]Image, error) {
	if gameID <= 0 {
		return nil, services.Wrap(services.ErrValidation, "artwork", "images", "game id must be positive", nil)
	}
	endpoint, err := url.Parse(c.baseURL + "/" + string(kind) + "/game/" + strconv.FormatInt(gameID, 10))
	if err != nil {
		return nil, fmt.Errorf("parse registry url: %w", err)
	}
	params := url.Values{}
	params.Set("nsfw", query.NSFW)
	if len(query.Dimensions) > 0 {
		params.Set("dimensions", strings.Join(query.Dimensions, ","))
	}
	if query.Mimes != "" {
		params.Set("mimes", query.Mimes)
	}
	endpoint.RawQuery = params.Encode()

	var images []Image
	if err := c.getData(ctx, endpoint.String(), &images); err != nil {
		return nil, err
	}
	return images, nil
}

// getData fetches endpoint, unwraps the {success, data} envelope into out, and
// caches the raw body only once the whole response proved usable.
func (c *Client) getData(ctx context.Context, endpoint string, out any) error {
	if c.cache != nil {
		if body, ok := c.cache.Get(ctx, endpoint); ok {
			if err := decodeEnvelope(body, out); err == nil {
				return nil
			}
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return services.Wrap(services.ErrTransport, "artwork", "request", fmt.Sprintf("latency=%v", latency), err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return services.Wrap(services.ErrHTTPStatus, "artwork", "request",
			fmt.Sprintf("registry returned %d (latency=%v)", resp.StatusCode, latency), nil)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return services.Wrap(services.ErrTransport, "artwork", "read body", "", err)
	}
	if err := decodeEnvelope(body, out); err != nil {
		return err
	}
	if c.cache != nil {
		c.cache.Put(ctx, endpoint, body)
	}
	return nil
}

var errUnsuccessful = errors.New("registry reported success=false")

func decodeEnvelope(body []byte, out any) error {
	var env envelope
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&env); err != nil {
		return services.Wrap(services.ErrDecode, "artwork", "decode", "", err)
	}
	if !env.Success {
		detail := strings.Join(env.Errors, "; ")
		return services.Wrap(services.ErrDecode, "artwork", "decode", detail, errUnsuccessful)
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return services.Wrap(services.ErrDecode, "artwork", "decode data", "", err)
	}
	return nil
}

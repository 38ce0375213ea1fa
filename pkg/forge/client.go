// Package forge talks to the GitHub GraphQL API: query execution, cursor
// pagination and the per-run page cache.
package forge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"iter"
	"net/http"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultEndpoint = "https://api.github.com/graphql"

// defaultCacheSize bounds the number of cached pages per run.
const defaultCacheSize = 100

// Doer issues HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(*http.Request) (*http.Response, error)
}

// Client executes GraphQL queries against the forge. Query results are held
// in a bounded LRU cache keyed by (query, variables) so that re-reads within
// one run never hit the network twice. Mutations bypass the cache.
type Client struct {
	endpoint string
	token    string
	http     Doer
	cache    *lru.Cache[string, json.RawMessage]
}

// Config configures a Client. Token is required; everything else defaults.
type Config struct {
	Endpoint  string
	Token     string
	HTTP      Doer
	CacheSize int
}

// NewClient creates a forge client with a fresh page cache.
func NewClient(cfg Config) (*Client, error) {
	if cfg.Token == "" {
		return nil, errors.New("forge: token is required")
	}
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultEndpoint
	}
	httpClient := cfg.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	size := cfg.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, json.RawMessage](size)
	if err != nil {
		return nil, err
	}
	return &Client{
		endpoint: endpoint,
		token:    cfg.Token,
		http:     httpClient,
		cache:    cache,
	}, nil
}

type gqlRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type gqlError struct {
	Message string `json:"message"`
}

type gqlResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []gqlError      `json:"errors"`
}

// Execute runs one GraphQL query. A repeated (query, variables) pair returns
// the cached page, bit-identical to the fresh result.
func (c *Client) Execute(ctx context.Context, query string, vars map[string]any) (json.RawMessage, error) {
	key, err := cacheKey(query, vars)
	if err != nil {
		return nil, err
	}
	if data, ok := c.cache.Get(key); ok {
		return data, nil
	}
	data, err := c.post(ctx, query, vars)
	if err != nil {
		return nil, err
	}
	c.cache.Add(key, data)
	return data, nil
}

// Mutate runs one GraphQL mutation, always against the network.
func (c *Client) Mutate(ctx context.Context, mutation string, vars map[string]any) (json.RawMessage, error) {
	return c.post(ctx, mutation, vars)
}

// cacheKey builds the cache key from the query text and the canonical JSON
// encoding of the variables. encoding/json sorts map keys, so two variable
// maps with equal contents produce the same key.
func cacheKey(query string, vars map[string]any) (string, error) {
	enc, err := json.Marshal(vars)
	if err != nil {
		return "", fmt.Errorf("forge: encode variables: %w", err)
	}
	return query + "\x00" + string(enc), nil
}

func (c *Client) post(ctx context.Context, query string, vars map[string]any) (json.RawMessage, error) {
	body, err := json.Marshal(gqlRequest{Query: query, Variables: vars})
	if err != nil {
		return nil, fmt.Errorf("forge: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("forge: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forge: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("forge: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("forge: unexpected status %s: %s", resp.Status, firstLine(raw))
	}

	var envelope gqlResponse
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("forge: malformed response: %w", err)
	}
	if len(envelope.Errors) > 0 {
		return nil, fmt.Errorf("forge: query failed: %s", envelope.Errors[0].Message)
	}
	if envelope.Data == nil {
		return nil, errors.New("forge: response carries no data")
	}
	return envelope.Data, nil
}

// NextFunc advances pagination. It is invoked after each yielded page has
// been consumed; it mutates vars to carry the cursors for the next request
// and reports whether another page should be fetched.
type NextFunc func(vars map[string]any) (more bool, err error)

// Pages lazily yields raw page results for query, following cursors until
// next reports no more pages. Any failed page fetch is yielded as the final
// element; callers treat it as fatal. The caller's vars map is not mutated.
func (c *Client) Pages(ctx context.Context, query string, vars map[string]any, next NextFunc) iter.Seq2[json.RawMessage, error] {
	return func(yield func(json.RawMessage, error) bool) {
		cur := make(map[string]any, len(vars))
		for k, v := range vars {
			cur[k] = v
		}
		for {
			page, err := c.Execute(ctx, query, cur)
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(page, nil) {
				return
			}
			more, err := next(cur)
			if err != nil {
				yield(nil, err)
				return
			}
			if !more {
				return
			}
		}
	}
}

func firstLine(raw []byte) string {
	if i := bytes.IndexByte(raw, '\n'); i >= 0 {
		raw = raw[:i]
	}
	if len(raw) > 200 {
		raw = raw[:200]
	}
	return string(raw)
}

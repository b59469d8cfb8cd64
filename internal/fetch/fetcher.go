package fetch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/mlawson/shepard/internal/cache"
	"github.com/mlawson/shepard/internal/model"
	"github.com/mlawson/shepard/internal/worker"
)

var (
	// ErrNotFound is returned for opinions the remote API does not have
	ErrNotFound = errors.New("opinion not found in remote API")

	// ErrRateLimited is returned when the remote API throttles us
	ErrRateLimited = errors.New("remote API rate limit exceeded")

	// ErrRobotsDisallowed is returned when robots.txt forbids the fetch
	ErrRobotsDisallowed = errors.New("fetch disallowed by robots.txt")
)

// Cached 404s are stored under the response key with this body so a
// known-missing opinion never costs another API round trip.
var notFoundMarker = []byte(`{"shepard_not_found":true}`)

const responseTTL = 24 * time.Hour

// Opinion is the remote API's opinion record, reduced to the fields the
// analyzer needs
type Opinion struct {
	ID                int64    `json:"id"`
	CaseName          string   `json:"case_name,omitempty"`
	PlainText         string   `json:"plain_text"`
	HTML              string   `json:"html"`
	HTMLWithCitations string   `json:"html_with_citations"`
	OpinionsCited     []string `json:"opinions_cited"`
}

// Text returns the best available body text, preferring plain text and
// falling back to stripped HTML.
func (o *Opinion) Text() string {
	if o.PlainText != "" {
		return o.PlainText
	}
	if o.HTML != "" {
		return htmlToText(o.HTML)
	}
	if o.HTMLWithCitations != "" {
		return htmlToText(o.HTMLWithCitations)
	}
	return ""
}

// CitedIDs parses the cited-opinion resource URLs into numeric ids,
// preserving API order.
func (o *Opinion) CitedIDs() []int64 {
	var ids []int64
	for _, ref := range o.OpinionsCited {
		if id, ok := parseOpinionRef(ref); ok {
			ids = append(ids, id)
		}
	}
	return ids
}

// parseOpinionRef extracts the trailing numeric id from a resource URL
// like ".../api/rest/v4/opinions/12345/" or a bare "12345".
func parseOpinionRef(ref string) (int64, bool) {
	trimmed := strings.TrimRight(ref, "/")
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		trimmed = trimmed[idx+1:]
	}
	id, err := strconv.ParseInt(trimmed, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// GraphWriter is the subset of the store the fetcher populates
type GraphWriter interface {
	HasOpinion(ctx context.Context, id int64) (bool, error)
	AddOpinion(ctx context.Context, id int64, caseName, plainText string) error
	AddCitations(ctx context.Context, citingID int64, citedIDs []int64) error
}

// Fetcher pulls opinion records from a CourtListener-style REST API. It
// honors robots.txt, rate-limits per host, and caches raw responses in
// the layered byte cache so repeated traversals stay off the network.
type Fetcher struct {
	httpClient *http.Client
	robots     *Robots
	limiter    *worker.Limiter
	responses  cache.Cache
	baseURL    string
	apiToken   string
	userAgent  string
	maxBytes   int64
}

// NewFetcher creates a fetcher from config. The response cache may be
// nil to disable caching.
func NewFetcher(cfg model.FetchConfig, responses cache.Cache) *Fetcher {
	return &Fetcher{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		robots:     NewRobots(cfg.UserAgent, cfg.Timeout),
		limiter:    worker.NewLimiter(cfg.RequestsPerSecond, cfg.Burst),
		responses:  responses,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiToken:   cfg.APIToken,
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBodyBytes,
	}
}

// FetchOpinion retrieves one opinion record, serving from the response
// cache when possible.
func (f *Fetcher) FetchOpinion(ctx context.Context, opinionID int64) (*Opinion, error) {
	url := fmt.Sprintf("%s/opinions/%d/", f.baseURL, opinionID)

	if body, ok := f.cachedResponse(url); ok {
		if string(body) == string(notFoundMarker) {
			return nil, fmt.Errorf("%w: opinion %d", ErrNotFound, opinionID)
		}
		return decodeOpinion(body)
	}

	body, err := f.get(ctx, url)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			f.cacheResponse(url, notFoundMarker)
			return nil, fmt.Errorf("%w: opinion %d", ErrNotFound, opinionID)
		}
		return nil, err
	}

	f.cacheResponse(url, body)
	return decodeOpinion(body)
}

// Ensure makes sure the opinion and its citation edges exist in the
// local store, fetching from the API only when missing. Returns whether
// a fetch was needed.
func (f *Fetcher) Ensure(ctx context.Context, opinionID int64, w GraphWriter) (bool, error) {
	exists, err := w.HasOpinion(ctx, opinionID)
	if err != nil {
		return false, fmt.Errorf("check opinion: %w", err)
	}
	if exists {
		return false, nil
	}

	op, err := f.FetchOpinion(ctx, opinionID)
	if err != nil {
		return false, err
	}

	if err := w.AddOpinion(ctx, op.ID, op.CaseName, op.Text()); err != nil {
		return false, fmt.Errorf("store opinion %d: %w", op.ID, err)
	}
	if cited := op.CitedIDs(); len(cited) > 0 {
		if err := w.AddCitations(ctx, op.ID, cited); err != nil {
			return false, fmt.Errorf("store citations for %d: %w", op.ID, err)
		}
	}

	return true, nil
}

func (f *Fetcher) get(ctx context.Context, url string) ([]byte, error) {
	allowed, crawlDelay, err := f.robots.CanFetch(ctx, url)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: %s", ErrRobotsDisallowed, url)
	}

	if err := f.limiter.WaitWithDelay(ctx, url, crawlDelay); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "application/json")
	if f.apiToken != "" {
		req.Header.Set("Authorization", "Token "+f.apiToken)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("unexpected status: %d %s", resp.StatusCode, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	return body, nil
}

func (f *Fetcher) cachedResponse(url string) ([]byte, bool) {
	if f.responses == nil {
		return nil, false
	}
	return f.responses.Get(cache.ResponseKey(url))
}

func (f *Fetcher) cacheResponse(url string, body []byte) {
	if f.responses == nil {
		return
	}
	_ = f.responses.Set(cache.ResponseKey(url), body, responseTTL)
}

func decodeOpinion(body []byte) (*Opinion, error) {
	var op Opinion
	if err := json.Unmarshal(body, &op); err != nil {
		return nil, fmt.Errorf("decode opinion: %w", err)
	}
	return &op, nil
}

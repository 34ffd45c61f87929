// Package feed retrieves the supplier's periodic full inventory export and
// turns it into parseable rows: an authenticated fetch of the compressed
// dump, extraction of the delimited data file from the archive, and a
// quote-aware row iterator over the decoded text.
package feed

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/stonelake/gemfeed/internal/catalog"
	"github.com/stonelake/gemfeed/internal/config"
)

// DefaultTimeout bounds the full-dump request when the config leaves the
// timeout unset. The fetch is the only stage of a run with a cancellation
// path; once parsing starts the run completes or fails outright.
const DefaultTimeout = 60 * time.Second

// maxBodyExcerpt limits how much of an error response body is carried in a
// FetchError.
const maxBodyExcerpt = 512

// Fetcher performs the authenticated full-dump request against the supplier
// feed API.
type Fetcher struct {
	url       string
	apiKey    string
	apiSecret string
	timeout   time.Duration
	client    *http.Client
}

// NewFetcher creates a Fetcher from feed configuration.
func NewFetcher(cfg config.FeedConfig) *Fetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Fetcher{
		url:       cfg.URL,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
		timeout:   timeout,
		client:    &http.Client{},
	}
}

// Fetch issues one export request for the given stone type and returns the
// raw compressed payload plus its byte length.
//
// The request is cancelled after the configured timeout, yielding
// catalog.ErrFetchTimeout. Network failures, non-2xx statuses, and empty
// bodies yield a *catalog.FetchError.
func (f *Fetcher) Fetch(ctx context.Context, stoneType catalog.StoneType) ([]byte, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	form := url.Values{
		"api_key":    {f.apiKey},
		"api_secret": {f.apiSecret},
		"format":     {"csv"},
		"compress":   {"zip"},
		"type":       {string(stoneType)},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, 0, &catalog.FetchError{Err: err}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/zip")

	resp, err := f.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, fmt.Errorf("%w after %s", catalog.ErrFetchTimeout, f.timeout)
		}
		return nil, 0, &catalog.FetchError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		excerpt, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyExcerpt))
		return nil, 0, &catalog.FetchError{Status: resp.StatusCode, Body: string(excerpt)}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, fmt.Errorf("%w after %s", catalog.ErrFetchTimeout, f.timeout)
		}
		return nil, 0, &catalog.FetchError{Err: err}
	}

	if len(payload) == 0 {
		return nil, 0, &catalog.FetchError{Status: resp.StatusCode, Body: "empty body"}
	}

	return payload, int64(len(payload)), nil
}

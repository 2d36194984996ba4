// Package cse provides a client for the Colombo Stock Exchange disclosure API.
package cse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const (
	defaultBaseURL = "https://www.cse.lk/api/"
	// DefaultCDNURL hosts announcement documents.
	DefaultCDNURL = "https://cdn.cse.lk/"

	userAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"
	referer   = "https://www.cse.lk/"
	origin    = "https://www.cse.lk"
)

// pdfMagic is the signature every accepted document must start with.
var pdfMagic = []byte("%PDF-")

// Client defines the CSE disclosure API operations.
type Client interface {
	// ListAnnouncements returns the approved announcement list, most recent first.
	ListAnnouncements(ctx context.Context) ([]Announcement, error)
	// GetDetail returns the detail payload for an announcement, trying the
	// typed endpoint first and the general endpoint second.
	GetDetail(ctx context.Context, id ID) (*AnnouncementDetail, error)
	// FetchDocument downloads a document and verifies it is a PDF.
	FetchDocument(ctx context.Context, docURL string) ([]byte, error)
}

// FetchKind classifies why a fetch produced no data.
type FetchKind int

const (
	// FetchTransport covers network failures, timeouts and non-200 statuses.
	FetchTransport FetchKind = iota
	// FetchMalformed means a response arrived but could not be used.
	FetchMalformed
	// FetchEmpty means the source answered successfully with nothing.
	FetchEmpty
)

func (k FetchKind) String() string {
	switch k {
	case FetchTransport:
		return "transport"
	case FetchMalformed:
		return "malformed"
	case FetchEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// FetchError is returned by every Client operation.
type FetchError struct {
	Op         string
	Kind       FetchKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("cse: %s: %s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (status %d)", e.StatusCode)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// HTTPStatus returns the response status, or zero when there was none.
func (e *FetchError) HTTPStatus() int { return e.StatusCode }

func (e *FetchError) Unwrap() error {
	return e.Err
}

// KindOf returns the FetchKind of err, or FetchTransport when err is not a
// FetchError.
func KindOf(err error) FetchKind {
	var fe *FetchError
	if eris.As(err, &fe) {
		return fe.Kind
	}
	return FetchTransport
}

// Option configures the CSE client.
type Option func(*httpClient)

// WithBaseURL sets a custom API base URL (for testing).
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		if !strings.HasSuffix(u, "/") {
			u += "/"
		}
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithLimit caps the number of announcements returned by ListAnnouncements.
func WithLimit(n int) Option {
	return func(c *httpClient) {
		c.limit = n
	}
}

// WithRequestInterval spaces consecutive API requests at least d apart.
func WithRequestInterval(d time.Duration) Option {
	return func(c *httpClient) {
		if d <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		c.limiter = rate.NewLimiter(rate.Every(d), 1)
	}
}

type httpClient struct {
	baseURL string
	limit   int
	http    *http.Client
	limiter *rate.Limiter
}

// NewClient creates a new CSE API client.
func NewClient(opts ...Option) Client {
	c := &httpClient{
		baseURL: defaultBaseURL,
		limit:   100,
		http: &http.Client{
			Timeout: 20 * time.Second,
		},
		limiter: rate.NewLimiter(rate.Every(300*time.Millisecond), 1),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) ListAnnouncements(ctx context.Context) ([]Announcement, error) {
	body, err := c.postForm(ctx, "list announcements", "approvedAnnouncement", nil)
	if err != nil {
		return nil, err
	}

	var resp listResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &FetchError{Op: "list announcements", Kind: FetchMalformed, Err: err}
	}

	items := resp.Announcements
	if c.limit > 0 && len(items) > c.limit {
		items = items[:c.limit]
	}
	return items, nil
}

func (c *httpClient) GetDetail(ctx context.Context, id ID) (*AnnouncementDetail, error) {
	form := url.Values{"announcementId": {string(id)}}

	var primaryErr error
	body, err := c.postForm(ctx, "get detail", "getAnnouncementById", form)
	switch {
	case err != nil:
		primaryErr = err
	case len(body) > 5:
		var d AnnouncementDetail
		jsonErr := json.Unmarshal(body, &d)
		if jsonErr == nil {
			return &d, nil
		}
		primaryErr = &FetchError{Op: "get detail", Kind: FetchMalformed, Err: jsonErr}
	}

	body, err = c.postForm(ctx, "get general detail", "getGeneralAnnouncementById", form)
	if err != nil {
		if primaryErr != nil {
			return nil, primaryErr
		}
		return nil, err
	}
	if trimmed := bytes.TrimSpace(body); len(trimmed) == 0 || string(trimmed) == "{}" {
		return nil, &FetchError{Op: "get detail", Kind: FetchEmpty}
	}

	var d AnnouncementDetail
	if err := json.Unmarshal(body, &d); err != nil {
		return nil, &FetchError{Op: "get general detail", Kind: FetchMalformed, Err: err}
	}
	return &d, nil
}

func (c *httpClient) FetchDocument(ctx context.Context, docURL string) ([]byte, error) {
	const op = "fetch document"
	docURL = strings.ReplaceAll(docURL, " ", "%20")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, docURL, nil)
	if err != nil {
		return nil, &FetchError{Op: op, Kind: FetchMalformed, Err: eris.Wrap(err, "create request")}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", referer)

	body, status, err := c.do(ctx, req)
	if err != nil {
		return nil, &FetchError{Op: op, Kind: FetchTransport, Err: err}
	}
	if status != http.StatusOK {
		return nil, &FetchError{Op: op, Kind: FetchTransport, StatusCode: status}
	}
	if len(body) == 0 {
		return nil, &FetchError{Op: op, Kind: FetchEmpty}
	}
	if !bytes.HasPrefix(body, pdfMagic) {
		return nil, &FetchError{Op: op, Kind: FetchMalformed, Err: eris.New("content is not a PDF")}
	}
	return body, nil
}

func (c *httpClient) postForm(ctx context.Context, op, endpoint string, form url.Values) ([]byte, error) {
	var payload io.Reader
	if form != nil {
		payload = strings.NewReader(form.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, payload)
	if err != nil {
		return nil, &FetchError{Op: op, Kind: FetchMalformed, Err: eris.Wrap(err, "create request")}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Referer", referer)
	req.Header.Set("Origin", origin)

	body, status, err := c.do(ctx, req)
	if err != nil {
		return nil, &FetchError{Op: op, Kind: FetchTransport, Err: err}
	}
	if status != http.StatusOK {
		return nil, &FetchError{Op: op, Kind: FetchTransport, StatusCode: status}
	}
	return body, nil
}

func (c *httpClient) do(ctx context.Context, req *http.Request) ([]byte, int, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, eris.Wrap(err, "rate limiter wait")
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, eris.Wrap(err, "read response body")
	}
	return body, resp.StatusCode, nil
}

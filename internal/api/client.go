package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/oauth2"
)

const (
	csrfCookie = "XSRF-TOKEN"
	csrfHeader = "X-XSRF-TOKEN"

	maxErrorBody = 512
)

type Options struct {
	BaseURL           string
	Timeout           time.Duration
	RetryCount        int
	Token             string
	SessionCookieName string
	SessionCookie     string
}

// Client talks to the stats backend's ingestion, sync-job, freshness and
// season endpoints.
type Client struct {
	baseURL *url.URL
	jar     http.CookieJar
	http    *resty.Client
	stream  *resty.Client
}

func NewClient(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid api url %q", opts.BaseURL)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create cookie jar: %w", err)
	}

	if opts.SessionCookie != "" {
		name := opts.SessionCookieName
		if name == "" {
			name = "SESSION"
		}
		jar.SetCookies(base, []*http.Cookie{{Name: name, Value: opts.SessionCookie, Path: "/"}})
	}

	c := &Client{baseURL: base, jar: jar}

	c.http = c.newResty(opts.Token).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.RetryCount).
		SetRetryWaitTime(250 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryIdempotent)

	// The progress stream stays open for the whole job; no client timeout.
	c.stream = c.newResty(opts.Token).
		SetHeader("Accept", "text/event-stream").
		SetHeader("Cache-Control", "no-cache")

	return c, nil
}

func (c *Client) newResty(token string) *resty.Client {
	var hc *http.Client
	if token != "" {
		src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
		hc = oauth2.NewClient(context.Background(), src)
	} else {
		hc = &http.Client{}
	}

	return resty.NewWithClient(hc).
		SetBaseURL(c.baseURL.String()).
		SetCookieJar(c.jar).
		SetHeader("Accept", "application/json").
		OnBeforeRequest(c.attachCSRF)
}

func (c *Client) attachCSRF(_ *resty.Client, req *resty.Request) error {
	switch req.Method {
	case http.MethodGet, http.MethodHead, http.MethodOptions:
		return nil
	}

	if token := c.csrfToken(); token != "" {
		req.SetHeader(csrfHeader, token)
	}
	return nil
}

func (c *Client) csrfToken() string {
	for _, ck := range c.jar.Cookies(c.baseURL) {
		if ck.Name == csrfCookie {
			return ck.Value
		}
	}
	return ""
}

// primeCSRF performs a cheap GET so the backend sets its CSRF cookie before
// the first mutating request of a session.
func (c *Client) primeCSRF(ctx context.Context) {
	if c.csrfToken() != "" {
		return
	}
	_, _ = c.http.R().SetContext(ctx).Get("/sync-jobs/active")
}

func retryIdempotent(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return true
	}
	return r.StatusCode() == http.StatusTooManyRequests || r.StatusCode() >= 500
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, result any) error {
	if method != http.MethodGet {
		c.primeCSRF(ctx)
	}

	req := c.http.R().SetContext(ctx)

	if result != nil {
		req.SetResult(result)
	}
	if len(query) > 0 {
		req.SetQueryParamsFromValues(query)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("failed to %s %s: %w", method, path, err)
	}

	if resp.IsError() {
		return &Error{
			Method:  method,
			Path:    path,
			Status:  resp.StatusCode(),
			Message: errorMessage(resp.Header().Get("Content-Type"), resp.Body()),
		}
	}

	return nil
}

// errorMessage extracts the reason from an error response body. JSON bodies
// yield their message field; short plain bodies are used as is.
func errorMessage(contentType string, body []byte) string {
	if strings.Contains(contentType, "json") {
		var eb errorBody
		if err := json.Unmarshal(body, &eb); err == nil {
			return eb.text()
		}
		return ""
	}

	if len(body) > maxErrorBody {
		return ""
	}
	return strings.TrimSpace(string(body))
}

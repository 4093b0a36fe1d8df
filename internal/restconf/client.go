package restconf

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"

	"github.com/bcnelson/netbox-restconf-sync/internal/domain"
	"github.com/bcnelson/netbox-restconf-sync/internal/metrics"
	"github.com/sethvargo/go-retry"
)

const mediaType = "application/yang-data+json"

// maxBackoff caps a single wait between 409 retries.
const maxBackoff = 120 * time.Second

// Configurator is the set of RESTCONF verbs the reconcilers need.
type Configurator interface {
	Put(ctx context.Context, url string, payload any) error
	Patch(ctx context.Context, url string, payload any) error
	Delete(ctx context.Context, url string) error
}

// Options configures a Client.
type Options struct {
	Username  string
	Password  string
	TLSVerify bool
	Timeout   time.Duration

	// Retries is how many times a PUT/PATCH/POST answered with 409 (datastore
	// locked) is retried. Backoff is the first delay; it doubles per retry up
	// to two minutes.
	Retries uint64
	Backoff time.Duration

	// HTTPClient overrides the transport built from TLSVerify and Timeout.
	HTTPClient *http.Client
}

// StatusError is returned for any non-2xx RESTCONF response.
type StatusError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Body       string
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("%s %s: %s: %s", e.Method, e.URL, e.Status, e.Body)
	}
	return fmt.Sprintf("%s %s: %s", e.Method, e.URL, e.Status)
}

// Is lets callers match a 404 with errors.Is(err, domain.ErrNotFound).
func (e *StatusError) Is(target error) bool {
	return target == domain.ErrNotFound && e.StatusCode == http.StatusNotFound
}

// Client issues RESTCONF requests with basic auth and a retry policy for a
// locked datastore.
type Client struct {
	http     *http.Client
	username string
	password string
	retries  uint64
	backoff  time.Duration
}

// Ensure Client implements Configurator.
var _ Configurator = (*Client)(nil)

// New creates a RESTCONF client.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:           http.ProxyFromEnvironment,
				TLSClientConfig: &tls.Config{InsecureSkipVerify: !opts.TLSVerify}, //nolint:gosec // operator controlled
			},
		}
	}
	backoff := opts.Backoff
	if backoff <= 0 {
		backoff = time.Second
	}
	return &Client{
		http:     httpClient,
		username: opts.Username,
		password: opts.Password,
		retries:  opts.Retries,
		backoff:  backoff,
	}
}

// Put replaces the resource at url with payload.
func (c *Client) Put(ctx context.Context, url string, payload any) error {
	return c.do(ctx, http.MethodPut, url, payload)
}

// Patch merges payload into the resource at url.
func (c *Client) Patch(ctx context.Context, url string, payload any) error {
	return c.do(ctx, http.MethodPatch, url, payload)
}

// Delete removes the resource at url.
func (c *Client) Delete(ctx context.Context, url string) error {
	return c.do(ctx, http.MethodDelete, url, nil)
}

func (c *Client) do(ctx context.Context, method, url string, payload any) error {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encoding %s payload: %w", method, err)
		}
	}

	// Deletes are not retried on 409.
	var retries uint64
	if method != http.MethodDelete {
		retries = c.retries
	}
	attempt := 0
	return retry.Do(ctx, backoffPolicy(c.backoff, retries), func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			metrics.RecordDeviceRetry(method)
		}
		err := c.send(ctx, method, url, body)
		var se *StatusError
		if errors.As(err, &se) && se.StatusCode == http.StatusConflict {
			return retry.RetryableError(err)
		}
		return err
	})
}

// backoffPolicy doubles the wait from base on every retry, never waiting more
// than maxBackoff at once.
func backoffPolicy(base time.Duration, retries uint64) retry.Backoff {
	return retry.WithMaxRetries(retries, retry.WithCappedDuration(maxBackoff, retry.NewExponential(base)))
}

func (c *Client) send(ctx context.Context, method, url string, body []byte) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("building %s request: %w", method, err)
	}
	req.Header.Set("Accept", mediaType)
	if body != nil {
		req.Header.Set("Content-Type", mediaType)
	}
	req.SetBasicAuth(c.username, c.password)

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordDeviceRequest(method, 0)
		return fmt.Errorf("%s %s: %w", method, url, err)
	}
	defer resp.Body.Close()

	metrics.RecordDeviceRequest(method, resp.StatusCode)
	log.Printf("[RESTCONF] %s %s -> %s", method, url, resp.Status)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	return &StatusError{
		Method:     method,
		URL:        url,
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Body:       string(bytes.TrimSpace(msg)),
	}
}

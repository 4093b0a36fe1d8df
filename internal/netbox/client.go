package netbox

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bcnelson/netbox-restconf-sync/internal/domain"
	"golang.org/x/oauth2"
)

// Inventory resolves the current state of NetBox objects.
type Inventory interface {
	GetInterface(ctx context.Context, id int64) (*domain.Interface, error)
}

// Client reads interfaces and devices from the NetBox REST API.
type Client struct {
	baseURL string
	http    *http.Client
}

// Ensure Client implements Inventory.
var _ Inventory = (*Client)(nil)

// Options configures a Client.
type Options struct {
	URL       string
	Token     string
	TokenType string // "Token" for legacy keys, "Bearer" for v2 tokens
	TLSVerify bool
	Timeout   time.Duration
}

// New creates a NetBox client. The API token is attached to every request by
// an oauth2 static token source, which renders "Authorization: <type> <token>".
func New(opts Options) *Client {
	base := &http.Client{
		Timeout: opts.Timeout,
		Transport: &http.Transport{
			Proxy:           http.ProxyFromEnvironment,
			TLSClientConfig: &tls.Config{InsecureSkipVerify: !opts.TLSVerify}, //nolint:gosec // operator controlled
		},
	}
	tokenType := opts.TokenType
	if tokenType == "" {
		tokenType = "Token"
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	src := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: opts.Token, TokenType: tokenType})

	httpClient := oauth2.NewClient(ctx, src)
	httpClient.Timeout = opts.Timeout

	return &Client{
		baseURL: strings.TrimRight(strings.TrimSpace(opts.URL), "/"),
		http:    httpClient,
	}
}

type apiInterface struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Enabled     bool   `json:"enabled"`
	Description string `json:"description"`
	MTU         *int   `json:"mtu"`
	MgmtOnly    bool   `json:"mgmt_only"`
	Device      struct {
		ID   int64  `json:"id"`
		Name string `json:"name"`
	} `json:"device"`
}

type apiDevice struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	PrimaryIP *struct {
		Address string `json:"address"`
	} `json:"primary_ip"`
}

// GetInterface fetches an interface and its device's primary IP.
func (c *Client) GetInterface(ctx context.Context, id int64) (*domain.Interface, error) {
	var iface apiInterface
	if err := c.get(ctx, fmt.Sprintf("/api/dcim/interfaces/%d/", id), &iface); err != nil {
		return nil, fmt.Errorf("interface %d: %w", id, err)
	}

	var dev apiDevice
	if err := c.get(ctx, fmt.Sprintf("/api/dcim/devices/%d/", iface.Device.ID), &dev); err != nil {
		return nil, fmt.Errorf("device %d of interface %d: %w", iface.Device.ID, id, err)
	}

	result := &domain.Interface{
		ID:       iface.ID,
		Name:     iface.Name,
		Enabled:  iface.Enabled,
		MTU:      iface.MTU,
		MgmtOnly: iface.MgmtOnly,
		Device: domain.Device{
			ID:   dev.ID,
			Name: dev.Name,
		},
	}
	if iface.Description != "" {
		desc := iface.Description
		result.Description = &desc
	}
	if dev.PrimaryIP != nil {
		result.Device.PrimaryIP = dev.PrimaryIP.Address
	}
	return result, nil
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("netbox GET %s failed: %s: %s", path, resp.Status, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding netbox response for %s: %w", path, err)
	}
	return nil
}

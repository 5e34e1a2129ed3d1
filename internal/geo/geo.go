// Geolocation through the ip-api.com JSON endpoint
package geo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"rtt-collect/internal/measure"
)

// ErrLookupFailed reports a lookup the service answered without a usable
// location (status other than "success", or a body that is not a location).
// Transport errors are returned unwrapped.
var ErrLookupFailed = errors.New("geolocation lookup failed")

// Field sets requested from the service.
const (
	hostFields = "status,lat,lon,city,country"
	selfFields = "status,lat,lon,city,country,query"
	ipFields   = "status,query"
)

// Location is the subset of the ip-api.com response the collector uses.
type Location struct {
	Status  string  `json:"status"`
	Message string  `json:"message,omitempty"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	City    string  `json:"city,omitempty"`
	Country string  `json:"country,omitempty"`
	Query   string  `json:"query,omitempty"`
}

// Coordinates returns the location's position.
func (l Location) Coordinates() measure.Coordinates {
	return measure.Coordinates{Lat: l.Lat, Lon: l.Lon}
}

// Geolocator resolves addresses to approximate positions.
type Geolocator interface {
	// MyLocation locates the caller, including its public address in Query.
	MyLocation(ctx context.Context) (*Location, error)
	// Locate locates the given address or host name.
	Locate(ctx context.Context, ip string) (*Location, error)
	// PublicIP returns the caller's public address.
	PublicIP(ctx context.Context) (string, error)
}

// Client is the HTTP Geolocator.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a Client for endpoint (e.g. "http://ip-api.com/json/").
// Every request is bounded by timeout.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if !strings.HasSuffix(endpoint, "/") {
		endpoint += "/"
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// MyLocation implements Geolocator.
func (c *Client) MyLocation(ctx context.Context) (*Location, error) {
	return c.lookup(ctx, "", selfFields)
}

// Locate implements Geolocator.
func (c *Client) Locate(ctx context.Context, ip string) (*Location, error) {
	return c.lookup(ctx, ip, hostFields)
}

// PublicIP implements Geolocator.
func (c *Client) PublicIP(ctx context.Context) (string, error) {
	loc, err := c.lookup(ctx, "", ipFields)
	if err != nil {
		return "", err
	}
	if loc.Query == "" {
		return "", fmt.Errorf("%w: no query address in response", ErrLookupFailed)
	}
	return loc.Query, nil
}

func (c *Client) lookup(ctx context.Context, ip, fields string) (*Location, error) {
	u := c.endpoint + url.PathEscape(ip) + "?fields=" + fields
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geolocate %q: %w", ip, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %q: HTTP %d", ErrLookupFailed, ip, resp.StatusCode)
	}
	var loc Location
	if err := json.NewDecoder(resp.Body).Decode(&loc); err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrLookupFailed, ip, err)
	}
	if loc.Status != "success" {
		return nil, fmt.Errorf("%w: %q: status %q %s", ErrLookupFailed, ip, loc.Status, loc.Message)
	}
	return &loc, nil
}

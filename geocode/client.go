// Package geocode resolves coordinates into addresses through the
// geocode.maps.co reverse geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	goAccount "github.com/MrEthical07/goAccount"
	"github.com/jellydator/ttlcache/v2"
)

const defaultBaseURL = "https://geocode.maps.co"

// Options configures a Client.
type Options struct {
	BaseURL    string
	APIKey     string
	Timeout    time.Duration
	CacheTTL   time.Duration
	CacheSize  int
	HTTPClient *http.Client
}

// Client implements goAccount.Geocoder. Results are cached by coordinates
// rounded to four decimals (about 11 m).
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	cache   *ttlcache.Cache
}

var _ goAccount.Geocoder = (*Client)(nil)

type reverseResponse struct {
	DisplayName string `json:"display_name"`
	Address     struct {
		City    string `json:"city"`
		Town    string `json:"town"`
		Village string `json:"village"`
		State   string `json:"state"`
		Country string `json:"country"`
	} `json:"address"`
	Error json.RawMessage `json:"error"`
}

// New returns a Client. Close must be called to stop the cache janitor.
func New(opts Options) (*Client, error) {
	base := opts.BaseURL
	if base == "" {
		base = defaultBaseURL
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("geocode: invalid base url: %w", err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	if opts.CacheSize <= 0 {
		opts.CacheSize = 10_000
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	cache := ttlcache.NewCache()
	if err := cache.SetTTL(opts.CacheTTL); err != nil {
		return nil, err
	}
	cache.SetCacheSizeLimit(opts.CacheSize)
	cache.SkipTTLExtensionOnHit(true)

	return &Client{
		baseURL: base,
		apiKey:  opts.APIKey,
		http:    httpClient,
		cache:   cache,
	}, nil
}

// Close releases the cache.
func (c *Client) Close() error {
	return c.cache.Close()
}

func (c *Client) ReverseGeocode(ctx context.Context, latitude, longitude float64) (goAccount.Address, error) {
	key := strconv.FormatFloat(latitude, 'f', 4, 64) + "," + strconv.FormatFloat(longitude, 'f', 4, 64)
	if v, err := c.cache.Get(key); err == nil {
		if addr, ok := v.(goAccount.Address); ok {
			return addr, nil
		}
	}

	q := url.Values{}
	q.Set("lat", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(longitude, 'f', -1, 64))
	if c.apiKey != "" {
		q.Set("api_key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return goAccount.Address{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return goAccount.Address{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return goAccount.Address{}, fmt.Errorf("geocode failed: %s; body: %s", resp.Status, string(b))
	}

	var body reverseResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&body); err != nil {
		return goAccount.Address{}, fmt.Errorf("geocode: decode response: %w", err)
	}
	if len(body.Error) > 0 && string(body.Error) != "null" {
		return goAccount.Address{}, fmt.Errorf("geocode: %s", string(body.Error))
	}
	if body.DisplayName == "" {
		return goAccount.Address{}, errors.New("geocode: empty result")
	}

	city := body.Address.City
	if city == "" {
		city = body.Address.Town
	}
	if city == "" {
		city = body.Address.Village
	}

	addr := goAccount.Address{
		FullAddress: body.DisplayName,
		City:        city,
		State:       body.Address.State,
		Country:     body.Address.Country,
	}
	_ = c.cache.Set(key, addr)
	return addr, nil
}

package location

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const DefaultIPURL = "http://ip-api.com/json/"

type IPConfig struct {
	URL     string        `yaml:"url" mapstructure:"url"`
	Timeout time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// IPProvider estimates position from the public IP through a geolocation
// endpoint. Both ip-api.com and ipapi.co response shapes are understood.
type IPProvider struct {
	url    string
	client *http.Client
}

func NewIPProvider(config *IPConfig) *IPProvider {
	url, timeout := DefaultIPURL, 5*time.Second
	if config != nil {
		if config.URL != "" {
			url = config.URL
		}
		if config.Timeout > 0 {
			timeout = config.Timeout
		}
	}
	return &IPProvider{url: url, client: &http.Client{Timeout: timeout}}
}

func (p *IPProvider) Name() string {
	return "ip"
}

type ipResponse struct {
	Status    string   `json:"status"`
	Message   string   `json:"message"`
	Lat       *float64 `json:"lat"`
	Lon       *float64 `json:"lon"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	Error     bool     `json:"error"`
	Reason    string   `json:"reason"`
}

func (p *IPProvider) Locate(ctx context.Context) (Fix, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return Fix{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return Fix{}, fmt.Errorf("failed to query geolocation: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Fix{}, fmt.Errorf("geolocation returned status %d", resp.StatusCode)
	}

	var body ipResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Fix{}, fmt.Errorf("failed to decode geolocation: %w", err)
	}
	if body.Status == "fail" {
		return Fix{}, fmt.Errorf("geolocation failed: %s", body.Message)
	}
	if body.Error {
		return Fix{}, fmt.Errorf("geolocation failed: %s", body.Reason)
	}

	fix := Fix{Provider: p.Name(), Time: time.Now()}
	switch {
	case body.Lat != nil && body.Lon != nil:
		fix.Lat, fix.Lon = *body.Lat, *body.Lon
	case body.Latitude != nil && body.Longitude != nil:
		fix.Lat, fix.Lon = *body.Latitude, *body.Longitude
	default:
		return Fix{}, fmt.Errorf("geolocation response has no coordinates")
	}
	return fix, nil
}

package metadata

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

const (
	DefaultNominatimEndpoint  = "https://nominatim.openstreetmap.org"
	DefaultNominatimUserAgent = "Image tagger"

	nominatimReversePath = "/reverse"
	nominatimBodyLimit   = 1 << 20
)

// Nominatim reverse-geocodes coordinates with the OpenStreetMap Nominatim API.
type Nominatim struct {
	BaseURL    string
	UserAgent  string
	HTTPClient *http.Client
}

type nominatimResponse struct {
	DisplayName string `json:"display_name"`
	Error       string `json:"error"`
}

func (n Nominatim) Reverse(ctx context.Context, latitude float64, longitude float64) (string, error) {
	baseURL := strings.TrimSpace(n.BaseURL)
	if baseURL == "" {
		baseURL = DefaultNominatimEndpoint
	}
	query := url.Values{}
	query.Set("format", "jsonv2")
	query.Set("lat", strconv.FormatFloat(latitude, 'f', 6, 64))
	query.Set("lon", strconv.FormatFloat(longitude, 'f', 6, 64))
	requestURL := strings.TrimRight(baseURL, "/") + nominatimReversePath + "?" + query.Encode()

	httpRequest, buildErr := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if buildErr != nil {
		return "", buildErr
	}
	userAgent := strings.TrimSpace(n.UserAgent)
	if userAgent == "" {
		userAgent = DefaultNominatimUserAgent
	}
	httpRequest.Header.Set("User-Agent", userAgent)
	httpRequest.Header.Set("Accept", "application/json")

	client := n.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	httpResponse, httpErr := client.Do(httpRequest)
	if httpErr != nil {
		return "", fmt.Errorf("nominatim request: %w", httpErr)
	}
	defer func(closer io.ReadCloser) { _ = closer.Close() }(httpResponse.Body)

	body, readErr := io.ReadAll(io.LimitReader(httpResponse.Body, nominatimBodyLimit))
	if readErr != nil {
		return "", readErr
	}
	if httpResponse.StatusCode < 200 || httpResponse.StatusCode >= 300 {
		return "", fmt.Errorf("nominatim http error %d: %s", httpResponse.StatusCode, strings.TrimSpace(string(body)))
	}
	var decoded nominatimResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", fmt.Errorf("decode nominatim response: %w", err)
	}
	if decoded.Error != "" {
		return "", fmt.Errorf("nominatim: %s", decoded.Error)
	}
	address := strings.TrimSpace(decoded.DisplayName)
	if address == "" {
		return "", fmt.Errorf("nominatim returned no address for %f,%f", latitude, longitude)
	}
	return address, nil
}

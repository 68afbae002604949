package vies

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// Client talks to the VIES REST API.
type Client struct {
	baseURL string
	httpc   *http.Client
	log     *zap.Logger
}

func NewClient(baseURL string, log *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: 15 * time.Second},
		log:     log.Named("vies"),
	}
}

type checkResponse struct {
	CountryCode string `json:"countryCode"`
	VATNumber   string `json:"vatNumber"`
	Valid       bool   `json:"valid"`
	Name        string `json:"name"`
	Address     string `json:"address"`
}

func (c *Client) Check(ctx context.Context, countryCode, vatNumber string) (*CheckResult, error) {
	url := fmt.Sprintf("%s/check-vat-number/%s/%s", c.baseURL, countryCode, vatNumber)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: service returned %d", ErrUnavailable, resp.StatusCode)
	}

	var out checkResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrUnavailable, err)
	}

	c.log.Debug("vat number checked",
		zap.String("country_code", countryCode),
		zap.String("vat_number", vatNumber),
		zap.Bool("valid", out.Valid),
	)
	return &CheckResult{
		CountryCode: out.CountryCode,
		VATNumber:   out.VATNumber,
		Valid:       out.Valid,
		Name:        out.Name,
		Address:     out.Address,
	}, nil
}

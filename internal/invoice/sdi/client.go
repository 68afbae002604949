package sdi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/smallbiznis/fattura/internal/config"
	"go.uber.org/zap"
)

// Client is the HTTP implementation of Gateway.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
	log     *zap.Logger
}

func NewClient(cfg config.Config, log *zap.Logger) *Client {
	return &Client{
		baseURL: cfg.SDIBaseURL,
		apiKey:  cfg.SDIAPIKey,
		httpc:   &http.Client{Timeout: 30 * time.Second},
		log:     log.Named("sdi"),
	}
}

type submitResponse struct {
	TransmissionID string `json:"transmission_id"`
	ExternalID     string `json:"external_id"`
}

func (c *Client) Submit(ctx context.Context, transmissionID string, xml []byte) (*Submission, error) {
	if c.baseURL == "" {
		return nil, fmt.Errorf("sdi gateway not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/transmissions", bytes.NewReader(xml))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/xml")
	req.Header.Set("X-Transmission-Id", transmissionID)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("submit transmission: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("submit transmission: gateway returned %d", resp.StatusCode)
	}

	var out submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode gateway response: %w", err)
	}
	if out.TransmissionID == "" {
		out.TransmissionID = transmissionID
	}

	c.log.Debug("transmission submitted",
		zap.String("transmission_id", out.TransmissionID),
		zap.String("external_id", out.ExternalID),
	)
	return &Submission{TransmissionID: out.TransmissionID, ExternalID: out.ExternalID}, nil
}

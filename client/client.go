// Package client is the HTTP adapter for the SonnyLabs analysis API. A
// *Client satisfies scan.Scorer and can be passed to scan.NewScanner or
// scan.Configure.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-hclog"

	"github.com/sonnylabs/sonnylabs-go/scan"
)

const (
	DefaultBaseURL = "https://sonnylabs-service.onrender.com/api"
	DefaultTimeout = 5 * time.Second

	analysisPath = "/v1/analysis/{analysisID}"
	maxErrorBody = 512
)

var (
	ErrMissingToken      = errors.New("client: API token is required")
	ErrMissingAnalysisID = errors.New("client: analysis ID is required")
)

// Config holds the connection settings for one chatbot application.
type Config struct {
	APIToken   string
	BaseURL    string
	AnalysisID string
	Timeout    time.Duration
	Logger     hclog.Logger
}

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("API error: %d", e.StatusCode)
	}
	return fmt.Sprintf("API error: %d: %s", e.StatusCode, e.Body)
}

// Client calls the analysis endpoint. It is safe for concurrent use.
type Client struct {
	cfg    Config
	http   *resty.Client
	logger hclog.Logger
	now    func() time.Time
}

// New validates cfg and builds a Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIToken) == "" {
		return nil, ErrMissingToken
	}
	if strings.TrimSpace(cfg.AnalysisID) == "" {
		return nil, ErrMissingAnalysisID
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = hclog.NewNullLogger()
	}

	httpClient := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout).
		SetRetryCount(0).
		SetAuthToken(cfg.APIToken)
	setLoggerForResty(httpClient, cfg.Logger)

	return &Client{
		cfg:    cfg,
		http:   httpClient,
		logger: cfg.Logger,
		now:    time.Now,
	}, nil
}

// AnalysisID returns the analysis the client reports to.
func (c *Client) AnalysisID() string { return c.cfg.AnalysisID }

// GenerateTag returns a tag of the form <analysis_id>_<YYYYmmddHHMMSS>_<4 digits>.
func (c *Client) GenerateTag() string {
	return fmt.Sprintf("%s_%s_%04d", c.cfg.AnalysisID, c.now().Format("20060102150405"), rand.Intn(10000))
}

type analysisResponse struct {
	Analysis []scan.Record `json:"analysis"`
}

// Analyze posts text to the analysis endpoint. An empty tag is replaced with
// GenerateTag. Transport failures and non-2xx statuses are returned as errors;
// a 2xx body that cannot be decoded is an error as well.
func (c *Client) Analyze(ctx context.Context, text string, scanType scan.ScanType, tag string) (*scan.Analysis, error) {
	if tag == "" {
		tag = c.GenerateTag()
	}
	c.logger.Debug("analyzing content", "scan_type", scanType, "tag", tag)

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("analysisID", c.cfg.AnalysisID).
		SetQueryParams(map[string]string{
			"tag":       tag,
			"scan_type": string(scanType),
		}).
		SetHeader("Content-Type", "text/plain; charset=utf-8").
		SetBody(text).
		Post(analysisPath)
	if err != nil {
		c.logger.Error("analysis request failed", "tag", tag, "error", err)
		return nil, fmt.Errorf("analysis request: %w", err)
	}

	c.logger.Debug("analysis response", "tag", tag, "status", resp.StatusCode())
	if !resp.IsSuccess() {
		apiErr := &APIError{StatusCode: resp.StatusCode(), Body: truncate(string(resp.Body()), maxErrorBody)}
		c.logger.Error("analysis API error", "tag", tag, "status", apiErr.StatusCode)
		return nil, apiErr
	}

	var payload analysisResponse
	if err := json.Unmarshal(resp.Body(), &payload); err != nil {
		return nil, fmt.Errorf("decode analysis response: %w", err)
	}
	if payload.Analysis == nil {
		return nil, errors.New("decode analysis response: missing analysis field")
	}

	return &scan.Analysis{
		Success: true,
		Tag:     tag,
		Records: payload.Analysis,
	}, nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

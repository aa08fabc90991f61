// Package tfl provides a client for the Transport for London API, used to
// fetch the canonical set of active transit lines.
package tfl

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/gtechsltn/alexa-london-travel-site/internal/config"
	"github.com/gtechsltn/alexa-london-travel-site/internal/domain"
)

// supportedModes are the transit modes the site offers preferences for.
const supportedModes = "dlr,elizabeth-line,overground,tube"

// Client fetches line data from the TfL API. The canonical line set is not
// cached across requests: validation freshness is favored over latency.
type Client struct {
	http *resty.Client
}

// NewClient creates a new TfL API client
func NewClient(cfg config.TflConfig) *Client {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(cfg.Timeout)

	if cfg.AppID != "" && cfg.AppKey != "" {
		http.SetQueryParams(map[string]string{
			"app_id":  cfg.AppID,
			"app_key": cfg.AppKey,
		})
	}

	return &Client{http: http}
}

// GetLines returns the active lines for the supported transit modes. Any
// transport failure or non-200 response wraps domain.ErrLineDataUnavailable.
func (c *Client) GetLines(ctx context.Context) ([]domain.LineInfo, error) {
	var lines []domain.LineInfo

	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&lines).
		Get(fmt.Sprintf("/Line/Mode/%s", supportedModes))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrLineDataUnavailable, err)
	}
	if resp.StatusCode() != 200 {
		return nil, fmt.Errorf("%w: TfL API returned status %d", domain.ErrLineDataUnavailable, resp.StatusCode())
	}

	return lines, nil
}

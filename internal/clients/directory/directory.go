// Package directory is a thin client for the external customer-directory
// service. Customer CRUD lives there; this backend only asks whether a
// customer id is known before opening a balance for it.
package directory

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
)

type Client struct {
	http *resty.Client
}

func NewClient(serviceAddr string) *Client {
	client := resty.New().
		SetBaseURL(serviceAddr).
		SetTimeout(5 * time.Second)

	return &Client{http: client}
}

type customerRecord struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Lookup returns the directory record for the customer id, or found=false on
// a 404. Any other non-200 status is an error: the directory being unreachable
// must not silently pass as "customer exists".
func (c *Client) Lookup(ctx context.Context, customerID string) (name string, found bool, err error) {
	resp, err := c.http.R().
		SetContext(ctx).
		Get("/api/v1/customers/" + customerID)
	if err != nil {
		return "", false, fmt.Errorf("directory request: %w", err)
	}

	switch resp.StatusCode() {
	case http.StatusOK:
		var record customerRecord
		if err := json.Unmarshal(resp.Body(), &record); err != nil {
			return "", false, fmt.Errorf("decode directory response: %w", err)
		}
		return record.Name, true, nil
	case http.StatusNotFound:
		return "", false, nil
	default:
		return "", false, fmt.Errorf("directory request status: %d", resp.StatusCode())
	}
}

// Package inference is the HTTP client for the external classification
// and pricing model server. Only the request/response contract lives
// here; the model itself is somebody else's problem.
package inference

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/KARTIK027-CODE/StubbleX/internal/models"
)

// StatusError is a non-2xx answer from the model server. Detail carries
// the service-provided message when the body had one.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("inference service: %d: %s", e.Code, e.Detail)
	}
	return fmt.Sprintf("inference service: status %d", e.Code)
}

// Client talks to the model server over HTTP.
type Client struct {
	baseURL string
	httpc   *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpc:   &http.Client{Timeout: 60 * time.Second},
	}
}

// Classify posts the image as multipart form data and returns the
// service's structured result untouched.
func (c *Client) Classify(ctx context.Context, filename string, data []byte) (*models.ClassificationResult, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(data); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/classify-waste", &body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var result models.ClassificationResult
	if err := c.do(req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PredictPrice posts the query and returns the valuation.
func (c *Client) PredictPrice(ctx context.Context, query models.PriceQuery) (*models.PriceEstimate, error) {
	var estimate models.PriceEstimate
	if err := c.postJSON(ctx, "/api/predict-price", query, &estimate); err != nil {
		return nil, err
	}
	return &estimate, nil
}

// Leaderboard fetches the green-score board.
func (c *Client) Leaderboard(ctx context.Context) (*models.Leaderboard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/leaderboard", nil)
	if err != nil {
		return nil, err
	}
	var board models.Leaderboard
	if err := c.do(req, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// Health pings the model server.
func (c *Client) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/health", nil)
	if err != nil {
		return err
	}
	return c.do(req, nil)
}

func (c *Client) postJSON(ctx context.Context, path string, payload, out interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

// do executes the request and decodes the response. Non-2xx answers come
// back as *StatusError with the body's "detail" field when present.
func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		var payload struct {
			Detail string `json:"detail"`
		}
		_ = json.Unmarshal(body, &payload)
		return &StatusError{Code: resp.StatusCode, Detail: payload.Detail}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding inference response: %w", err)
	}
	return nil
}

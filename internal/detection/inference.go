package detection

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/ironsheep/parkspot-mcp/internal/geometry"
)

// InferenceClient runs detection through an external model server.
//
// The server receives a multipart POST with the PNG-encoded image in the
// "file" field and the thresholds in "conf" and "iou", and answers:
//
//	{"detections": [{"x1": 10.5, "y1": 20, "x2": 80, "y2": 60, "confidence": 0.91, "class_id": 2}]}
//
// Build one client per process and share it; it is safe for concurrent use.
type InferenceClient struct {
	url        string
	httpClient *http.Client
}

// NewInferenceClient creates a client for the predict endpoint at url.
func NewInferenceClient(url string, timeout time.Duration) *InferenceClient {
	return &InferenceClient{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// URL returns the predict endpoint.
func (c *InferenceClient) URL() string {
	return c.url
}

type inferenceResponse struct {
	Detections []geometry.Box `json:"detections"`
}

// Detect implements Detector.
func (c *InferenceClient) Detect(ctx context.Context, img image.Image, opts Options) ([]geometry.Box, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	part, err := writer.CreateFormFile("file", "image.png")
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if err := png.Encode(part, img); err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	if err := writer.WriteField("conf", strconv.FormatFloat(opts.Confidence, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("write conf field: %w", err)
	}
	if err := writer.WriteField("iou", strconv.FormatFloat(opts.IoU, 'f', -1, 64)); err != nil {
		return nil, fmt.Errorf("write iou field: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: send request: %v", ErrDetector, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("%w: inference returned status %d: %s",
			ErrDetector, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var result inferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: decode response: %v", ErrDetector, err)
	}
	if result.Detections == nil {
		return []geometry.Box{}, nil
	}
	return result.Detections, nil
}

// CheckHealth probes <url>/health.
func (c *InferenceClient) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(c.url, "/")+"/health", nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrDetector, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: inference service unhealthy: %d", ErrDetector, resp.StatusCode)
	}
	return nil
}

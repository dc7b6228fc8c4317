package autoplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/lvillar/docplace"
)

// Instruction is the fixed prompt sent with every vision request.
const Instruction = "Locate where each catalog field should be written on the form pages. " +
	"Answer with JSON {\"items\":[{\"componentId\",\"imageX\",\"imageY\",\"confidence\",\"fieldType\",\"pageIndex\"}]} " +
	"using pixel coordinates of the supplied images, origin top-left."

// maxResponseBytes bounds the decoded response body.
const maxResponseBytes = 8 << 20

// HTTPDetector posts detection requests to a vision endpoint as JSON.
type HTTPDetector struct {
	Endpoint string
	APIKey   string
	Client   *http.Client
}

// NewHTTPDetector returns a detector for endpoint. A zero timeout means 120s.
func NewHTTPDetector(endpoint, apiKey string, timeout time.Duration) *HTTPDetector {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPDetector{
		Endpoint: endpoint,
		APIKey:   apiKey,
		Client:   &http.Client{Timeout: timeout},
	}
}

type visionRequest struct {
	Instruction string `json:"instruction"`
	Request
}

// Detect sends req and decodes the response strictly. Unknown fields,
// trailing data or a missing items array reject the whole response.
func (d *HTTPDetector) Detect(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(d.Endpoint) == "" {
		return Result{}, fmt.Errorf("%w: vision endpoint not configured", docplace.ErrInvalidParam)
	}
	body, err := json.Marshal(visionRequest{Instruction: Instruction, Request: req})
	if err != nil {
		return Result{}, fmt.Errorf("autoplace: encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, d.Endpoint, bytes.NewReader(body))
	if err != nil {
		return Result{}, fmt.Errorf("autoplace: building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	if d.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+d.APIKey)
	}

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(httpReq)
	if err != nil {
		return Result{}, fmt.Errorf("autoplace: vision request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Result{}, fmt.Errorf("autoplace: vision endpoint returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return DecodeResult(io.LimitReader(resp.Body, maxResponseBytes))
}

// DecodeResult strictly decodes a detector response.
func DecodeResult(r io.Reader) (Result, error) {
	var raw struct {
		Items    *[]Detection    `json:"items"`
		Metadata json.RawMessage `json:"analysisMetadata"`
	}
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&raw); err != nil {
		return Result{}, fmt.Errorf("autoplace: malformed vision response: %w", err)
	}
	if dec.More() {
		return Result{}, fmt.Errorf("autoplace: malformed vision response: trailing data")
	}
	if raw.Items == nil {
		return Result{}, fmt.Errorf("autoplace: malformed vision response: missing items")
	}
	for i, d := range *raw.Items {
		if strings.TrimSpace(d.ComponentID) == "" {
			return Result{}, fmt.Errorf("autoplace: malformed vision response: item %d has no componentId", i)
		}
	}
	return Result{Items: *raw.Items, Metadata: raw.Metadata}, nil
}

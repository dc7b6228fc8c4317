package export

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/lvillar/docplace"
)

// maxSourceBytes bounds a fetched template.
const maxSourceBytes = 64 << 20

// Fetch loads template bytes from an http(s) URL or a local path. The whole
// fetch is bounded by timeout; zero means 60s. Failures wrap ErrFetch.
func Fetch(ctx context.Context, src string, timeout time.Duration) ([]byte, error) {
	src = strings.TrimSpace(src)
	if src == "" {
		return nil, fmt.Errorf("%w: no template location", docplace.ErrFetch)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	if !strings.HasPrefix(src, "http://") && !strings.HasPrefix(src, "https://") {
		data, err := os.ReadFile(strings.TrimPrefix(src, "file://"))
		if err != nil {
			return nil, fmt.Errorf("%w: %v", docplace.ErrFetch, err)
		}
		return data, nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", docplace.ErrFetch, err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", docplace.ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s returned %d", docplace.ErrFetch, src, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxSourceBytes+1))
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", docplace.ErrFetch, err)
	}
	if len(data) > maxSourceBytes {
		return nil, fmt.Errorf("%w: template larger than %d bytes", docplace.ErrFetch, maxSourceBytes)
	}
	return data, nil
}

//go:build !ocr

package autoplace

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOCRStub(t *testing.T) {
	_, err := NewOCRDetector("jpn").Detect(context.Background(), Request{})
	assert.ErrorIs(t, err, ErrOCRNotEnabled)
}

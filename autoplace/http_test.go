package autoplace

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/docplace"
	"github.com/lvillar/docplace/placement"
)

func TestHTTPDetector(t *testing.T) {
	var gotAuth string
	var gotBody map[string]json.RawMessage
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"items":[{"componentId":"s_name","imageX":827,"imageY":1169,"confidence":0.9,"fieldType":"text","pageIndex":0}],"analysisMetadata":{"model":"test"}}`))
	}))
	defer srv.Close()

	d := NewHTTPDetector(srv.URL, "secret", time.Second)
	res, err := d.Detect(context.Background(), Request{Catalog: testFields, Context: "ctx"})
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret", gotAuth)
	assert.Contains(t, gotBody, "instruction")
	assert.Contains(t, gotBody, "catalog")
	require.Len(t, res.Items, 1)
	assert.Equal(t, 827.0, res.Items[0].ImageX)
	require.NotNil(t, res.Items[0].PageIndex)
	assert.JSONEq(t, `{"model":"test"}`, string(res.Metadata))
}

func TestHTTPDetectorErrors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"server error", http.StatusBadGateway, `upstream down`},
		{"not json", http.StatusOK, `<html>`},
		{"missing items", http.StatusOK, `{"analysisMetadata":{}}`},
		{"unknown field", http.StatusOK, `{"items":[],"extra":1}`},
		{"wrong type", http.StatusOK, `{"items":[{"componentId":"a","imageX":"12"}]}`},
		{"empty component", http.StatusOK, `{"items":[{"componentId":" ","imageX":1}]}`},
		{"trailing data", http.StatusOK, `{"items":[]} {"items":[]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			_, err := NewHTTPDetector(srv.URL, "", time.Second).Detect(context.Background(), Request{})
			assert.Error(t, err)
		})
	}
}

func TestHTTPDetectorNoEndpoint(t *testing.T) {
	_, err := NewHTTPDetector("", "", 0).Detect(context.Background(), Request{})
	assert.ErrorIs(t, err, docplace.ErrInvalidParam)
}

func TestMalformedResponseNeverMerges(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"items":[{"componentId":"s_name","imageX":1,"imageY":1,"pageIndex":0},{"bogus":true}]}`))
	}))
	defer srv.Close()

	store := placement.NewStore(placement.Item{ComponentID: "kept"})
	p := newPipeline(store, NewHTTPDetector(srv.URL, "", time.Second))
	_, err := p.Run(context.Background(), nil, testFields, "", ModeReplace)
	require.Error(t, err)
	require.Equal(t, 1, store.Len())
	it, _ := store.At(0)
	assert.Equal(t, "kept", it.ComponentID)
}

func TestDecodeResult(t *testing.T) {
	res, err := DecodeResult(strings.NewReader(`{"items":[{"componentId":"a","imageX":1,"imageY":2,"confidence":1}]}`))
	require.NoError(t, err)
	require.Len(t, res.Items, 1)
	assert.Nil(t, res.Items[0].PageIndex)
}

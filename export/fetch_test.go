package export

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lvillar/docplace"
)

func TestFetchLocal(t *testing.T) {
	path := filepath.Join(t.TempDir(), "template.pdf")
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))

	data, err := Fetch(context.Background(), path, 0)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	data, err = Fetch(context.Background(), "file://"+path, 0)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))

	_, err = Fetch(context.Background(), filepath.Join(t.TempDir(), "nope.pdf"), 0)
	assert.ErrorIs(t, err, docplace.ErrFetch)

	_, err = Fetch(context.Background(), "  ", 0)
	assert.ErrorIs(t, err, docplace.ErrFetch)
}

func TestFetchHTTP(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ok.pdf":
			_, _ = w.Write([]byte("%PDF-1.7"))
		case "/slow.pdf":
			time.Sleep(200 * time.Millisecond)
			_, _ = w.Write([]byte("late"))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	data, err := Fetch(context.Background(), srv.URL+"/ok.pdf", time.Second)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))

	_, err = Fetch(context.Background(), srv.URL+"/missing.pdf", time.Second)
	assert.ErrorIs(t, err, docplace.ErrFetch)

	_, err = Fetch(context.Background(), srv.URL+"/slow.pdf", 20*time.Millisecond)
	assert.ErrorIs(t, err, docplace.ErrFetch)
}

func TestFileName(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"作業員名簿 2024/04", "作業員名簿202404.pdf"},
		{"Site-Plan (final).v2", "SitePlanfinalv2.pdf"},
		{"カタカナ・ひらがな", "カタカナひらがな.pdf"},
		{"!!!", DefaultFileName},
		{"", DefaultFileName},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, FileName(tt.in), tt.in)
	}
}

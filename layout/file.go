package layout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lvillar/docplace/catalog"
	"github.com/lvillar/docplace/placement"
)

const (
	documentsDir = "documents"
	sitesDir     = "sites"
)

// FileRepository keeps one JSON file per document under dir/documents and
// one per site under dir/sites.
type FileRepository struct {
	dir string
	now func() time.Time
}

// NewFileRepository returns a repository rooted at dir. Directories are
// created on first write.
func NewFileRepository(dir string) *FileRepository {
	return &FileRepository{dir: dir, now: time.Now}
}

// Dir returns the repository root.
func (r *FileRepository) Dir() string { return r.dir }

func (r *FileRepository) path(kind, id string) string {
	return filepath.Join(r.dir, kind, id+".json")
}

// Load reads the document with the given id.
func (r *FileRepository) Load(ctx context.Context, id string) (*Document, error) {
	var doc Document
	if err := r.read(ctx, documentsDir, id, &doc); err != nil {
		return nil, err
	}
	if doc.Items == nil {
		doc.Items = []placement.Item{}
	}
	return &doc, nil
}

// Save writes doc, assigning an id when it has none and stamping UpdatedAt.
func (r *FileRepository) Save(ctx context.Context, doc *Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.Items == nil {
		doc.Items = []placement.Item{}
	}
	doc.UpdatedAt = r.now().UTC()
	return r.write(ctx, documentsDir, doc.ID, doc)
}

// List returns every stored document, most recently updated first.
func (r *FileRepository) List(ctx context.Context) ([]Summary, error) {
	ids, err := r.ids(documentsDir)
	if err != nil {
		return nil, err
	}
	out := make([]Summary, 0, len(ids))
	for _, id := range ids {
		doc, err := r.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, Summary{ID: doc.ID, Name: doc.Name, SiteID: doc.SiteID, Items: len(doc.Items), UpdatedAt: doc.UpdatedAt})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Delete removes the document with the given id.
func (r *FileRepository) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	err := os.Remove(r.path(documentsDir, id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: document %s", ErrNotFound, id)
	}
	return err
}

// LoadSite reads the site record with the given id.
func (r *FileRepository) LoadSite(ctx context.Context, id string) (*catalog.Site, error) {
	var site catalog.Site
	if err := r.read(ctx, sitesDir, id, &site); err != nil {
		return nil, err
	}
	return &site, nil
}

// SaveSite writes site. The site must carry an id.
func (r *FileRepository) SaveSite(ctx context.Context, site *catalog.Site) error {
	return r.write(ctx, sitesDir, site.ID, site)
}

// ListSites returns the ids of all stored sites in lexical order.
func (r *FileRepository) ListSites(ctx context.Context) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.ids(sitesDir)
}

func (r *FileRepository) read(ctx context.Context, kind, id string, v any) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := os.ReadFile(r.path(kind, id))
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("%w: %s %s", ErrNotFound, strings.TrimSuffix(kind, "s"), id)
	}
	if err != nil {
		return fmt.Errorf("layout: reading %s: %w", id, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("layout: decoding %s: %w", id, err)
	}
	return nil
}

// write replaces the file atomically: the record is written to a temp file
// in the same directory and renamed over the old one.
func (r *FileRepository) write(ctx context.Context, kind, id string, v any) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("layout: encoding %s: %w", id, err)
	}

	dir := filepath.Join(r.dir, kind)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("layout: creating %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, "."+id+"-*.tmp")
	if err != nil {
		return fmt.Errorf("layout: creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("layout: writing %s: %w", id, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("layout: syncing %s: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("layout: closing %s: %w", id, err)
	}
	if err := os.Rename(tmp.Name(), r.path(kind, id)); err != nil {
		return fmt.Errorf("layout: replacing %s: %w", id, err)
	}
	return nil
}

func (r *FileRepository) ids(kind string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.dir, kind))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("layout: listing %s: %w", kind, err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || strings.HasPrefix(name, ".") || !strings.HasSuffix(name, ".json") {
			continue
		}
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}
	sort.Strings(ids)
	return ids, nil
}

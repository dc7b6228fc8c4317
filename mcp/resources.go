package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/lvillar/docplace/catalog"
)

// RegisterResources adds the layout resources backed by w to the server.
// Resources use the layout:// scheme with parameters in the query string.
func RegisterResources(s *Server, w *Workspace) {
	s.AddResource(Resource{
		URI:         "layout://document",
		Name:        "Layout Document",
		Description: "A stored layout record: template location and the full ordered item array. Pass the id as a query parameter: layout://document?id=...",
		MIMEType:    "application/json",
		Handler:     w.documentResource,
	})

	s.AddResource(Resource{
		URI:         "layout://catalog",
		Name:        "Site Catalog",
		Description: "Placeable fields of a site with their current values. Pass the site id as a query parameter: layout://catalog?site=...",
		MIMEType:    "application/json",
		Handler:     w.catalogResource,
	})

	s.AddResource(Resource{
		URI:         "layout://documents",
		Name:        "Layout Documents",
		Description: "All stored layout documents, most recently updated first.",
		MIMEType:    "application/json",
		Handler:     w.documentsResource,
	})
}

func queryParam(uri, key string) (string, error) {
	u, err := url.Parse(uri)
	if err != nil {
		return "", fmt.Errorf("parsing URI: %w", err)
	}
	v := u.Query().Get(key)
	if v == "" {
		return "", fmt.Errorf("missing '%s' parameter in URI", key)
	}
	return v, nil
}

func jsonContent(uri string, v interface{}) ([]ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding resource: %w", err)
	}
	return []ResourceContent{{
		URI:      uri,
		MIMEType: "application/json",
		Text:     string(data),
	}}, nil
}

// documentResource prefers an open session, which may hold edits newer than
// the last save.
func (w *Workspace) documentResource(ctx context.Context, uri string) ([]ResourceContent, error) {
	id, err := queryParam(uri, "id")
	if err != nil {
		return nil, err
	}
	w.mu.Lock()
	s, open := w.sessions[id]
	w.mu.Unlock()
	if open {
		return jsonContent(uri, s.Document())
	}
	doc, err := w.Layouts.Load(ctx, id)
	if err != nil {
		return nil, err
	}
	return jsonContent(uri, doc)
}

func (w *Workspace) catalogResource(ctx context.Context, uri string) ([]ResourceContent, error) {
	id, err := queryParam(uri, "site")
	if err != nil {
		return nil, err
	}
	site, err := w.Layouts.LoadSite(ctx, id)
	if err != nil {
		return nil, err
	}
	fields := catalog.Build(site)
	return jsonContent(uri, map[string]interface{}{
		"site":   site.ID,
		"groups": catalog.Groups(fields),
		"fields": fields,
	})
}

func (w *Workspace) documentsResource(ctx context.Context, uri string) ([]ResourceContent, error) {
	list, err := w.Layouts.List(ctx)
	if err != nil {
		return nil, err
	}
	return jsonContent(uri, list)
}

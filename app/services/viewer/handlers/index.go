package handlers

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"net/http"
)

//go:embed assets/index.html
var assets embed.FS

type index struct {
	page []byte
}

// newIndex renders the page once with the websocket address of the node
// whose events are shown.
func newIndex(nodeHost string) (*index, error) {
	tmpl, err := template.ParseFS(assets, "assets/index.html")
	if err != nil {
		return nil, err
	}

	data := struct {
		EventsURL string
	}{
		EventsURL: "ws://" + nodeHost + "/v1/events",
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return nil, err
	}

	return &index{page: buf.Bytes()}, nil
}

func (ig *index) handler(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)

	_, err := w.Write(ig.page)
	return err
}

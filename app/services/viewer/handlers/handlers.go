// Package handlers contains the full set of handler functions and routes
// supported by the web api.
package handlers

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/zimcoin/ledger/business/web/mid"
	"github.com/zimcoin/ledger/foundation/web"
	"go.uber.org/zap"
)

// UIMux constructs an http.Handler with all application routes defined.
func UIMux(shutdown chan os.Signal, log *zap.SugaredLogger, nodeHost string) (*web.App, error) {
	app := web.NewApp(
		shutdown,
		mid.Logger(log),
		mid.Errors(log),
		mid.Panics(),
		mid.Cors("*"),
	)

	// Register the index page for the website.
	ig, err := newIndex(nodeHost)
	if err != nil {
		return nil, fmt.Errorf("loading index template: %w", err)
	}
	app.Handle(http.MethodGet, "", "/", ig.handler)

	// The liveness check doesn't need the node.
	h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		return web.Respond(ctx, w, struct {
			Status string `json:"status"`
		}{Status: "up"}, http.StatusOK)
	}
	app.Handle(http.MethodGet, "", "/liveness", h)

	return app, nil
}

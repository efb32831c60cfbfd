package web_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"

	"github.com/zimcoin/ledger/foundation/web"
)

// Success and failure markers.
const (
	success = "\u2713"
	failed  = "\u2717"
)

func Test_App(t *testing.T) {
	t.Log("Given the need to route requests through middleware.")
	{
		testID := 0
		t.Logf("\tTest %d:\tWhen handling a request with a parameter.", testID)
		{
			shutdown := make(chan os.Signal, 1)

			var order []string
			mw := func(name string) web.Middleware {
				return func(handler web.Handler) web.Handler {
					return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
						order = append(order, name)
						return handler(ctx, w, r)
					}
				}
			}

			app := web.NewApp(shutdown, mw("app"))

			h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				v, err := web.GetValues(ctx)
				if err != nil {
					return err
				}
				if v.TraceID == "" {
					return errors.New("missing trace id")
				}

				var body struct {
					Value uint64 `json:"value"`
				}
				if err := web.Decode(r, &body); err != nil {
					return err
				}

				resp := struct {
					Hash  string `json:"hash"`
					Value uint64 `json:"value"`
				}{
					Hash:  web.Param(r, "hash"),
					Value: body.Value,
				}

				return web.Respond(ctx, w, resp, http.StatusOK)
			}
			app.Handle(http.MethodPost, "v1", "/block/:hash", h, mw("route"))

			r := httptest.NewRequest(http.MethodPost, "/v1/block/0xabc", strings.NewReader(`{"value":10}`))
			w := httptest.NewRecorder()
			app.ServeHTTP(w, r)

			if w.Code != http.StatusOK {
				t.Fatalf("\t%s\tTest %d:\tShould receive a 200, got %d.", failed, testID, w.Code)
			}
			t.Logf("\t%s\tTest %d:\tShould receive a 200.", success, testID)

			if exp := `{"hash":"0xabc","value":10}`; w.Body.String() != exp {
				t.Fatalf("\t%s\tTest %d:\tShould get the expected body: got %s", failed, testID, w.Body.String())
			}
			t.Logf("\t%s\tTest %d:\tShould get the expected body.", success, testID)

			if len(order) != 2 || order[0] != "app" || order[1] != "route" {
				t.Fatalf("\t%s\tTest %d:\tShould run app middleware first: %v", failed, testID, order)
			}
			t.Logf("\t%s\tTest %d:\tShould run app middleware first.", success, testID)
		}

		testID++
		t.Logf("\tTest %d:\tWhen a handler returns a shutdown error.", testID)
		{
			shutdown := make(chan os.Signal, 1)
			app := web.NewApp(shutdown)

			h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
				return web.NewShutdownError("integrity issue")
			}
			app.Handle(http.MethodGet, "", "/fail", h)

			app.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/fail", nil))

			select {
			case <-shutdown:
				t.Logf("\t%s\tTest %d:\tShould signal a shutdown.", success, testID)
			default:
				t.Fatalf("\t%s\tTest %d:\tShould signal a shutdown.", failed, testID)
			}
		}
	}
}

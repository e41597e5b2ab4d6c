package errorhandler

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/batchsale/common/errs"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPErrorHandler(t *testing.T) {
	testCases := []struct {
		name       string
		err        error
		wantStatus int
		wantBody   Response
	}{
		{
			name:       "public error",
			err:        errs.WithPublicStatus(errors.New("expired"), http.StatusGone, "INVOICE_EXPIRED", "invoice expired"),
			wantStatus: http.StatusGone,
			wantBody:   Response{Error: "invoice expired", Code: "INVOICE_EXPIRED"},
		},
		{
			name:       "error kind",
			err:        errors.Wrap(errs.NotFound, "invoice inv_1"),
			wantStatus: http.StatusNotFound,
			wantBody:   Response{Error: "Not Found"},
		},
		{
			name:       "fiber error",
			err:        fiber.ErrMethodNotAllowed,
			wantStatus: http.StatusMethodNotAllowed,
			wantBody:   Response{Error: "Method Not Allowed"},
		},
		{
			name:       "unknown",
			err:        errors.New("database is on fire"),
			wantStatus: http.StatusInternalServerError,
			wantBody:   Response{Error: "Internal Server Error"},
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			app := fiber.New(fiber.Config{ErrorHandler: NewHTTPErrorHandler()})
			app.Get("/", func(*fiber.Ctx) error { return tc.err })

			resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
			require.NoError(t, err)
			assert.Equal(t, tc.wantStatus, resp.StatusCode)

			raw, err := io.ReadAll(resp.Body)
			require.NoError(t, err)
			var body Response
			require.NoError(t, json.Unmarshal(raw, &body))
			assert.Equal(t, tc.wantBody, body)
		})
	}
}

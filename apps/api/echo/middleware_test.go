package echoapi

import (
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/trezcool/sanaa/core"
	"github.com/trezcool/sanaa/testutil"
)

// errorCounter is a core.Logger counting the reported errors.
type errorCounter struct {
	mu     sync.Mutex
	errors int
}

func (l *errorCounter) Debug(string, ...interface{}) {}
func (l *errorCounter) Info(string, ...interface{})  {}
func (l *errorCounter) Warn(string, ...interface{})  {}
func (l *errorCounter) Fatal(string, ...interface{}) {}
func (l *errorCounter) Error(string, ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors++
}

func Test_tracingMiddleware(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	_, translator := testutil.Validator()

	tests := []struct {
		name       string
		requestLog bool
		err        error
		wantCode   int
		wantLogged int
		wantStatus codes.Code
	}{
		{name: "ok", wantCode: http.StatusOK, wantStatus: codes.Unset},
		{name: "not found", err: core.NewNotFoundError("course not found"), wantCode: http.StatusNotFound, wantStatus: codes.Unset},
		{name: "server error", err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantLogged: 1, wantStatus: codes.Error},
		{name: "server error with request logs", requestLog: true, err: errors.New("boom"), wantCode: http.StatusInternalServerError, wantLogged: 1, wantStatus: codes.Error},
		{name: "not found with request logs", requestLog: true, err: core.NewNotFoundError("course not found"), wantCode: http.StatusNotFound, wantStatus: codes.Unset},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := new(errorCounter)
			app := echo.New()
			app.HTTPErrorHandler = newAppHTTPErrorHandler(logger, translator, func() {})
			app.Use(tracingMiddleware())
			if tt.requestLog {
				app.Use(middleware.LoggerWithConfig(middleware.LoggerConfig{Output: io.Discard}))
			}
			app.GET("/v1/courses/:courseId", func(ctx echo.Context) error {
				if tt.err != nil {
					return tt.err
				}
				return ctx.NoContent(http.StatusOK)
			})

			before := len(recorder.Ended())
			rec := httptest.NewRecorder()
			app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/courses/42", nil))

			assert.Equal(t, tt.wantCode, rec.Code)
			assert.Equal(t, tt.wantLogged, logger.errors, "server errors are reported once")

			spans := recorder.Ended()[before:]
			require.Len(t, spans, 1)
			assert.Equal(t, "GET /v1/courses/:courseId", spans[0].Name())
			assert.Equal(t, tt.wantStatus, spans[0].Status().Code)
		})
	}
}

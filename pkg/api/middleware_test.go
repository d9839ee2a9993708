package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ssargent/howfar/pkg/howfar"
	"github.com/ssargent/howfar/pkg/ringfs"
	"github.com/ssargent/howfar/pkg/uf2"
)

func TestAPIKeyMiddleware(t *testing.T) {
	tests := []struct {
		name           string
		apiKey         string
		requestHeader  string
		expectedStatus int
	}{
		{
			name:           "valid API key",
			apiKey:         "test-key",
			requestHeader:  "test-key",
			expectedStatus: http.StatusOK,
		},
		{
			name:           "missing API key header",
			apiKey:         "test-key",
			requestHeader:  "",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "invalid API key",
			apiKey:         "test-key",
			requestHeader:  "wrong-key",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "same length different key",
			apiKey:         "test-key",
			requestHeader:  "test-kez",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "key prefix",
			apiKey:         "test-key",
			requestHeader:  "test",
			expectedStatus: http.StatusUnauthorized,
		},
		{
			name:           "key with suffix",
			apiKey:         "test-key",
			requestHeader:  "test-key2",
			expectedStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			handler := apiKeyMiddleware(tt.apiKey)(testHandler)

			req := httptest.NewRequest("GET", "/test", nil)
			if tt.requestHeader != "" {
				req.Header.Set("X-API-Key", tt.requestHeader)
			}
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if w.Code != tt.expectedStatus {
				t.Errorf("Expected status %d, got %d", tt.expectedStatus, w.Code)
			}
		})
	}
}

func TestDecodeFailureClass(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{&uf2.BlockError{Err: uf2.ErrOutOfOrder}, classContainer},
		{&uf2.FlagMismatchError{}, classContainer},
		{fmt.Errorf("wrap: %w", howfar.ErrImageSizeMismatch), classSize},
		{&ringfs.CorruptedError{}, classFilesystem},
		{&ringfs.UnsupportedVersionError{Version: 3}, classVersion},
		{errors.New("disk full"), ""},
	}
	for _, tt := range tests {
		if got := decodeFailureClass(tt.err); got != tt.want {
			t.Errorf("decodeFailureClass(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	m.RecordHTTPRequest("GET", "/", 200, 0)
	m.RecordImportFailure("container")
	m.UpdateArchiveStats(nil)

	called := false
	h := m.InstrumentHandler("GET", "/", func(w http.ResponseWriter, r *http.Request) { called = true })
	h(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))
	if !called {
		t.Error("Expected handler to be called")
	}
}

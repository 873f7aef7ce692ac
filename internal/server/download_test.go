package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDownloadHandler_InvalidMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/download/12345", nil)
	req.SetPathValue("code", "12345")
	rr := httptest.NewRecorder()

	Config{}.downloadHandler(nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rr.Code)
	}
}

func TestDownloadHandler_MalformedCode(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{name: "too short", code: "42"},
		{name: "too long", code: "424242"},
		{name: "letters", code: "fourt"},
		{name: "empty", code: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/download/x", nil)
			req.SetPathValue("code", tt.code)
			rr := httptest.NewRecorder()

			Config{}.downloadHandler(nil).ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400 for code %q, got %d", tt.code, rr.Code)
			}
		})
	}
}

package server

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
)

func multipartBody(t *testing.T, code string, file []byte, filename string) (*bytes.Buffer, string) {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	if code != "" {
		if err := writer.WriteField("code", code); err != nil {
			t.Fatalf("Failed to write code field: %v", err)
		}
	}

	if file != nil {
		part, err := writer.CreateFormFile("file", filename)
		if err != nil {
			t.Fatalf("Failed to create form file: %v", err)
		}
		if _, err := part.Write(file); err != nil {
			t.Fatalf("Failed to write file part: %v", err)
		}
	}

	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	return body, writer.FormDataContentType()
}

func TestUploadHandler_InvalidMethod(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/upload", nil)
	rr := httptest.NewRecorder()

	Config{}.uploadHandler(nil, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rr.Code)
	}
}

func TestUploadHandler_NotMultipart(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/upload", bytes.NewReader([]byte("not a form")))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()

	Config{}.uploadHandler(nil, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for non-multipart body, got %d", rr.Code)
	}
}

func TestUploadHandler_MalformedCodeRejectedBeforeStorage(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{name: "too short", code: "123"},
		{name: "too long", code: "123456"},
		{name: "letters", code: "abcde"},
		{name: "whitespace padded", code: " 1234"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Code field precedes the file part; the handler must reject
			// without touching blob storage (nil store would panic).
			body, contentType := multipartBody(t, tt.code, []byte("content"), "test.txt")
			req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
			req.Header.Set("Content-Type", contentType)
			rr := httptest.NewRecorder()

			Config{}.uploadHandler(nil, nil).ServeHTTP(rr, req)

			if rr.Code != http.StatusBadRequest {
				t.Errorf("Expected 400 for code %q, got %d", tt.code, rr.Code)
			}

			var resp errorResponse
			if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
				t.Fatalf("Failed to decode error body: %v", err)
			}
			if resp.Error != "code must be exactly 5 digits" {
				t.Errorf("Unexpected error message: %q", resp.Error)
			}
		})
	}
}

func TestUploadHandler_MissingFile(t *testing.T) {
	body, contentType := multipartBody(t, "12345", nil, "")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	Config{}.uploadHandler(nil, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing file, got %d", rr.Code)
	}
}

func TestUploadHandler_BodyCapTripsAtPartBoundary(t *testing.T) {
	// A form field large enough to blow the whole-body cap makes NextPart
	// fail with a wrapped MaxBytesError while skipping the part. That must
	// surface as 413, not 400.
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	if err := writer.WriteField("padding", string(bytes.Repeat([]byte{'x'}, 200<<10))); err != nil {
		t.Fatalf("Failed to write padding field: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	rr := httptest.NewRecorder()

	Config{MaxUploadBytes: 1024}.uploadHandler(nil, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413 when the body cap trips, got %d", rr.Code)
	}
}

func TestUploadHandler_EmptyForm(t *testing.T) {
	body, contentType := multipartBody(t, "", nil, "")
	req := httptest.NewRequest(http.MethodPost, "/api/upload", body)
	req.Header.Set("Content-Type", contentType)
	rr := httptest.NewRecorder()

	Config{}.uploadHandler(nil, nil).ServeHTTP(rr, req)

	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty form, got %d", rr.Code)
	}
}

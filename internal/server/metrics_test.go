package server

import "testing"

func TestNormalizePath(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "info with code", path: "/api/info/12345", want: "/api/info/{code}"},
		{name: "download with code", path: "/api/download/99999", want: "/api/download/{code}"},
		{name: "upload unchanged", path: "/api/upload", want: "/api/upload"},
		{name: "health unchanged", path: "/health", want: "/health"},
		{name: "metrics unchanged", path: "/metrics", want: "/metrics"},
		{name: "garbage code still collapsed", path: "/api/info/not-a-code", want: "/api/info/{code}"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := normalizePath(tt.path); got != tt.want {
				t.Errorf("normalizePath(%q) = %q, want %q", tt.path, got, tt.want)
			}
		})
	}
}

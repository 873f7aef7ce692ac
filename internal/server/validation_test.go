package server

import (
	"strings"
	"testing"
)

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		want     string
	}{
		{name: "plain name", filename: "report.pdf", want: "report.pdf"},
		{name: "path traversal", filename: "../../etc/passwd", want: "_.._etc_passwd"},
		{name: "windows separators", filename: `docs\secret.txt`, want: "docs_secret.txt"},
		{name: "null bytes stripped", filename: "evil\x00.txt", want: "evil.txt"},
		{name: "quotes replaced", filename: `my"file".txt`, want: `my_file_.txt`},
		{name: "leading dots trimmed", filename: "...hidden", want: "hidden"},
		{name: "empty becomes unnamed", filename: "", want: "unnamed"},
		{name: "only dots becomes unnamed", filename: "...", want: "unnamed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := sanitizeFilename(tt.filename); got != tt.want {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.filename, got, tt.want)
			}
		})
	}
}

func TestSanitizeFilenameLength(t *testing.T) {
	long := strings.Repeat("a", 300) + ".txt"
	got := sanitizeFilename(long)

	if len(got) > 255 {
		t.Errorf("sanitized name length = %d, want <= 255", len(got))
	}
	if !strings.HasSuffix(got, ".txt") {
		t.Errorf("sanitized name %q lost its extension", got)
	}
}

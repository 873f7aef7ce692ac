package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"
)

type infoResp struct {
	OriginalName  string    `json:"originalName"`
	Size          int64     `json:"size"`
	UploadDate    time.Time `json:"uploadDate"`
	DownloadCount int64     `json:"downloadCount"`
	SizeFormatted string    `json:"sizeFormatted"`
}

// formatSize renders a byte count as mebibytes with two decimals.
func formatSize(n int64) string {
	return fmt.Sprintf("%.2f MB", float64(n)/(1<<20))
}

// infoHandler handles GET /api/info/{code}. It returns presentation
// metadata only; the internal storage reference is never included.
func (cfg Config) infoHandler(store *Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		code := r.PathValue("code")
		if !validCodeFormat(code) {
			writeError(w, http.StatusBadRequest, "code must be exactly 5 digits")
			return
		}

		rec, err := store.GetRecord(r.Context(), code)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "file not found")
				return
			}
			rid := RequestIDFromContext(r.Context())
			log.Printf("rid=%s msg=get_record_failed code=%s err=%v", rid, code, err)
			writeError(w, http.StatusInternalServerError, "failed to get file info")
			return
		}

		writeJSON(w, http.StatusOK, infoResp{
			OriginalName:  rec.OriginalName,
			Size:          rec.Size,
			UploadDate:    rec.UploadedAt,
			DownloadCount: rec.DownloadCount,
			SizeFormatted: formatSize(rec.Size),
		})
	})
}

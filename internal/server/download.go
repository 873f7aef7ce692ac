package server

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strconv"
	"time"
)

// downloadHandler handles GET /api/download/{code}. The download counter is
// incremented once the blob is confirmed readable and before bytes flow, so
// every successful response counts exactly once.
func (cfg Config) downloadHandler(store *Store) http.Handler {
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

		rid := RequestIDFromContext(r.Context())

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
		defer cancel()

		rec, err := store.GetRecord(ctx, code)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				writeError(w, http.StatusNotFound, "file not found")
				return
			}
			log.Printf("rid=%s msg=get_record_failed code=%s err=%v", rid, code, err)
			writeError(w, http.StatusInternalServerError, "download failed")
			return
		}

		body, err := store.OpenBlobForRead(ctx, rec.StorageRef)
		if err != nil {
			if errors.Is(err, ErrBlobMissing) {
				// Record exists but the blob is gone: storage drifted from
				// the record store. Reported loudly for operators, plain 404
				// for the client.
				blobIntegrityFaults.Inc()
				log.Printf("rid=%s msg=blob_missing code=%s ref=%s", rid, code, rec.StorageRef)
				writeError(w, http.StatusNotFound, "file not found on server")
				return
			}
			log.Printf("rid=%s msg=open_blob_failed code=%s err=%v", rid, code, err)
			writeError(w, http.StatusInternalServerError, "download failed")
			return
		}
		defer func() { _ = body.Close() }()

		if err := store.IncrementDownload(ctx, code); err != nil {
			log.Printf("rid=%s msg=increment_failed code=%s err=%v", rid, code, err)
			writeError(w, http.StatusInternalServerError, "download failed")
			return
		}

		contentType := rec.ContentType
		if contentType == "" {
			contentType = "application/octet-stream"
		}
		w.Header().Set("Content-Type", contentType)
		if rec.Size > 0 {
			w.Header().Set("Content-Length", strconv.FormatInt(rec.Size, 10))
		}
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, rec.OriginalName))

		w.WriteHeader(http.StatusOK)
		if _, err := io.Copy(w, body); err != nil {
			// Headers are out; nothing to do but log the broken stream.
			log.Printf("rid=%s msg=stream_interrupted code=%s err=%v", rid, code, err)
			return
		}

		downloadsTotal.Inc()
	})
}

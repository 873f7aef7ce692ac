package server

import (
	"context"
	"errors"
	"io"
	"log"
	"net/http"
	"time"
)

// defaultMaxUploadBytes caps uploads at 10 MiB unless overridden.
const defaultMaxUploadBytes = 10 << 20

// multipartOverheadBytes is headroom on top of the file limit for multipart
// boundaries and the optional code field. The file part itself is limited
// separately so a file of exactly the configured size always fits.
const multipartOverheadBytes = 64 << 10

type uploadResp struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// uploadHandler handles POST /api/upload. The multipart form carries the
// file under "file" and an optional desired share code under "code".
//
// Flow: the blob is streamed to object storage first under a fresh opaque
// key, then a record binding {code -> blob} is inserted. If the bind fails
// the orphaned blob is deleted as a best-effort compensating action; there
// is no cross-store transaction. An oversized file is detected by byte
// count after streaming, so a transient blob may exist briefly before the
// compensating delete removes it; no record is ever bound to it.
func (cfg Config) uploadHandler(store *Store, alloc *Allocator) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		limit := cfg.MaxUploadBytes
		if limit <= 0 {
			limit = defaultMaxUploadBytes
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverheadBytes)

		mr, err := r.MultipartReader()
		if err != nil {
			writeError(w, http.StatusBadRequest, "no file uploaded")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
		defer cancel()

		rid := RequestIDFromContext(r.Context())

		var (
			candidate    string
			haveFile     bool
			storageRef   string
			size         int64
			originalName string
			contentType  string
		)

		// Compensating delete for a blob that ends up without a record.
		cleanup := func() {
			if storageRef == "" {
				return
			}
			if derr := store.DeleteBlob(ctx, storageRef); derr != nil {
				log.Printf("rid=%s msg=blob_cleanup_failed ref=%s err=%v", rid, storageRef, derr)
			}
		}

		for {
			part, err := mr.NextPart()
			if err == io.EOF {
				break
			}
			if err != nil {
				cleanup()
				// The body cap can trip inside NextPart, which wraps the
				// MaxBytesError.
				var mbe *http.MaxBytesError
				if errors.As(err, &mbe) {
					writeError(w, http.StatusRequestEntityTooLarge, "file too large")
					return
				}
				writeError(w, http.StatusBadRequest, "bad multipart body")
				return
			}

			switch part.FormName() {
			case "code":
				raw, rerr := io.ReadAll(io.LimitReader(part, 64))
				_ = part.Close()
				if rerr != nil {
					cleanup()
					writeError(w, http.StatusBadRequest, "bad multipart body")
					return
				}
				// No trimming: surrounding whitespace makes the code invalid.
				candidate = string(raw)
				if !validCodeFormat(candidate) {
					cleanup()
					writeError(w, http.StatusBadRequest, "code must be exactly 5 digits")
					return
				}
			case "file":
				if haveFile {
					_ = part.Close()
					continue
				}
				originalName = sanitizeFilename(part.FileName())
				contentType = part.Header.Get("Content-Type")
				if contentType == "" {
					contentType = "application/octet-stream"
				}

				// Limit the file part to limit+1 so an oversized upload is
				// detected by the byte count rather than a read error.
				ref, n, perr := store.CreateBlob(ctx, io.LimitReader(part, limit+1), originalName, contentType)
				_ = part.Close()
				if perr == nil {
					storageRef = ref
					size = n
					haveFile = true
					if size > limit {
						perr = ErrPayloadTooLarge
					}
				}
				if perr != nil {
					var mbe *http.MaxBytesError
					switch {
					case errors.Is(perr, ErrPayloadTooLarge), errors.As(perr, &mbe):
						cleanup()
						writeError(w, http.StatusRequestEntityTooLarge, "file too large")
					default:
						log.Printf("rid=%s msg=putblob_failed err=%v", rid, perr)
						writeError(w, http.StatusInternalServerError, "upload failed")
					}
					return
				}
			default:
				_ = part.Close()
			}
		}

		if !haveFile {
			writeError(w, http.StatusBadRequest, "no file uploaded")
			return
		}

		explicit := candidate != ""
		code, err := alloc.Reserve(ctx, candidate)
		if err != nil {
			cleanup()
			switch {
			case errors.Is(err, ErrInvalidFormat):
				writeError(w, http.StatusBadRequest, "code must be exactly 5 digits")
			case errors.Is(err, ErrCodeTaken):
				writeError(w, http.StatusConflict, "code already in use")
			default:
				log.Printf("rid=%s msg=reserve_failed err=%v", rid, err)
				writeError(w, http.StatusInternalServerError, "upload failed")
			}
			return
		}

		rec := FileRecord{
			Code:         code,
			OriginalName: originalName,
			StorageRef:   storageRef,
			ContentType:  contentType,
			Size:         size,
			UploadedAt:   time.Now().UTC(),
		}

		// The insert is the authoritative uniqueness check. An auto code
		// losing the race is redrawn; an explicit one surfaces the conflict.
		for {
			err = store.BindRecord(ctx, rec)
			if err == nil {
				break
			}
			if errors.Is(err, ErrCodeTaken) {
				if explicit {
					cleanup()
					writeError(w, http.StatusConflict, "code already in use")
					return
				}
				rec.Code, err = alloc.Reserve(ctx, "")
				if err == nil {
					continue
				}
			}
			cleanup()
			log.Printf("rid=%s msg=bind_failed code=%s err=%v", rid, rec.Code, err)
			writeError(w, http.StatusInternalServerError, "upload failed")
			return
		}

		mode := "auto"
		if explicit {
			mode = "explicit"
		}
		uploadsTotal.Inc()
		codesAllocatedTotal.WithLabelValues(mode).Inc()
		log.Printf("rid=%s msg=file_uploaded code=%s size=%d type=%s", rid, rec.Code, rec.Size, rec.ContentType)

		writeJSON(w, http.StatusCreated, uploadResp{
			Success: true,
			Code:    rec.Code,
			Message: "File uploaded successfully! Share code: " + rec.Code,
		})
	})
}

package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/minio/minio-go/v7"
)

// Error taxonomy surfaced by the store. Handlers translate these to HTTP
// status codes; anything else is an internal failure.
var (
	ErrCodeTaken       = errors.New("code already in use")
	ErrNotFound        = errors.New("file not found")
	ErrBlobMissing     = errors.New("blob missing for record")
	ErrPayloadTooLarge = errors.New("file too large")
)

const pgUniqueViolation = "23505"

// FileRecord is the durable binding between a share code and a stored blob.
// Code is the public identifier; StorageRef is internal and never leaves the
// server. DownloadCount is the only field that changes after creation.
type FileRecord struct {
	Code          string
	OriginalName  string
	StorageRef    string
	ContentType   string
	Size          int64
	UploadedAt    time.Time
	DownloadCount int64
}

// Store combines the record table (Postgres) with the blob area (MinIO).
// Uniqueness of codes is enforced by the primary key on files.code, not by
// any in-process locking.
type Store struct {
	db     *sql.DB
	blobs  *minio.Client
	bucket string
}

func NewStore(db *sql.DB, blobs *minio.Client, bucket string) *Store {
	return &Store{db: db, blobs: blobs, bucket: bucket}
}

// newStorageRef builds a fresh unguessable object key. The original file
// extension is kept so operators browsing the bucket can tell what a blob
// is; the name itself is never derived from user input.
func newStorageRef(originalName string) string {
	return "blobs/" + uuid.New().String() + filepath.Ext(originalName)
}

// CreateBlob streams src into object storage under a server-generated key
// and returns the key and the number of bytes written. No code is involved
// yet; binding happens separately via BindRecord.
func (s *Store) CreateBlob(ctx context.Context, src io.Reader, originalName, contentType string) (string, int64, error) {
	ref := newStorageRef(originalName)
	info, err := s.blobs.PutObject(ctx, s.bucket, ref, src, -1, minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return "", 0, fmt.Errorf("put blob: %w", err)
	}
	return ref, info.Size, nil
}

// DeleteBlob removes a blob. Used as the compensating action when a record
// bind fails after the blob was already written.
func (s *Store) DeleteBlob(ctx context.Context, storageRef string) error {
	return s.blobs.RemoveObject(ctx, s.bucket, storageRef, minio.RemoveObjectOptions{})
}

// BindRecord inserts a new record for an already-persisted blob. A unique
// violation on the code column is the authoritative signal that the code is
// taken; any pre-check by the allocator is only an optimization.
func (s *Store) BindRecord(ctx context.Context, rec FileRecord) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO files (code, storage_ref, orig_name, content_type, size_bytes, uploaded_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, rec.Code, rec.StorageRef, rec.OriginalName, rec.ContentType, rec.Size, rec.UploadedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == "files_pkey" {
			return ErrCodeTaken
		}
		return fmt.Errorf("insert file record: %w", err)
	}
	return nil
}

// GetRecord looks up the record bound to code.
func (s *Store) GetRecord(ctx context.Context, code string) (FileRecord, error) {
	var rec FileRecord
	err := s.db.QueryRowContext(ctx, `
		SELECT code, storage_ref, orig_name, content_type, size_bytes, uploaded_at, download_count
		FROM files
		WHERE code = $1
	`, code).Scan(
		&rec.Code,
		&rec.StorageRef,
		&rec.OriginalName,
		&rec.ContentType,
		&rec.Size,
		&rec.UploadedAt,
		&rec.DownloadCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return FileRecord{}, ErrNotFound
		}
		return FileRecord{}, fmt.Errorf("select file record: %w", err)
	}
	return rec, nil
}

// CodeExists reports whether a live record is already bound to code.
func (s *Store) CodeExists(ctx context.Context, code string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM files WHERE code = $1)`,
		code,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check code: %w", err)
	}
	return exists, nil
}

// IncrementDownload bumps the download counter for code. The increment is a
// single SQL UPDATE so concurrent downloads never lose updates.
func (s *Store) IncrementDownload(ctx context.Context, code string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE files SET download_count = download_count + 1 WHERE code = $1`,
		code,
	)
	if err != nil {
		return fmt.Errorf("increment download count: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment download count: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// OpenBlobForRead opens the blob behind storageRef for streaming. A missing
// object is reported as ErrBlobMissing, distinct from ErrNotFound, because
// a record without its blob is a data-integrity fault rather than a bad
// client request.
func (s *Store) OpenBlobForRead(ctx context.Context, storageRef string) (io.ReadCloser, error) {
	obj, err := s.blobs.GetObject(ctx, s.bucket, storageRef, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("open blob: %w", err)
	}

	// GetObject is lazy; Stat forces an early error for a missing object.
	if _, err := obj.Stat(); err != nil {
		_ = obj.Close()
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return nil, ErrBlobMissing
		}
		return nil, fmt.Errorf("stat blob: %w", err)
	}

	return obj, nil
}

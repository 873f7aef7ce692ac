package server

import (
	"context"
	"database/sql"
	"net"
	"net/http"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Config struct {
	Addr           string // e.g. ":8080"
	DB             *sql.DB
	Blobs          *minio.Client
	Bucket         string
	MaxUploadBytes int64 // 0 means the 10 MiB default
}

type Server struct {
	httpServer *http.Server
	db         *sql.DB
	blobs      *minio.Client
	bucket     string
}

func New(cfg Config) *Server {
	store := NewStore(cfg.DB, cfg.Blobs, cfg.Bucket)
	alloc := NewAllocator(store)

	s := &Server{
		db:     cfg.DB,
		blobs:  cfg.Blobs,
		bucket: cfg.Bucket,
	}

	mux := http.NewServeMux()
	mux.Handle("/api/upload", cfg.uploadHandler(store, alloc))
	mux.Handle("/api/info/{code}", cfg.infoHandler(store))
	mux.Handle("/api/download/{code}", cfg.downloadHandler(store))
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/ready", s.handleReady)

	// Wrap middleware: requestID -> logging -> metrics -> mux
	var handler http.Handler = mux
	handler = metricsMiddleware(handler)
	handler = loggingMiddleware(handler)
	handler = requestIDMiddleware(handler)

	s.httpServer = &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

// Handler exposes the fully wired handler chain for in-process test servers.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return err
	}
	return s.httpServer.Serve(ln)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

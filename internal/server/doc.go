// Package server implements the HTTP server and handlers for the code drop
// service: upload a file, get a 5-digit share code, fetch metadata or
// download by code. It wires together the record store (Postgres), the blob
// area (MinIO), and lifecycle helpers used by tests and the production
// binary.
package server

// Package core holds the contract every report artifact backend satisfies.
package core

import (
	"context"
	"errors"
	"io"
	"maps"
	"time"
)

// Driver names a backend in configuration.
type Driver string

const (
	DriverFilesystem Driver = "fs"
	DriverS3         Driver = "s3"
	DriverMemory     Driver = "memory"
)

// PutOptions carries what the report worker attaches to an artifact.
type PutOptions struct {
	ContentType string
	Metadata    map[string]string
}

// Info is the stored view of an artifact. It is embedded in report jobs.
type Info struct {
	Key          string            `json:"key"`
	Size         int64             `json:"size_bytes"`
	ContentType  string            `json:"content_type,omitempty"`
	ETag         string            `json:"etag,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	LastModified time.Time         `json:"last_modified"`
}

// Store holds report artifacts. Put is create-only; the report worker writes
// each artifact once under a job-scoped key and serves it back through Get.
type Store interface {
	Put(ctx context.Context, key string, r io.Reader, opts PutOptions) (Info, error)
	Get(ctx context.Context, key string) (Info, io.ReadCloser, error)
	Driver() Driver
}

var (
	ErrNotFound = errors.New("blob: not found")
	ErrExists   = errors.New("blob: key already written")
)

// CloneMetadata copies md, keeping nil as nil.
func CloneMetadata(md map[string]string) map[string]string {
	if md == nil {
		return nil
	}
	return maps.Clone(md)
}

// Package blob is where report artifacts are stored. Callers hold a Store;
// Open picks the backend named in configuration.
package blob

import (
	"context"
	"fmt"

	"labstock/internal/blob/core"
	"labstock/internal/infra/blob/fs"
	"labstock/internal/infra/blob/memory"
	"labstock/internal/infra/blob/s3"
)

type (
	Driver     = core.Driver
	PutOptions = core.PutOptions
	Info       = core.Info
	Store      = core.Store
	// S3Config is passed through to the S3 backend unchanged.
	S3Config = s3.Config
)

const (
	DriverFilesystem = core.DriverFilesystem
	DriverS3         = core.DriverS3
	DriverMemory     = core.DriverMemory
)

var (
	ErrNotFound = core.ErrNotFound
	ErrExists   = core.ErrExists
)

// Config selects and configures the artifact store.
type Config struct {
	Driver string
	FSRoot string
	S3     S3Config
}

// Open builds the Store named by cfg.Driver, defaulting to the filesystem.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch Driver(cfg.Driver) {
	case "", DriverFilesystem:
		return fs.New(cfg.FSRoot)
	case DriverS3:
		return s3.New(ctx, cfg.S3)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.Driver)
	}
}

// NewMemory returns an empty process-local Store.
func NewMemory() Store { return memory.New() }

// NewMockS3ForTests returns an S3 Store whose client talks to an in-process
// fake, for tests outside the backend package.
func NewMockS3ForTests() Store { return s3.NewMockForTests() }

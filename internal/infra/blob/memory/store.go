// Package memory keeps report artifacts in process memory. The HTTP tests and
// the memory blob driver use it.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"labstock/internal/blob/core"
)

type artifact struct {
	info core.Info
	body []byte
}

// Store implements core.Store over a map guarded by a mutex.
type Store struct {
	mu        sync.Mutex
	artifacts map[string]artifact
}

// New returns an empty Store.
func New() *Store { return &Store{artifacts: make(map[string]artifact)} }

func (s *Store) Driver() core.Driver { return core.DriverMemory }

// Put keeps a private copy of r. A key can be written once.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	if strings.TrimSpace(key) == "" {
		return core.Info{}, fmt.Errorf("empty key")
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return core.Info{}, fmt.Errorf("read blob %s: %w", key, err)
	}
	digest := sha256.Sum256(body)
	info := core.Info{
		Key:          key,
		Size:         int64(len(body)),
		ContentType:  opts.ContentType,
		ETag:         hex.EncodeToString(digest[:]),
		Metadata:     core.CloneMetadata(opts.Metadata),
		LastModified: time.Now().UTC(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, taken := s.artifacts[key]; taken {
		return core.Info{}, fmt.Errorf("blob %s: %w", key, core.ErrExists)
	}
	s.artifacts[key] = artifact{info: info, body: body}
	info.Metadata = core.CloneMetadata(info.Metadata)
	return info, nil
}

// Get returns a reader over the stored bytes. Stored bodies are never mutated,
// so readers share them.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	s.mu.Lock()
	a, ok := s.artifacts[key]
	s.mu.Unlock()
	if !ok {
		return core.Info{}, nil, fmt.Errorf("blob %s: %w", key, core.ErrNotFound)
	}
	info := a.info
	info.Metadata = core.CloneMetadata(info.Metadata)
	return info, io.NopCloser(bytes.NewReader(a.body)), nil
}

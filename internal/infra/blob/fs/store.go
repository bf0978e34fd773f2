// Package fs keeps report artifacts as files under a root directory. Each
// artifact has a hidden JSON sidecar with its content type and metadata.
package fs

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"labstock/internal/blob/core"
)

const (
	defaultRoot   = "./reports"
	sidecarPrefix = "."
	sidecarSuffix = ".json"
)

// Store implements core.Store on a directory tree.
type Store struct {
	root string
	now  func() time.Time
}

// New opens a store under root, creating the directory when missing.
func New(root string) (*Store, error) {
	if root == "" {
		root = defaultRoot
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create blob root: %w", err)
	}
	return &Store{root: root, now: func() time.Time { return time.Now().UTC() }}, nil
}

func (s *Store) Driver() core.Driver { return core.DriverFilesystem }

// cleanKey normalises a slash-separated key and refuses anything that could
// leave root or collide with a sidecar.
func cleanKey(key string) (string, error) {
	key = strings.TrimSpace(key)
	switch {
	case key == "":
		return "", errors.New("empty key")
	case strings.HasPrefix(key, "/"):
		return "", fmt.Errorf("key %q is absolute", key)
	}
	for _, part := range strings.Split(key, "/") {
		if part == ".." {
			return "", fmt.Errorf("key %q leaves the store root", key)
		}
		if strings.HasPrefix(part, sidecarPrefix) {
			return "", fmt.Errorf("key %q has a hidden segment", key)
		}
	}
	return path.Clean(key), nil
}

// files returns the artifact path and its sidecar for key.
func (s *Store) files(key string) (string, string, error) {
	k, err := cleanKey(key)
	if err != nil {
		return "", "", err
	}
	data := filepath.Join(s.root, filepath.FromSlash(k))
	dir, name := filepath.Split(data)
	return data, filepath.Join(dir, sidecarPrefix+name+sidecarSuffix), nil
}

type sidecar struct {
	ContentType string            `json:"content_type,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	SHA256      string            `json:"sha256"`
	Size        int64             `json:"size"`
	WrittenAt   time.Time         `json:"written_at"`
}

func (sc sidecar) info(key string) core.Info {
	return core.Info{
		Key:          key,
		Size:         sc.Size,
		ContentType:  sc.ContentType,
		ETag:         sc.SHA256,
		Metadata:     core.CloneMetadata(sc.Metadata),
		LastModified: sc.WrittenAt,
	}
}

// Put streams r into a temp file and links it into place, so a concurrent Put
// on the same key fails with ErrExists instead of overwriting. Get reports
// ErrNotFound until the sidecar lands.
func (s *Store) Put(_ context.Context, key string, r io.Reader, opts core.PutOptions) (core.Info, error) {
	dataPath, metaPath, err := s.files(key)
	if err != nil {
		return core.Info{}, err
	}
	dir := filepath.Dir(dataPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return core.Info{}, err
	}
	tmp, err := os.CreateTemp(dir, sidecarPrefix+"upload-*")
	if err != nil {
		return core.Info{}, err
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	sum := sha256.New()
	size, err := io.Copy(io.MultiWriter(tmp, sum), r)
	if err == nil {
		err = tmp.Sync()
	}
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return core.Info{}, fmt.Errorf("write blob %s: %w", key, err)
	}

	sc := sidecar{
		ContentType: opts.ContentType,
		Metadata:    core.CloneMetadata(opts.Metadata),
		SHA256:      hex.EncodeToString(sum.Sum(nil)),
		Size:        size,
		WrittenAt:   s.now(),
	}
	raw, err := json.Marshal(sc)
	if err != nil {
		return core.Info{}, err
	}
	if err := os.Link(tmp.Name(), dataPath); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return core.Info{}, fmt.Errorf("blob %s: %w", key, core.ErrExists)
		}
		return core.Info{}, err
	}
	if err := os.WriteFile(metaPath, raw, 0o644); err != nil {
		_ = os.Remove(dataPath)
		return core.Info{}, err
	}
	return sc.info(key), nil
}

// Get opens the artifact for key. The caller closes the reader.
func (s *Store) Get(_ context.Context, key string) (core.Info, io.ReadCloser, error) {
	dataPath, metaPath, err := s.files(key)
	if err != nil {
		return core.Info{}, nil, err
	}
	raw, err := os.ReadFile(metaPath)
	if err != nil {
		return core.Info{}, nil, missing(key, err)
	}
	var sc sidecar
	if err := json.Unmarshal(raw, &sc); err != nil {
		return core.Info{}, nil, fmt.Errorf("decode sidecar for %s: %w", key, err)
	}
	f, err := os.Open(dataPath)
	if err != nil {
		return core.Info{}, nil, missing(key, err)
	}
	return sc.info(key), f, nil
}

func missing(key string, err error) error {
	if errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("blob %s: %w", key, core.ErrNotFound)
	}
	return err
}

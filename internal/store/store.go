// Package store persists the list of saved model configurations as a single JSON document.
package store

import (
	"bytes"
	"context"
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"

	v1 "github.com/danilofalcao/chat-relay/internal/api/chat/v1"
	logutils "github.com/danilofalcao/chat-relay/internal/utils/logger"
	"github.com/pkg/errors"
)

// ErrNoDocument is returned by Load when nothing has been saved yet.
var ErrNoDocument = errors.New("no model config document")

// ConfigStore holds the flat list of model configurations. Replace overwrites the whole list;
// there is no locking, so concurrent Replace calls race and the last writer wins.
type ConfigStore interface {
	List(ctx context.Context) []v1.ModelConfig
	Replace(ctx context.Context, configs []v1.ModelConfig) error
}

var _ ConfigStore = &FileStore{}

type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Path returns the location of the JSON document
func (s *FileStore) Path() string {
	return s.path
}

// Load reads and decodes the document. Unlike List it reports every failure.
func (s *FileStore) Load() ([]v1.ModelConfig, error) {
	b, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, errors.Wrap(err, "error reading model configs")
	}

	var configs []v1.ModelConfig
	if err := json.Unmarshal(b, &configs); err != nil {
		return nil, errors.Wrap(err, "error decoding model configs")
	}
	return configs, nil
}

// List returns the saved configs under the EmptyOnError policy.
func (s *FileStore) List(ctx context.Context) []v1.ModelConfig {
	configs, err := s.Load()
	return EmptyOnError(ctx, configs, err)
}

// EmptyOnError is the read fallback policy: a missing or unreadable document is the same as an
// empty list. The error is logged, never returned.
func EmptyOnError(ctx context.Context, configs []v1.ModelConfig, err error) []v1.ModelConfig {
	if err != nil {
		if !errors.Is(err, ErrNoDocument) {
			logutils.FromContext(ctx).Warnf(ctx, "treating model configs as empty: %s", err.Error())
		}
		return []v1.ModelConfig{}
	}
	if configs == nil {
		return []v1.ModelConfig{}
	}
	return configs
}

// Replace overwrites the document with configs. The write goes through a temp file and a
// rename so readers never see a partial document.
func (s *FileStore) Replace(ctx context.Context, configs []v1.ModelConfig) error {
	if configs == nil {
		configs = []v1.ModelConfig{}
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "    ")
	if err := enc.Encode(configs); err != nil {
		return errors.Wrap(err, "error encoding model configs")
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "error creating model config directory")
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return errors.Wrap(err, "error creating temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return errors.Wrap(err, "error writing model configs")
	}
	if err := tmp.Close(); err != nil {
		return errors.Wrap(err, "error closing temp file")
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return errors.Wrap(err, "error replacing model configs")
	}

	logutils.FromContext(ctx).Debugf(ctx, "saved %d model configs to %s", len(configs), s.path)
	return nil
}

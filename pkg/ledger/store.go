package ledger

import (
	"os"
	"path/filepath"

	"github.com/arthur-debert/relink/pkg/types"
)

// Store is the durable backend for the ledger slot. Write overwrites the
// slot wholesale; Read reports absence through its second return.
type Store interface {
	Write(data []byte) error
	Read() (data []byte, ok bool, err error)
	Delete() error
}

// fsStore keeps the slot in a single file on a types.FS.
type fsStore struct {
	fs   types.FS
	path string
}

// NewFSStore creates a Store persisting to path on fs.
func NewFSStore(fs types.FS, path string) Store {
	return &fsStore{fs: fs, path: path}
}

func (s *fsStore) Write(data []byte) error {
	if err := s.fs.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}
	return s.fs.WriteFile(s.path, data, 0644)
}

func (s *fsStore) Read() ([]byte, bool, error) {
	data, err := s.fs.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	return data, true, nil
}

func (s *fsStore) Delete() error {
	err := s.fs.Remove(s.path)
	if err != nil && os.IsNotExist(err) {
		return nil
	}
	return err
}

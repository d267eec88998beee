package config

import (
	"io"
	"os"

	"github.com/pkg/errors"
)

// FileStore persists the tuning blob in a single file, standing in for the
// EEPROM of the original vehicle.
type FileStore struct {
	Path string
}

var _ Store = (*FileStore)(nil)

// ReadInto fills b from the file.
func (f *FileStore) ReadInto(b []byte) error {
	fd, err := os.Open(f.Path)
	if err != nil {
		return errors.Wrap(err, "open tuning store")
	}
	defer fd.Close()
	if _, err := io.ReadFull(fd, b); err != nil {
		return errors.Wrap(err, "read tuning store")
	}
	return nil
}

// Write persists b, replacing any previous contents.
func (f *FileStore) Write(b []byte) error {
	return errors.Wrap(os.WriteFile(f.Path, b, 0o644), "write tuning store")
}

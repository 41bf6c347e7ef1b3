package cmd

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/multierr"

	"github.com/luma/ovpnctl/storage"
)

// restoreSnapshot seeds store from the file at path. A missing file is not
// an error, restored is false then.
func restoreSnapshot(store storage.Store, path string) (restored bool, err error) {
	values, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	if err := store.Restore(values); err != nil {
		return false, fmt.Errorf("Failed to restore snapshot '%s': %w", path, err)
	}

	return true, nil
}

// saveSnapshot writes the store's document to path. The file is replaced
// atomically.
func saveSnapshot(store storage.Store, path string) (err error) {
	values, err := store.Backup()
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*")
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = os.Remove(tmp.Name())
		}
	}()

	_, err = tmp.Write(values)
	if err = multierr.Append(err, tmp.Close()); err != nil {
		return err
	}

	return os.Rename(tmp.Name(), path)
}

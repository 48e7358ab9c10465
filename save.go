package main

import (
	"os"
	"path/filepath"

	"github.com/pkg/errors"
)

// save writes content to dir/name. The data goes to a temporary file in dir
// first and is renamed into place, so a failed save never leaves a partial
// file behind. An existing file of the same name is replaced.
func save(content, name, dir string) (path string, err error) {
	path = filepath.Join(dir, name)

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", writeError(errors.Wrap(err, "creating temporary file"))
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	if _, err = tmp.WriteString(content); err != nil {
		return "", writeError(errors.Wrapf(err, "writing %s", path))
	}
	if err = tmp.Sync(); err != nil {
		return "", writeError(errors.Wrapf(err, "syncing %s", path))
	}
	if err = tmp.Close(); err != nil {
		return "", writeError(errors.Wrapf(err, "closing %s", path))
	}
	if err = os.Chmod(tmp.Name(), 0644); err != nil {
		return "", writeError(errors.Wrapf(err, "setting mode of %s", path))
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return "", writeError(errors.Wrapf(err, "renaming into %s", path))
	}
	return path, nil
}

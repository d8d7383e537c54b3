package storage

import (
	"bytes"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Folder is a named group of files kept in a DB. A file called "f" in
// folder "d" is stored under the key "d/f", so several engines can share one
// database, each in its own folder.
type Folder struct {
	inner  DB
	prefix []byte
}

// NewFolder returns the folder called name inside inner.
func NewFolder(inner DB, name string) *Folder {
	return &Folder{inner: inner, prefix: []byte(strings.TrimSuffix(name, "/") + "/")}
}

// FolderKey returns the DB key of file inside folder.
func FolderKey(folder, file string) []byte {
	return []byte(strings.TrimSuffix(folder, "/") + "/" + file)
}

func (f *Folder) key(file string) ([]byte, error) {
	if file == "" || strings.Contains(file, "/") {
		return nil, fmt.Errorf("invalid file name %q", file)
	}
	out := make([]byte, 0, len(f.prefix)+len(file))
	out = append(out, f.prefix...)
	return append(out, file...), nil
}

// Read returns the contents of file, or ErrNotFound.
func (f *Folder) Read(file string) ([]byte, error) {
	k, err := f.key(file)
	if err != nil {
		return nil, err
	}
	return f.inner.Get(k)
}

// Write replaces the contents of file.
func (f *Folder) Write(file string, data []byte) error {
	k, err := f.key(file)
	if err != nil {
		return err
	}
	return f.inner.Put(k, data)
}

// Remove deletes file. Removing a missing file is not an error.
func (f *Folder) Remove(file string) error {
	k, err := f.key(file)
	if err != nil {
		return err
	}
	return f.inner.Delete(k)
}

// Exists reports whether file is present.
func (f *Folder) Exists(file string) (bool, error) {
	k, err := f.key(file)
	if err != nil {
		return false, err
	}
	return f.inner.Has(k)
}

// List returns the sorted names of the files in the folder.
func (f *Folder) List() ([]string, error) {
	var names []string
	err := f.inner.ForEach(f.prefix, func(key, _ []byte) error {
		name := key[len(f.prefix):]
		if bytes.IndexByte(name, '/') < 0 {
			names = append(names, string(name))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	return names, nil
}

// Clear removes every file in the folder.
func (f *Folder) Clear() error {
	// Collect first; deleting while iterating is not safe for every backend.
	names, err := f.List()
	if err != nil {
		return err
	}
	var errs []error
	for _, name := range names {
		if err := f.Remove(name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

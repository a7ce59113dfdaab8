package gpr

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// ValidateInput checks that path names an existing, readable, non-empty
// regular file. It distinguishes not-found from empty/corrupt so the error
// surface stays precise.
func ValidateInput(path string) error {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return newFileError(path, CodeFileNotFound, "input file does not exist: "+path)
	case errors.Is(err, fs.ErrPermission):
		return newFileError(path, CodeFilePermission, "input file is not readable: "+path)
	case err != nil:
		return newFileError(path, CodeNone, "cannot access input file "+path+": "+err.Error())
	}
	if info.IsDir() {
		return newFileError(path, CodeFileNotFound, "input path is a directory: "+path)
	}
	if info.Size() <= 0 {
		return newFileError(path, CodeFileCorrupted, "input file is empty or corrupted: "+path)
	}
	return nil
}

// ReadFile reads the whole file at path into a buffer allocated through a.
// The caller owns the returned buffer and must release it through the same
// allocator.
func ReadFile(path string, a Allocator) (Buffer, error) {
	f, err := os.Open(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return Buffer{}, newFileError(path, CodeFileNotFound, "input file does not exist: "+path)
	case errors.Is(err, fs.ErrPermission):
		return Buffer{}, newFileError(path, CodeFilePermission, "input file is not readable: "+path)
	case err != nil:
		return Buffer{}, newFileError(path, CodeNone, "cannot open "+path+": "+err.Error())
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Buffer{}, newFileError(path, CodeNone, "cannot stat "+path+": "+err.Error())
	}
	size := int(info.Size())
	if size <= 0 {
		return Buffer{}, newFileError(path, CodeFileCorrupted, "input file is empty or corrupted: "+path)
	}

	data := a.Alloc(size)
	if data == nil {
		return Buffer{}, newMemoryError("allocator returned no memory reading "+path, size)
	}
	buf := Buffer{Data: data}
	if _, err := io.ReadFull(f, buf.Data); err != nil {
		buf.Release(a)
		return Buffer{}, newFileError(path, CodeFileCorrupted, "short read from "+path+": "+err.Error())
	}
	return buf, nil
}

// WriteFile writes the buffer to path. The write goes through a uniquely
// named temp file in the target directory followed by a rename, so a failed
// conversion never leaves a partial output behind.
func WriteFile(buf *Buffer, path string) error {
	if buf.Empty() {
		return newFileError(path, CodeNone, "refusing to write empty buffer to "+path)
	}
	dir := filepath.Dir(path)
	tmp := filepath.Join(dir, "."+filepath.Base(path)+"."+uuid.NewString()+".tmp")

	f, err := os.OpenFile(tmp, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return newFileError(path, CodeNone, "cannot create output file "+path+": "+err.Error())
	}
	if _, err := f.Write(buf.Data); err != nil {
		f.Close()
		os.Remove(tmp)
		return newFileError(path, CodeNone, "cannot write output file "+path+": "+err.Error())
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return newFileError(path, CodeNone, "cannot finish output file "+path+": "+err.Error())
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return newFileError(path, CodeNone, "cannot place output file "+path+": "+err.Error())
	}
	return nil
}

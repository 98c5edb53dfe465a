package core

import "io"

// FileStore persists uploaded blobs and returns a reference path that can be
// served back to clients. Implementations own naming and collision handling.
type FileStore interface {
	Save(filename string, r io.Reader) (string, error)
}

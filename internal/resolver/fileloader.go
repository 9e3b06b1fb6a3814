package resolver

import (
	"context"
	"os"
)

// FileLoader loads `@import` paths from the local filesystem, relative to
// the working directory the compiler is invoked from. This is the only
// Loader cmd/facet ships; an embedding host with its own notion of "path"
// (a virtual registry, an embedded FS) supplies its own Loader instead.
type FileLoader struct{}

// Load implements Loader by reading path as a plain file.
func (FileLoader) Load(_ context.Context, path string) (string, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

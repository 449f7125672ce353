package services

import (
	"path/filepath"
	"strings"

	"github.com/papercomputeco/papers/pkg/dotdir"
)

const (
	// RecordsDBFile is the default SQLite record store file name.
	RecordsDBFile = "papers.db"

	// VectorsDBFile is the default sqlite-vec index file name.
	VectorsDBFile = "vectors.db"
)

// ResolveDataPath returns override when set, otherwise name inside the
// resolved .papers/ directory, creating the directory if needed.
// ":memory:" is passed through untouched.
func ResolveDataPath(override, configDir, name string) (string, error) {
	if p := strings.TrimSpace(override); p != "" {
		return p, nil
	}

	dir, err := dotdir.NewManager().Ensure(configDir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

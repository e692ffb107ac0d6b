package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"railnet.ai/internal/persistence/indexdb"
)

// openRuntimeIndex opens the read-model index for one namespace, or nil when
// indexing is off.
func openRuntimeIndex(worldDir string, disableDB bool) (*indexdb.SQLiteIndex, error) {
	if disableDB {
		return nil, nil
	}

	backend := strings.ToLower(strings.TrimSpace(os.Getenv("RAILNET_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		return indexdb.OpenSQLite(filepath.Join(worldDir, "index", "world.sqlite"))
	default:
		return nil, fmt.Errorf("unsupported RAILNET_INDEX_BACKEND: %s", backend)
	}
}

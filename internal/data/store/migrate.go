package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/lzray/focustrace/internal/util"
)

const migrationMarker = ".migrated"

// MigrateLegacyData copies JSON files from previously used storage
// locations into dataDir without overwriting anything already there.
// Runs once: a marker file in dataDir makes later calls a no-op.
func MigrateLegacyData(legacyDirs []string, dataDir string) (int, error) {
	markerPath := filepath.Join(dataDir, migrationMarker)
	if _, err := os.Stat(markerPath); err == nil {
		return 0, nil
	}

	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return 0, err
	}

	migrated := 0
	for _, legacyDir := range legacyDirs {
		entries, err := os.ReadDir(legacyDir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			dst := filepath.Join(dataDir, entry.Name())
			if _, err := os.Stat(dst); err == nil {
				continue
			}
			src := filepath.Join(legacyDir, entry.Name())
			if err := copyFile(src, dst); err != nil {
				util.LogWarnf("Failed to migrate %s: %v", src, err)
				continue
			}
			migrated++
		}
	}

	if err := os.WriteFile(markerPath, []byte{}, 0644); err != nil {
		util.LogWarnf("Failed to write migration marker: %v", err)
	}
	if migrated > 0 {
		util.LogInfof("Migrated %d files from legacy storage locations", migrated)
	}
	return migrated, nil
}

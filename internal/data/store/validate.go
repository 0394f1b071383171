package store

import (
	"fmt"
	"time"

	"github.com/lzray/focustrace/internal/util"
)

// Record is a persistable entry in an ordered collection
type Record interface {
	RecordID() string
	RecordTime() time.Time
	Validate(now time.Time) error
}

// ValidateRecords applies the schema and semantic rules for a
// collection: per-record validation, unique ids, and a chronological
// ordering check. Out-of-order records are a logged warning, not a
// rejection; the store sorts on load anyway.
func ValidateRecords[T Record](collection string, records []T, now time.Time) error {
	seen := make(map[string]struct{}, len(records))

	for i, record := range records {
		if err := record.Validate(now); err != nil {
			return fmt.Errorf("record %d: %w", i, err)
		}
		id := record.RecordID()
		if _, dup := seen[id]; dup {
			return fmt.Errorf("record %d: duplicate id %s", i, id)
		}
		seen[id] = struct{}{}

		if i > 0 && record.RecordTime().Before(records[i-1].RecordTime()) {
			util.LogWarnf("Collection %s: record %s at index %d is out of chronological order",
				collection, id, i)
		}
	}

	return nil
}

package history

import "time"

// SetClock replaces the store clock for deterministic ordering in tests.
func SetClock(s *Store, now func() time.Time) {
	s.now = now
}

// ForceSchemaVersion overwrites the stored schema version.
func ForceSchemaVersion(s *Store, version int) error {
	_, err := s.db.Exec("UPDATE schema_version SET version = ?", version)
	return err
}

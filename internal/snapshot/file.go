package snapshot

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"
)

var (
	// ErrNotFound is returned when the backup file does not exist.
	ErrNotFound = errors.New("backup file not found")
	// ErrMalformed is returned when the backup file is not a valid snapshot.
	ErrMalformed = errors.New("malformed backup file")
)

// Load reads a snapshot saved by Save.
func Load(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read backup %s: %w", path, err)
	}
	return Decode(data)
}

// Decode parses snapshot JSON. Both top-level keys are required.
func Decode(data []byte) (*Snapshot, error) {
	var raw struct {
		Groups   *[]Group   `json:"groups"`
		Services *[]Service `json:"services"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if raw.Groups == nil || raw.Services == nil {
		return nil, fmt.Errorf("%w: expected \"groups\" and \"services\" keys", ErrMalformed)
	}
	return &Snapshot{Groups: *raw.Groups, Services: *raw.Services}, nil
}

// Encode renders the snapshot as UTF-8 JSON with 4-space indentation.
func Encode(snap *Snapshot) ([]byte, error) {
	out := snap
	if out.Groups == nil || out.Services == nil {
		out = snap.Clone()
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(out); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes the snapshot to path.
func Save(path string, snap *Snapshot) error {
	data, err := Encode(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write backup %s: %w", path, err)
	}
	return nil
}

// BackupFileName is the conventional name for an account backup taken at now.
func BackupFileName(account string, now time.Time) string {
	return fmt.Sprintf("fstatus_%s_services_backup-%s.json", account, now.Format("200601021504"))
}

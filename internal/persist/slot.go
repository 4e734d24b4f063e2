package persist

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/renameio/v2"
)

// SlotKey names the persisted timer slot.
const SlotKey = "timerState"

// Slot is a single durable key-value entry.
type Slot interface {
	// Read returns the stored bytes, or an error wrapping os.ErrNotExist when
	// nothing was stored yet.
	Read() ([]byte, error)
	Write(data []byte) error
	// Remove deletes the entry. Removing a missing entry is not an error.
	Remove() error
}

// FileSlot stores the slot as <Dir>/timerState.json.
type FileSlot struct {
	Dir string
}

// Path returns the file backing the slot.
func (s FileSlot) Path() string {
	return filepath.Join(s.Dir, SlotKey+".json")
}

// Read implements Slot.
func (s FileSlot) Read() ([]byte, error) {
	if strings.TrimSpace(s.Dir) == "" {
		return nil, fmt.Errorf("state dir is empty")
	}
	data, err := os.ReadFile(s.Path())
	if err != nil {
		return nil, fmt.Errorf("read slot: %w", err)
	}
	return data, nil
}

// Write replaces the slot contents, creating the directory as needed. A
// reader sees either the old contents or the new ones, never a partial file.
func (s FileSlot) Write(data []byte) error {
	if strings.TrimSpace(s.Dir) == "" {
		return fmt.Errorf("state dir is empty")
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return fmt.Errorf("create state dir: %w", err)
	}
	if err := renameio.WriteFile(s.Path(), data, 0o600, renameio.WithTempDir(s.Dir)); err != nil {
		return fmt.Errorf("write slot: %w", err)
	}
	return nil
}

// Remove implements Slot.
func (s FileSlot) Remove() error {
	if err := os.Remove(s.Path()); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove slot: %w", err)
	}
	return nil
}

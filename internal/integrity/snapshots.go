package integrity

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// StaticSnapshots is an in-memory SnapshotRepository. The CLI loads one
// from a JSON file exported by the cached-state collaborator; tests build
// them directly.
type StaticSnapshots struct {
	Tasks map[string]*CachedTaskSnapshot `json:"tasks"`
	Days  map[string]*CachedDaySnapshot  `json:"days"`
}

var _ SnapshotRepository = (*StaticSnapshots)(nil)

// NewStaticSnapshots creates an empty repository.
func NewStaticSnapshots() *StaticSnapshots {
	return &StaticSnapshots{
		Tasks: make(map[string]*CachedTaskSnapshot),
		Days:  make(map[string]*CachedDaySnapshot),
	}
}

// LoadSnapshots reads a snapshot export file:
//
//	{"tasks": {"<entityId>": {...}}, "days": {"<dayKey>": {...}}}
func LoadSnapshots(path string) (*StaticSnapshots, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load snapshots: %w", err)
	}

	s := NewStaticSnapshots()
	if err := json.Unmarshal(data, s); err != nil {
		return nil, fmt.Errorf("load snapshots %s: %w", path, err)
	}
	return s, nil
}

// TaskSnapshot returns the cached task snapshot, nil when absent.
func (s *StaticSnapshots) TaskSnapshot(ctx context.Context, entityID string) (*CachedTaskSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Tasks[entityID], nil
}

// DaySnapshot returns the cached day snapshot, nil when absent.
func (s *StaticSnapshots) DaySnapshot(ctx context.Context, dayKey string) (*CachedDaySnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.Days[dayKey], nil
}

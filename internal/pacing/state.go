package pacing

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/SergeOin/titan/internal/domain"
)

// State is the pacing controller's persisted record. It is owned
// exclusively by the controller; the dashboard only ever reads a snapshot.
type State struct {
	Tier            domain.Tier `json:"tier"`
	Multiplier      float64     `json:"multiplier"`
	Streak          int         `json:"streak"`
	LastRestriction time.Time   `json:"last_restriction,omitempty"`
	PausedUntil     time.Time   `json:"paused_until,omitempty"`
	QuotaDate       string      `json:"quota_date"`
	AcceptedToday   int         `json:"accepted_today"`
	// ManualTier pins the tier and bypasses automatic transitions until
	// cleared.
	ManualTier domain.Tier `json:"manual_tier,omitempty"`
}

// defaultState returns the most conservative state, used on first run and
// whenever the on-disk state cannot be trusted.
func defaultState(now time.Time) State {
	return State{
		Tier:       domain.TierConservative,
		Multiplier: 1.0,
		QuotaDate:  now.Format("2006-01-02"),
	}
}

// loadState reads the state file, failing safe to conservative defaults on
// any missing, unreadable or corrupt file.
func loadState(path string, now time.Time) (State, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return defaultState(now), nil
		}
		return defaultState(now), fmt.Errorf("read pacing state: %w", err)
	}

	var st State
	if err := json.Unmarshal(data, &st); err != nil {
		return defaultState(now), fmt.Errorf("parse pacing state: %w", err)
	}
	if !validTier(st.Tier) || st.Multiplier <= 0 {
		return defaultState(now), fmt.Errorf("pacing state has invalid values, resetting")
	}
	return st, nil
}

// saveState persists the state atomically via a temp-file rename.
// Persistence is best-effort; callers log failures and carry on.
func saveState(path string, st State) error {
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal pacing state: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create state directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write pacing state: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename pacing state: %w", err)
	}
	return nil
}

func validTier(t domain.Tier) bool {
	switch t {
	case domain.TierConservative, domain.TierModerate, domain.TierAggressive:
		return true
	default:
		return false
	}
}

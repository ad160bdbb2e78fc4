package camera

import (
	"fmt"
	"sync"
	"time"
)

// SettingsSnapshot is a saved configuration state for rollback
type SettingsSnapshot struct {
	// Settings reproduces the record when applied
	Settings Settings

	// Timestamp when this snapshot was created
	Timestamp time.Time

	// Description of what operation this snapshot was taken before
	Description string
}

// Snapshot captures the current configuration record
func (c *Camera) Snapshot(description string) *SettingsSnapshot {
	return &SettingsSnapshot{
		Settings:    c.Info().Settings(),
		Timestamp:   time.Now(),
		Description: description,
	}
}

// RollbackManager keeps the last few snapshots of a camera's settings
type RollbackManager struct {
	cam *Camera

	// snapshots is bounded by maxSnapshots; oldest first
	snapshots    []*SettingsSnapshot
	maxSnapshots int

	mutex sync.RWMutex
}

// NewRollbackManager creates a rollback manager retaining 10 snapshots
func NewRollbackManager(cam *Camera) *RollbackManager {
	return &RollbackManager{
		cam:          cam,
		snapshots:    make([]*SettingsSnapshot, 0, 10),
		maxSnapshots: 10,
	}
}

// SaveSnapshot records the current settings
func (rm *RollbackManager) SaveSnapshot(description string) error {
	if err := rm.cam.requireOpen("snapshot"); err != nil {
		return err
	}
	snapshot := rm.cam.Snapshot(description)

	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	rm.snapshots = append(rm.snapshots, snapshot)
	if len(rm.snapshots) > rm.maxSnapshots {
		rm.snapshots = rm.snapshots[1:]
	}
	return nil
}

// GetLatestSnapshot returns the most recent snapshot, or nil if none exist
func (rm *RollbackManager) GetLatestSnapshot() *SettingsSnapshot {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()

	if len(rm.snapshots) == 0 {
		return nil
	}
	return rm.snapshots[len(rm.snapshots)-1]
}

// GetSnapshots returns all snapshots in chronological order (oldest first)
func (rm *RollbackManager) GetSnapshots() []*SettingsSnapshot {
	rm.mutex.RLock()
	defer rm.mutex.RUnlock()

	result := make([]*SettingsSnapshot, len(rm.snapshots))
	copy(result, rm.snapshots)
	return result
}

// ClearSnapshots removes all saved snapshots
func (rm *RollbackManager) ClearSnapshots() {
	rm.mutex.Lock()
	defer rm.mutex.Unlock()

	rm.snapshots = make([]*SettingsSnapshot, 0, 10)
}

// RollbackToSnapshot re-applies a snapshot and verifies the result
func (rm *RollbackManager) RollbackToSnapshot(snapshot *SettingsSnapshot) *VerificationResult {
	if snapshot == nil {
		return &VerificationResult{Error: fmt.Errorf("snapshot is nil")}
	}
	return rm.cam.ApplyAndVerify(snapshot.Settings)
}

// RollbackToLatest restores the most recent snapshot
func (rm *RollbackManager) RollbackToLatest() *VerificationResult {
	snapshot := rm.GetLatestSnapshot()
	if snapshot == nil {
		return &VerificationResult{Error: fmt.Errorf("no snapshots available for rollback")}
	}
	return rm.RollbackToSnapshot(snapshot)
}

// ApplyAndVerify applies settings and then verifies the whole record
func (c *Camera) ApplyAndVerify(s Settings) *VerificationResult {
	if err := c.ApplySettings(s); err != nil {
		return &VerificationResult{Error: fmt.Errorf("apply failed: %w", err)}
	}
	return c.Verify()
}

// SafeApply applies settings with automatic rollback on failure. Validation
// errors are reported without touching the camera or attempting a rollback.
func (rm *RollbackManager) SafeApply(s Settings, description string) *SafeApplyResult {
	result := &SafeApplyResult{Description: description}

	if errs := ValidateSettings(s, rm.cam.Limits()); len(errs) > 0 {
		result.Error = joinValidation(errs)
		result.ApplyResult = &VerificationResult{Error: result.Error}
		return result
	}

	if err := rm.SaveSnapshot(description); err != nil {
		result.Error = fmt.Errorf("failed to save pre-apply snapshot: %w", err)
		return result
	}

	applyResult := rm.cam.ApplyAndVerify(s)
	result.ApplyResult = applyResult
	if applyResult.Success {
		result.Success = true
		return result
	}

	result.RollbackAttempted = true
	snapshot := rm.GetLatestSnapshot()
	rollbackResult := rm.RollbackToSnapshot(snapshot)
	result.RollbackResult = rollbackResult

	if rollbackResult.Success {
		result.RollbackSucceeded = true
		result.Error = fmt.Errorf("apply failed (%w), rolled back to previous settings", applyResult.Error)
	} else {
		result.Error = fmt.Errorf("apply failed (%w) AND rollback failed: %w", applyResult.Error, rollbackResult.Error)
	}
	return result
}

// SafeApplyResult contains the results of a safe apply operation
type SafeApplyResult struct {
	Success     bool
	Description string

	ApplyResult *VerificationResult

	// RollbackSucceeded and RollbackResult are only valid if RollbackAttempted is true
	RollbackAttempted bool
	RollbackSucceeded bool
	RollbackResult    *VerificationResult

	Error error
}

// String returns a human-readable summary of the safe apply result
func (r *SafeApplyResult) String() string {
	if r.Success {
		return fmt.Sprintf("✅ Settings applied and verified: %s", r.Description)
	}

	if r.RollbackAttempted {
		if r.RollbackSucceeded {
			return fmt.Sprintf("⚠️  Apply failed but settings were rolled back: %s\nApply error: %v",
				r.Description, r.ApplyResult.Error)
		}
		return fmt.Sprintf("❌ Apply failed and rollback failed: %s\nApply error: %v\nRollback error: %v",
			r.Description, r.ApplyResult.Error, r.RollbackResult.Error)
	}

	return fmt.Sprintf("❌ Apply failed: %s\nError: %v", r.Description, r.Error)
}

// Package journal keeps a SQLite log of acquisitions.
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/muurk/tiscam/internal/camera"
	"github.com/muurk/tiscam/internal/logging"
)

// Entry is one recorded acquisition
type Entry struct {
	ID          int64           `json:"id"`
	RecordedAt  time.Time       `json:"recorded_at"`
	Camera      string          `json:"camera"`
	DeviceName  string          `json:"device_name"`
	Settings    camera.Settings `json:"settings"`
	Frames      int             `json:"frames"`
	Duration    time.Duration   `json:"duration"`
	MinValue    uint16          `json:"min_value"`
	MaxValue    uint16          `json:"max_value"`
	BlankFrames int             `json:"blank_frames"`
	Output      string          `json:"output,omitempty"` // Export base path, if frames were saved
	Error       string          `json:"error,omitempty"`
}

// NewEntry builds an entry from a finished recording. Only the first
// res.Frames frames are read, so a partially filled buffer from a failed
// recording is fine; frames may also be nil.
func NewEntry(cfg camera.Config, frames *camera.Frames, res *camera.RecordResult, recErr error) Entry {
	e := Entry{
		RecordedAt: time.Now().UTC(),
		Camera:     cfg.Name,
		DeviceName: cfg.DeviceName,
		Settings:   cfg.Settings(),
	}
	if res != nil {
		e.Frames = res.Frames
		e.Duration = res.Duration
	}
	if recErr != nil {
		e.Error = recErr.Error()
	}
	if frames != nil && e.Frames > 0 {
		e.MinValue = ^uint16(0)
		for i := 0; i < e.Frames; i++ {
			st := frames.Stats(i)
			e.MinValue = min(e.MinValue, st.Min)
			e.MaxValue = max(e.MaxValue, st.Max)
			if st.Blank() {
				e.BlankFrames++
			}
		}
	}
	return e
}

// Journal is a SQLite-backed acquisition log
type Journal struct {
	db *sql.DB
}

// Open opens (or creates) the journal database and migrates its schema.
// Use ":memory:" for a throwaway journal.
func Open(path string) (*Journal, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open journal: %w", err)
	}
	// a single connection keeps ":memory:" databases alive across calls
	db.SetMaxOpenConns(1)

	j := &Journal{db: db}
	if err := j.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate journal: %w", err)
	}

	logging.Debug("Journal opened", zap.String("path", path))
	return j, nil
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS acquisitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		recorded_at DATETIME NOT NULL,
		camera TEXT NOT NULL,
		device_name TEXT NOT NULL,
		settings JSON NOT NULL,
		frames INTEGER NOT NULL,
		duration_ns INTEGER NOT NULL,
		min_value INTEGER NOT NULL DEFAULT 0,
		max_value INTEGER NOT NULL DEFAULT 0,
		blank_frames INTEGER NOT NULL DEFAULT 0,
		output TEXT,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_acquisitions_recorded_at ON acquisitions(recorded_at);
	`

	_, err := j.db.Exec(schema)
	return err
}

// Add stores an entry and returns its ID
func (j *Journal) Add(ctx context.Context, e Entry) (int64, error) {
	settings, err := json.Marshal(e.Settings)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal settings: %w", err)
	}
	if e.RecordedAt.IsZero() {
		e.RecordedAt = time.Now().UTC()
	}

	res, err := j.db.ExecContext(ctx, `
		INSERT INTO acquisitions
			(recorded_at, camera, device_name, settings, frames, duration_ns,
			 min_value, max_value, blank_frames, output, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.RecordedAt, e.Camera, e.DeviceName, string(settings), e.Frames, int64(e.Duration),
		int(e.MinValue), int(e.MaxValue), e.BlankFrames, stringToNull(e.Output), stringToNull(e.Error))
	if err != nil {
		return 0, fmt.Errorf("failed to insert acquisition: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read acquisition id: %w", err)
	}
	logging.Debug("Journal entry added", zap.Int64("id", id), zap.Int("frames", e.Frames))
	return id, nil
}

// List returns the most recent entries, newest first. A limit <= 0 returns all.
func (j *Journal) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, recorded_at, camera, device_name, settings, frames, duration_ns,
		       min_value, max_value, blank_frames, output, error
		FROM acquisitions
		ORDER BY recorded_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query acquisitions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e             Entry
			settings      string
			durationNS    int64
			minV, maxV    int
			output, errNS sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.RecordedAt, &e.Camera, &e.DeviceName, &settings, &e.Frames,
			&durationNS, &minV, &maxV, &e.BlankFrames, &output, &errNS); err != nil {
			return nil, fmt.Errorf("failed to scan acquisition: %w", err)
		}
		if err := json.Unmarshal([]byte(settings), &e.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings of entry %d: %w", e.ID, err)
		}
		e.Duration = time.Duration(durationNS)
		e.MinValue = uint16(minV)
		e.MaxValue = uint16(maxV)
		e.Output = nullToString(output)
		e.Error = nullToString(errNS)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating acquisitions: %w", err)
	}
	return entries, nil
}

// Close closes the database
func (j *Journal) Close() error {
	return j.db.Close()
}

func nullToString(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func stringToNull(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

package models

import "time"

// Session is one continuous presence of a plate. SessionEnd is nil while the session is open.
type Session struct {
	ID           int64      `db:"id" json:"id"`
	PlateNumber  string     `db:"plate_number" json:"plate_number"`
	SessionStart time.Time  `db:"session_start" json:"session_start"`
	SessionEnd   *time.Time `db:"session_end" json:"session_end"`
	Metadata     Metadata   `db:"metadata" json:"metadata"`
}

// Open reports whether the session has not been closed yet.
func (s Session) Open() bool {
	return s.SessionEnd == nil
}

// Duration returns the closed session length, or zero while open.
func (s Session) Duration() time.Duration {
	if s.SessionEnd == nil {
		return 0
	}
	return s.SessionEnd.Sub(s.SessionStart)
}

package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Story is the collaborative narrative. The active story is the most recently
// created row whose ArchivedAt is null.
type Story struct {
	ID         int64      `db:"id" json:"id"`
	Name       string     `db:"name" json:"name"`
	CreatedAt  time.Time  `db:"created_at" json:"created_at"`
	ArchivedAt *time.Time `db:"archived_at" json:"archived_at,omitempty"`
}

// Line is one contributed fragment. Lines are never updated, only deleted by
// an administrator.
type Line struct {
	ID        int64     `db:"id" json:"id"`
	StoryID   int64     `db:"story_id" json:"story_id"`
	Text      string    `db:"text" json:"text"`
	Username  string    `db:"username" json:"username"`
	Color     string    `db:"color" json:"color"`
	IP        string    `db:"ip" json:"-"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// StoryRename is the audit row paired with every title change.
type StoryRename struct {
	ID        int64     `db:"id" json:"id"`
	StoryID   int64     `db:"story_id" json:"story_id"`
	Username  string    `db:"username" json:"username"`
	RenamedAt time.Time `db:"renamed_at" json:"renamed_at"`
}

// LineFlag is a moderation report. The target line is not required to exist.
type LineFlag struct {
	ID        int64     `db:"id" json:"id"`
	LineID    int64     `db:"line_id" json:"line_id"`
	Reason    string    `db:"reason" json:"reason"`
	FlaggedBy string    `db:"flagged_by" json:"flagged_by"`
	FlaggedAt time.Time `db:"flagged_at" json:"flagged_at"`
	Resolved  bool      `db:"resolved" json:"resolved"`
}

// FlagWithLine joins a flag to a snapshot of its line. Line fields are nil
// when the line was deleted after the flag was filed.
type FlagWithLine struct {
	ID        int64     `db:"id" json:"id"`
	LineID    int64     `db:"line_id" json:"line_id"`
	Reason    string    `db:"reason" json:"reason"`
	FlaggedBy string    `db:"flagged_by" json:"flagged_by"`
	FlaggedAt time.Time `db:"flagged_at" json:"flagged_at"`
	Resolved  bool      `db:"resolved" json:"resolved"`
	Text      *string   `db:"text" json:"text"`
	Username  *string   `db:"username" json:"username"`
	Color     *string   `db:"color" json:"color"`
}

// AdminLog is an append-only record of an administrative action.
type AdminLog struct {
	ID        int64     `db:"id" json:"id"`
	Action    string    `db:"action" json:"action"`
	Target    string    `db:"target" json:"target"`
	AdminID   string    `db:"admin_id" json:"admin_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Stats summarizes contribution volume for the moderation console.
type Stats struct {
	TotalLines           int64 `db:"total_lines" json:"lines"`
	DistinctContributors int64 `db:"distinct_contributors" json:"contributors"`
}

// AdminClaims is the JWT payload asserting the administrator role.
type AdminClaims struct {
	Admin bool `json:"admin"`
	jwt.RegisteredClaims
}

package models

import (
	"time"
)

// ResearchSession is the per-browser state carried between the research,
// concept-image and export pages.
type ResearchSession struct {
	ID           string    `json:"id" db:"id"`
	Title        string    `json:"title" db:"title"`
	ResearchText string    `json:"research_text" db:"research_text"`
	OriginalText string    `json:"original_text,omitempty" db:"original_text"`
	UpdatedAt    time.Time `json:"updated_at" db:"updated_at"`
}

// CreateSessionResponse carries a freshly issued session token.
type CreateSessionResponse struct {
	Token     string    `json:"token"`
	SessionID string    `json:"session_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// UpdateResearchRequest replaces the research text stored in a session.
type UpdateResearchRequest struct {
	Title        string `json:"title"`
	ResearchText string `json:"research_text" binding:"required"`
}

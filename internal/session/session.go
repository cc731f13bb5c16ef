// Package session holds per-user conversation state.
package session

import (
	"time"
)

// DefaultSector is the only supported sector.
const DefaultSector = "Agriculture"

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one transcript entry.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Session is the mutable state of one interactive user.
type Session struct {
	ID               string    `json:"id"`
	LanguageSelected bool      `json:"language_selected"`
	SectorSelected   bool      `json:"sector_selected"`
	Language         string    `json:"language"`
	Sector           string    `json:"sector"`
	DocumentText     string    `json:"document_text"`
	Summary          string    `json:"summary"`
	LastUploadName   string    `json:"last_upload_name,omitempty"`
	DocumentChat     []Message `json:"document_chat"`
	GeneralChat      []Message `json:"general_chat"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// New returns a session with default values.
func New(id string) *Session {
	now := time.Now().UTC()
	s := &Session{ID: id, CreatedAt: now}
	s.Reset()
	s.UpdatedAt = now
	return s
}

// Reset restores every conversational field to its default. Identity and
// creation time are kept.
func (s *Session) Reset() {
	s.LanguageSelected = false
	s.SectorSelected = false
	s.Language = ""
	s.Sector = DefaultSector
	s.DocumentText = ""
	s.Summary = ""
	s.LastUploadName = ""
	s.DocumentChat = []Message{}
	s.GeneralChat = []Message{}
	s.Touch()
}

// Touch records a mutation.
func (s *Session) Touch() {
	s.UpdatedAt = time.Now().UTC()
}

// HasSummary reports whether document chat is available.
func (s *Session) HasSummary() bool {
	return s.Summary != ""
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	c.DocumentChat = append([]Message{}, s.DocumentChat...)
	c.GeneralChat = append([]Message{}, s.GeneralChat...)
	return &c
}

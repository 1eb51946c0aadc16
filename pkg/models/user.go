package models

import (
	"time"

	"github.com/google/uuid"
)

// User is a registered candidate. ResumeText and JobDescription are written
// once by the first successful résumé upload.
type User struct {
	ID             uuid.UUID `db:"id"              json:"id"`
	Name           string    `db:"name"            json:"name"`
	Email          string    `db:"email"           json:"email"`
	PasswordHash   string    `db:"password_hash"   json:"-"`
	RefreshToken   *string   `db:"refresh_token"   json:"-"`
	ResumeText     *string   `db:"resume_text"     json:"resume_text,omitempty"`
	JobDescription *string   `db:"job_description" json:"job_description,omitempty"`
	CreatedAt      time.Time `db:"created_at"      json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at"      json:"updated_at"`
}

// HasResume reports whether both the résumé and job description are stored.
func (u *User) HasResume() bool {
	return u.ResumeText != nil && *u.ResumeText != "" &&
		u.JobDescription != nil && *u.JobDescription != ""
}

// Resume returns the stored résumé text or "".
func (u *User) Resume() string {
	if u.ResumeText == nil {
		return ""
	}
	return *u.ResumeText
}

// JD returns the stored job description or "".
func (u *User) JD() string {
	if u.JobDescription == nil {
		return ""
	}
	return *u.JobDescription
}

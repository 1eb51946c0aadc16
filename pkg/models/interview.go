package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	InterviewStatusInProgress = "in_progress"
	InterviewStatusCompleted  = "completed"
	InterviewStatusFailed     = "failed"
)

const (
	RoundStatusPending    = "pending"
	RoundStatusInProgress = "in_progress"
	RoundStatusPass       = "pass"
	RoundStatusFail       = "fail"
)

// Interview is the per-user container for rounds. There is at most one per user.
type Interview struct {
	ID                     uuid.UUID     `db:"id"                        json:"id"`
	UserID                 uuid.UUID     `db:"user_id"                   json:"user_id"`
	Status                 string        `db:"status"                    json:"status"`
	FinalResult            *RoundSummary `db:"final_result_json"         json:"final_result,omitempty"`
	Round2ConfirmationSent bool          `db:"round_2_confirmation_sent" json:"round_2_confirmation_sent"`
	Round2ReminderSent     bool          `db:"round_2_reminder_sent"     json:"round_2_reminder_sent"`
	CreatedAt              time.Time     `db:"created_at"                json:"created_at"`
	UpdatedAt              time.Time     `db:"updated_at"                json:"updated_at"`
}

// Round is one stage of an interview. Result is set exactly once per
// completion and cleared again by a restart.
type Round struct {
	ID          uuid.UUID     `db:"id"           json:"id"`
	InterviewID uuid.UUID     `db:"interview_id" json:"interview_id"`
	RoundNumber int           `db:"round_number" json:"round_number"`
	Status      string        `db:"status"       json:"status"`
	Result      *RoundSummary `db:"result_json"  json:"result,omitempty"`
	ScheduledAt *time.Time    `db:"scheduled_at" json:"scheduled_at,omitempty"`
	StartedAt   *time.Time    `db:"started_at"   json:"started_at,omitempty"`
	CompletedAt *time.Time    `db:"completed_at" json:"completed_at,omitempty"`
	CreatedAt   time.Time     `db:"created_at"   json:"created_at"`
	UpdatedAt   time.Time     `db:"updated_at"   json:"updated_at"`
}

// Completed reports whether the round reached a terminal status.
func (r *Round) Completed() bool {
	return r.Status == RoundStatusPass || r.Status == RoundStatusFail
}

// Question belongs to a round. IDs are assigned in insertion order, which is
// also presentation order.
type Question struct {
	ID         int64       `db:"id"              json:"id"`
	RoundID    uuid.UUID   `db:"round_id"        json:"round_id"`
	Text       string      `db:"question_text"   json:"text"`
	Answer     *string     `db:"answer_text"     json:"answer,omitempty"`
	Evaluation *Evaluation `db:"evaluation_json" json:"evaluation,omitempty"`
	CreatedAt  time.Time   `db:"created_at"      json:"created_at"`
}

// Answered reports whether an answer has been recorded.
func (q *Question) Answered() bool { return q.Answer != nil }

// QuestionOwner pairs a question with the context needed for authorization
// and state checks.
type QuestionOwner struct {
	Question    Question
	UserID      uuid.UUID
	InterviewID uuid.UUID
	RoundNumber int
	RoundStatus string
}

package interview

import "errors"

var (
	ErrMissingResume       = errors.New("resume and job description are required")
	ErrMissingAudio        = errors.New("audio file required")
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("question does not belong to user")
	ErrAlreadyAnswered     = errors.New("question already answered")
	ErrRoundCompleted      = errors.New("round already completed")
	ErrRoundBusy           = errors.New("round is being modified by another request")
	ErrSpeechUnavailable   = errors.New("speech service unavailable")
	ErrNoMoreQuestions     = errors.New("no more questions")
	ErrSummaryNotAvailable = errors.New("summary not available")
)

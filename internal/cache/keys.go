package cache

import (
	"fmt"

	"github.com/google/uuid"
)

func RoundLockKey(interviewID uuid.UUID, roundNumber int) string {
	return fmt.Sprintf("lock:interview:%s:round:%d", interviewID, roundNumber)
}

// QuestionAudioKey caches the synthesized audio URL of a question.
func QuestionAudioKey(questionID int64) string {
	return fmt.Sprintf("audio:question:%d", questionID)
}

func RateLimitKey(subject string) string {
	return fmt.Sprintf("ratelimit:%s", subject)
}

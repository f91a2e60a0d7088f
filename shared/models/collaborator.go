package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

// CollaboratorMessageType is the "type" field of messages on the session events queue.
type CollaboratorMessageType string

const (
	MessageSessionExit      CollaboratorMessageType = "session_exit"
	MessageSessionCompleted CollaboratorMessageType = "session_completed"
	MessageSessionFeedback  CollaboratorMessageType = "session_feedback"
)

// SessionExitRecord is sent when a patient leaves a session before it completes.
type SessionExitRecord struct {
	Type              CollaboratorMessageType `json:"type"`
	PatientID         string                  `json:"patient_id"`
	ExitTime          time.Time               `json:"exit_time"`
	StartedAt         *time.Time              `json:"started_at,omitempty"`
	DurationSeconds   int64                   `json:"duration_seconds"`
	ChaptersCompleted int                     `json:"chapters_completed"`
	CurrentStage      int                     `json:"current_stage"`
	FinalDistress     *DistressRating         `json:"final_sud,omitempty"`
}

// SessionCompletedRecord signals the feedback collaborator that a run finished.
type SessionCompletedRecord struct {
	Type              CollaboratorMessageType `json:"type"`
	PatientID         string                  `json:"patient_id"`
	StartedAt         *time.Time              `json:"started_at,omitempty"`
	EndedAt           time.Time               `json:"ended_at"`
	DurationSeconds   int64                   `json:"duration_seconds"`
	ChaptersCompleted int                     `json:"chapters_completed"`
	FinalDistress     *DistressRating         `json:"final_sud,omitempty"`
	Coins             int                     `json:"coins"`
}

// SessionFeedback is the post-session questionnaire.
// Scores are on a 1..5 scale.
type SessionFeedback struct {
	Type           CollaboratorMessageType `json:"type"`
	ID             uuid.UUID               `json:"id"`
	PatientID      string                  `json:"patient_id"`
	Helpfulness    int                     `json:"helpfulness" validate:"min=1,max=5"`
	Comfort        int                     `json:"comfort" validate:"min=1,max=5"`
	Difficulty     int                     `json:"difficulty" validate:"min=1,max=5"`
	Improvement    string                  `json:"improvement,omitempty" validate:"max=2000"`
	WouldRecommend bool                    `json:"would_recommend"`
	Comments       string                  `json:"comments,omitempty" validate:"max=2000"`
	SubmittedAt    time.Time               `json:"submitted_at"`
}

var feedbackValidator = validator.New(validator.WithRequiredStructEnabled())

// Validate checks the questionnaire scores and text lengths.
func (f SessionFeedback) Validate() error {
	err := feedbackValidator.Struct(f)
	if err == nil {
		return nil
	}
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	problems := make([]string, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		problems = append(problems, fmt.Sprintf("%s must satisfy %s=%s", strings.ToLower(fe.Field()), fe.Tag(), fe.Param()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidInput, strings.Join(problems, ", "))
}

package client

import (
	"context"

	"gorm.io/datatypes"

	"office-quiz/internal/db"
	"office-quiz/internal/quiz"
)

type historyRecorder struct {
	store *db.Store
}

func (h historyRecorder) RecordOutcome(ctx context.Context, outcome quiz.Outcome) error {
	answer := ""
	if outcome.Answered {
		answer = string(outcome.Answer)
	}
	return h.store.RecordQuizResult(ctx, db.QuizResult{
		RoundID:    outcome.RoundID,
		QuestionID: outcome.QuestionID,
		Answer:     answer,
		IsCorrect:  outcome.Correct,
		PrizeMoney: outcome.Prize,
		Submitted:  outcome.Submitted,
		Response:   datatypes.JSON(outcome.Response),
		CreatedAt:  outcome.FinishedAt,
	})
}

package quiz

import "office-quiz/internal/world"

type Question struct {
	ID     int
	Answer world.AnswerTag
	// Known is false for ids outside the bank; those fall back to the
	// default question.
	Known bool
}

var bank = map[int]world.AnswerTag{
	1: world.AnswerTrue,
	2: world.AnswerFalse,
	3: world.AnswerFalse,
	4: world.AnswerTrue,
}

func LookupQuestion(id int) Question {
	if answer, ok := bank[id]; ok {
		return Question{ID: id, Answer: answer, Known: true}
	}
	return Question{ID: id, Answer: world.AnswerTrue}
}

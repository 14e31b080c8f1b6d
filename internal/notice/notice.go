// Package notice renders the user-facing strings shown by the player
// machine and the quiz coordinator in the configured locale.
package notice

import (
	"strconv"
	"strings"

	"golang.org/x/text/feature/plural"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/message/catalog"
)

const (
	QuizJoined        = "quiz.joined"
	QuizHeadcount     = "quiz.headcount"
	QuizWaitNext      = "quiz.wait_next"
	QuizStarted       = "quiz.started"
	QuizEnded         = "quiz.ended"
	QuizPlayerLeft    = "quiz.player_left"
	QuizSelfLeft      = "quiz.self_left"
	ResultCorrect     = "quiz.result.correct"
	ResultWrong       = "quiz.result.wrong"
	ResultServerError = "quiz.result.server_error"
	ResultLoginNeeded = "quiz.result.login_required"
	DialogSit         = "station.dialog.sit"
	DialogStand       = "station.dialog.stand"
	DialogQuiz        = "station.dialog.quiz"
	DialogUse         = "station.dialog.use"
	QuestionDefault   = "quiz.question.default"
)

// QuestionKey returns the catalog key for a question's text.
func QuestionKey(id int) string {
	switch id {
	case 1, 2, 3, 4:
		return "quiz.question." + strconv.Itoa(id)
	default:
		return QuestionDefault
	}
}

var supported = []language.Tag{language.English, language.Korean}

var matcher = language.NewMatcher(supported)

var messages = map[language.Tag]map[string]string{
	language.English: {
		QuizJoined:        "%s joined the quiz.",
		QuizWaitNext:      "The next quiz starts in %d seconds.",
		QuizStarted:       "The quiz has started!",
		QuizEnded:         "The quiz has ended.",
		QuizPlayerLeft:    "%s left the quiz.",
		QuizSelfLeft:      "You left the quiz.",
		ResultCorrect:     "Correct! Prize: %d",
		ResultWrong:       "Wrong answer!",
		ResultServerError: "A server error occurred.",
		ResultLoginNeeded: "You must be logged in.",
		DialogSit:         "Press E to sit",
		DialogStand:       "Press E to leave",
		DialogQuiz:        "Press Q to solve Quiz :)",
		DialogUse:         "Press R to use",
		"quiz.question.1": "The sun is bigger than the earth.",
		"quiz.question.2": "The earth is flat.",
		"quiz.question.3": "Mercury is the largest planet in the solar system.",
		"quiz.question.4": "Water is H2O.",
		QuestionDefault:   "This is the default question.",
	},
	language.Korean: {
		QuizJoined:        "%s님이 퀴즈에 참여했습니다.",
		QuizWaitNext:      "다음 퀴즈가 %d초 후에 시작됩니다.",
		QuizStarted:       "퀴즈가 시작되었습니다!",
		QuizEnded:         "퀴즈가 종료되었습니다.",
		QuizPlayerLeft:    "%s님이 퀴즈를 떠났습니다.",
		QuizSelfLeft:      "퀴즈에서 나왔습니다.",
		ResultCorrect:     "정답입니다! 상금: %d원",
		ResultWrong:       "틀렸습니다!",
		ResultServerError: "서버 오류가 발생했습니다.",
		ResultLoginNeeded: "로그인이 필요합니다.",
		DialogSit:         "E를 눌러 앉기",
		DialogStand:       "E를 눌러 일어나기",
		DialogQuiz:        "Q를 눌러 퀴즈 풀기 :)",
		DialogUse:         "R을 눌러 사용하기",
		"quiz.question.1": "태양은 지구보다 크다.",
		"quiz.question.2": "지구는 평평하다.",
		"quiz.question.3": "수성은 태양계에서 가장 큰 행성이다.",
		"quiz.question.4": "물은 H2O이다.",
		QuestionDefault:   "기본 문제입니다.",
	},
}

func init() {
	for tag, entries := range messages {
		for key, msg := range entries {
			if err := message.SetString(tag, key, msg); err != nil {
				panic(err)
			}
		}
	}
	headcount := map[language.Tag]catalog.Message{
		language.English: plural.Selectf(1, "%d",
			"=1", "%d participant",
			"other", "%d participants",
		),
		language.Korean: plural.Selectf(1, "%d",
			"other", "현재 참가자 %d명",
		),
	}
	for tag, msg := range headcount {
		if err := message.Set(tag, QuizHeadcount, msg); err != nil {
			panic(err)
		}
	}
}

type Printer struct {
	tag     language.Tag
	printer *message.Printer
}

// NewPrinter picks the closest supported locale, falling back to English.
func NewPrinter(locale string) *Printer {
	tag := language.English
	if strings.TrimSpace(locale) != "" {
		if parsed, err := language.Parse(locale); err == nil {
			_, index, confidence := matcher.Match(parsed)
			if confidence != language.No {
				tag = supported[index]
			}
		}
	}
	return &Printer{tag: tag, printer: message.NewPrinter(tag)}
}

func (p *Printer) Locale() string {
	return p.tag.String()
}

func (p *Printer) Sprintf(key string, args ...any) string {
	return p.printer.Sprintf(key, args...)
}

func (p *Printer) Question(id int) string {
	return p.Sprintf(QuestionKey(id))
}

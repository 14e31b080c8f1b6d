package notice

import "testing"

func TestPrinterEnglish(t *testing.T) {
	p := NewPrinter("en-US")
	if got := p.Sprintf(ResultCorrect, 100); got != "Correct! Prize: 100" {
		t.Fatalf("unexpected correct text: %q", got)
	}
	if got := p.Sprintf(QuizHeadcount, 1); got != "1 participant" {
		t.Fatalf("unexpected singular headcount: %q", got)
	}
	if got := p.Sprintf(QuizHeadcount, 3); got != "3 participants" {
		t.Fatalf("unexpected plural headcount: %q", got)
	}
}

func TestPrinterKorean(t *testing.T) {
	p := NewPrinter("ko-KR")
	if p.Locale() != "ko" {
		t.Fatalf("expected ko locale, got %q", p.Locale())
	}
	tests := []struct {
		key  string
		args []any
		want string
	}{
		{key: ResultCorrect, args: []any{100}, want: "정답입니다! 상금: 100원"},
		{key: ResultWrong, want: "틀렸습니다!"},
		{key: ResultServerError, want: "서버 오류가 발생했습니다."},
		{key: ResultLoginNeeded, want: "로그인이 필요합니다."},
		{key: QuizHeadcount, args: []any{2}, want: "현재 참가자 2명"},
	}
	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if got := p.Sprintf(tt.key, tt.args...); got != tt.want {
				t.Fatalf("expected %q, got %q", tt.want, got)
			}
		})
	}
}

func TestPrinterFallsBackToEnglish(t *testing.T) {
	for _, locale := range []string{"", "not a locale"} {
		if got := NewPrinter(locale).Locale(); got != "en" {
			t.Fatalf("expected en fallback for %q, got %q", locale, got)
		}
	}
}

func TestQuestionText(t *testing.T) {
	p := NewPrinter("ko")
	if got := p.Question(4); got != "물은 H2O이다." {
		t.Fatalf("unexpected question 4: %q", got)
	}
	if got := p.Question(99); got != "기본 문제입니다." {
		t.Fatalf("unexpected default question: %q", got)
	}
}

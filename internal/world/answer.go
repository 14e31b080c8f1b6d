package world

type AnswerTag string

const (
	AnswerTrue  AnswerTag = "O"
	AnswerFalse AnswerTag = "X"
)

func (a AnswerTag) Valid() bool {
	return a == AnswerTrue || a == AnswerFalse
}

// AnswerZone is the floor area below Top split at SplitX. Standing left of
// the split answers O, right of it answers X. The split line itself and
// everything above Top answer nothing.
type AnswerZone struct {
	SplitX float64
	Top    float64
}

func DefaultAnswerZone() AnswerZone {
	return AnswerZone{SplitX: 640, Top: 700}
}

func (z AnswerZone) Contains(y float64) bool {
	return y >= z.Top
}

func (z AnswerZone) Resolve(x, y float64) (AnswerTag, bool) {
	if !z.Contains(y) {
		return "", false
	}
	switch {
	case x < z.SplitX:
		return AnswerTrue, true
	case x > z.SplitX:
		return AnswerFalse, true
	default:
		return "", false
	}
}

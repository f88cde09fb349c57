package analyzer

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"medwatch/internal/llm"
	"medwatch/internal/models"
)

// Confidence penalties applied during verdict normalization. Out-of-range
// values are clamped and charged per step of correction; values of the wrong
// type that can still be coerced are charged a flat penalty.
const (
	clampPenaltyPerStep = 0.15
	coercionPenalty     = 0.05
	evidencePenalty     = 0.15
	confidenceFloor     = 0.05
)

// Verdict is a validated, normalized provider verdict.
type Verdict struct {
	Grade         int
	Label         string
	Justification string
	Sentiment     string
	Confidence    float64
	Sources       []string
}

// NormalizeVerdict validates the raw provider verdict against the expected
// schema. Out-of-range values are clamped to the nearest bound and the
// confidence score is reduced proportionally to the severity of the
// correction. A missing required field (grade or confidence) cannot be
// repaired and returns an error.
func NormalizeVerdict(raw llm.RawVerdict) (*Verdict, error) {
	grade, coercedGrade, err := toNumber(raw.Grade)
	if err != nil {
		return nil, fmt.Errorf("grade: %w", err)
	}
	confidence, coercedConf, err := toNumber(raw.Confidence)
	if err != nil {
		return nil, fmt.Errorf("confidence: %w", err)
	}

	penalty := 1.0

	// Grade must land on the integer scale; a fractional grade is a coercion.
	// Rounding is half away from zero so negative grades count their clamp
	// steps correctly.
	rounded := int(math.Round(grade))
	if grade != math.Trunc(grade) {
		penalty *= 1 - coercionPenalty
	}
	clamped := rounded
	if clamped < models.GradeMin {
		clamped = models.GradeMin
	}
	if clamped > models.GradeMax {
		clamped = models.GradeMax
	}
	if steps := abs(rounded - clamped); steps > 0 {
		factor := 1 - clampPenaltyPerStep*float64(steps)
		if factor < 0 {
			factor = 0
		}
		penalty *= factor
	}

	if coercedGrade || coercedConf {
		penalty *= 1 - coercionPenalty
	}

	// Confidence outside [0,1] is clamped with a step penalty as well.
	if confidence < 0 {
		confidence = 0
		penalty *= 1 - clampPenaltyPerStep
	}
	if confidence > 1 {
		confidence = 1
		penalty *= 1 - clampPenaltyPerStep
	}

	sentiment := strings.ToLower(strings.TrimSpace(raw.Sentiment))
	switch sentiment {
	case models.SentimentPositive, models.SentimentNeutral, models.SentimentNegative:
	default:
		sentiment = models.SentimentNeutral
		penalty *= 1 - coercionPenalty
	}

	label := strings.ToLower(strings.TrimSpace(raw.Verdict))
	switch label {
	case models.VerdictReal, models.VerdictUncertain, models.VerdictFake:
	default:
		label = labelForGrade(clamped)
	}

	confidence *= penalty
	if confidence < confidenceFloor {
		confidence = confidenceFloor
	}

	return &Verdict{
		Grade:         clamped,
		Label:         label,
		Justification: strings.TrimSpace(raw.Justification),
		Sentiment:     sentiment,
		Confidence:    confidence,
		Sources:       raw.Sources,
	}, nil
}

// labelForGrade derives a verdict label when the provider omitted one.
func labelForGrade(grade int) string {
	switch {
	case grade <= 2:
		return models.VerdictReal
	case grade == 3:
		return models.VerdictUncertain
	default:
		return models.VerdictFake
	}
}

// toNumber accepts the types an LLM plausibly emits for a numeric field.
// The bool result reports whether a lossy coercion happened (numeric string).
func toNumber(v interface{}) (float64, bool, error) {
	switch n := v.(type) {
	case nil:
		return 0, false, fmt.Errorf("missing required field")
	case float64:
		return n, false, nil
	case int:
		return float64(n), false, nil
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false, fmt.Errorf("not a number: %q", n)
		}
		return parsed, true, nil
	default:
		return 0, false, fmt.Errorf("unsupported type %T", v)
	}
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

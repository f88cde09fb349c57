package analyzer

import (
	"testing"

	"medwatch/internal/llm"
	"medwatch/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeVerdict_CleanVerdict(t *testing.T) {
	verdict, err := NormalizeVerdict(llm.RawVerdict{
		Grade:         float64(4),
		Verdict:       "fake",
		Justification: "Contradicts the cited cohort study [1].",
		Sentiment:     "negative",
		Confidence:    float64(0.9),
	})

	assert.NoError(t, err)
	assert.Equal(t, 4, verdict.Grade)
	assert.Equal(t, models.VerdictFake, verdict.Label)
	assert.Equal(t, models.SentimentNegative, verdict.Sentiment)
	assert.Equal(t, 0.9, verdict.Confidence)
}

func TestNormalizeVerdict_ClampsOutOfRangeGrade(t *testing.T) {
	verdict, err := NormalizeVerdict(llm.RawVerdict{
		Grade:      float64(7),
		Verdict:    "fake",
		Sentiment:  "negative",
		Confidence: float64(0.9),
	})

	assert.NoError(t, err)
	assert.Equal(t, models.GradeMax, verdict.Grade)
	// Two clamp steps each reduce confidence by 15%.
	assert.InDelta(t, 0.9*0.85*0.85, verdict.Confidence, 1e-9)
}

func TestNormalizeVerdict_Coercions(t *testing.T) {
	tests := []struct {
		name           string
		raw            llm.RawVerdict
		wantGrade      int
		wantSentiment  string
		wantConfidence float64
	}{
		{
			name: "numeric string grade",
			raw: llm.RawVerdict{
				Grade:      "4",
				Verdict:    "fake",
				Sentiment:  "negative",
				Confidence: float64(0.8),
			},
			wantGrade:      4,
			wantSentiment:  models.SentimentNegative,
			wantConfidence: 0.8 * 0.95,
		},
		{
			name: "fractional grade rounds with penalty",
			raw: llm.RawVerdict{
				Grade:      float64(3.7),
				Verdict:    "fake",
				Sentiment:  "negative",
				Confidence: float64(0.8),
			},
			wantGrade:      4,
			wantSentiment:  models.SentimentNegative,
			wantConfidence: 0.8 * 0.95,
		},
		{
			name: "unknown sentiment falls back to neutral",
			raw: llm.RawVerdict{
				Grade:      float64(2),
				Verdict:    "real",
				Sentiment:  "outraged",
				Confidence: float64(0.8),
			},
			wantGrade:      2,
			wantSentiment:  models.SentimentNeutral,
			wantConfidence: 0.8 * 0.95,
		},
		{
			name: "confidence above one clamps",
			raw: llm.RawVerdict{
				Grade:      float64(5),
				Verdict:    "fake",
				Sentiment:  "negative",
				Confidence: float64(1.4),
			},
			wantGrade:      5,
			wantSentiment:  models.SentimentNegative,
			wantConfidence: 1.0 * 0.85,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			verdict, err := NormalizeVerdict(tt.raw)
			assert.NoError(t, err)
			assert.Equal(t, tt.wantGrade, verdict.Grade)
			assert.Equal(t, tt.wantSentiment, verdict.Sentiment)
			assert.InDelta(t, tt.wantConfidence, verdict.Confidence, 1e-9)
		})
	}
}

func TestNormalizeVerdict_NegativeGradeRoundsAwayFromZero(t *testing.T) {
	verdict, err := NormalizeVerdict(llm.RawVerdict{
		Grade:      float64(-1.5),
		Verdict:    "real",
		Sentiment:  "neutral",
		Confidence: float64(0.8),
	})

	assert.NoError(t, err)
	assert.Equal(t, models.GradeMin, verdict.Grade)
	// -1.5 rounds to -2, three clamp steps up to the minimum, plus the
	// fractional-grade coercion penalty.
	assert.InDelta(t, 0.8*0.95*(1-3*0.15), verdict.Confidence, 1e-9)
}

func TestNormalizeVerdict_MissingGrade(t *testing.T) {
	_, err := NormalizeVerdict(llm.RawVerdict{
		Verdict:    "fake",
		Sentiment:  "negative",
		Confidence: float64(0.9),
	})

	assert.Error(t, err)
	assert.Contains(t, err.Error(), "missing required field")
}

func TestNormalizeVerdict_NonNumericGrade(t *testing.T) {
	_, err := NormalizeVerdict(llm.RawVerdict{
		Grade:      "very fake",
		Confidence: float64(0.9),
	})

	assert.Error(t, err)
}

func TestNormalizeVerdict_DerivesLabelFromGrade(t *testing.T) {
	tests := []struct {
		grade float64
		want  string
	}{
		{1, models.VerdictReal},
		{2, models.VerdictReal},
		{3, models.VerdictUncertain},
		{4, models.VerdictFake},
		{5, models.VerdictFake},
	}

	for _, tt := range tests {
		verdict, err := NormalizeVerdict(llm.RawVerdict{
			Grade:      tt.grade,
			Verdict:    "plausible", // not a known label
			Sentiment:  "neutral",
			Confidence: float64(0.7),
		})
		assert.NoError(t, err)
		assert.Equal(t, tt.want, verdict.Label)
	}
}

func TestNormalizeVerdict_ConfidenceFloor(t *testing.T) {
	verdict, err := NormalizeVerdict(llm.RawVerdict{
		Grade:      float64(9),
		Verdict:    "fake",
		Sentiment:  "angry",
		Confidence: float64(0.05),
	})

	assert.NoError(t, err)
	assert.GreaterOrEqual(t, verdict.Confidence, confidenceFloor)
}

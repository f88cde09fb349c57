package analyzer

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtractConcepts_KeywordsFirst(t *testing.T) {
	text := "The mRNA vaccine causes cancer, doctors hide the truth"
	keywords := []string{"vaccine", "5G towers"}

	concepts := ExtractConcepts(text, keywords, 5)

	assert.NotEmpty(t, concepts)
	assert.Equal(t, "vaccine", concepts[0], "matched campaign keywords come before lexicon hits")
	assert.Contains(t, concepts, "cancer")
	assert.NotContains(t, concepts, "5g towers", "keywords absent from the text are not concepts")
}

func TestExtractConcepts_LexiconFallback(t *testing.T) {
	text := "Ivermectin cures covid, the CDC does not want you to know"

	concepts := ExtractConcepts(text, nil, 5)

	assert.Contains(t, concepts, "ivermectin")
	assert.Contains(t, concepts, "covid")
	assert.Contains(t, concepts, "cdc")
}

func TestExtractConcepts_Deterministic(t *testing.T) {
	text := "vaccine mercury toxins detox immunity fluoride autism"

	first := ExtractConcepts(text, nil, 5)
	second := ExtractConcepts(text, nil, 5)

	assert.Equal(t, first, second)
	assert.Len(t, first, 5)
}

func TestExtractConcepts_NoMedicalContent(t *testing.T) {
	concepts := ExtractConcepts("lovely weather in the park today", nil, 5)
	assert.Empty(t, concepts)
}

func TestExtractKeyTerms_MedicalBoost(t *testing.T) {
	// "sharing" appears twice, "vaccine" once; the lexicon boost should still
	// rank vaccine first.
	text := "sharing sharing this because the vaccine story matters"

	terms := ExtractKeyTerms(text, 3)

	assert.NotEmpty(t, terms)
	assert.Equal(t, "vaccine", terms[0])
}

func TestExtractKeyTerms_FiltersStopwordsAndCapsK(t *testing.T) {
	text := "the and because it was that they were with from covid covid treatment"

	terms := ExtractKeyTerms(text, 2)

	assert.Len(t, terms, 2)
	for _, term := range terms {
		assert.NotContains(t, []string{"the", "and", "because"}, term)
	}
}

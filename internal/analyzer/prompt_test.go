package analyzer

import (
	"testing"

	"medwatch/internal/models"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
)

func TestBuildPrompt_WithEvidence(t *testing.T) {
	post := &models.Post{
		Platform: models.PlatformTwitter,
		Author:   "health_skeptic",
		Text:     "The vaccine alters your DNA",
	}
	citations := []models.Citation{
		{Title: "mRNA vaccines do not integrate into the genome", Authors: pq.StringArray{"Smith J", "Doe A"}, Year: 2021, URL: "https://doi.org/10.1000/abc"},
		{Title: "Genomic stability after vaccination", Year: 2022, URL: "https://pubmed.ncbi.nlm.nih.gov/222/"},
	}

	prompt := BuildPrompt(post, []string{"vaccine"}, []string{"vaccine", "mrna"}, citations)

	assert.Contains(t, prompt.System, "JSON")
	assert.Contains(t, prompt.User, "The vaccine alters your DNA")
	assert.Contains(t, prompt.User, "CAMPAIGN TOPIC KEYWORDS: vaccine")
	assert.Contains(t, prompt.User, "MEDICAL CONCEPTS DETECTED: vaccine, mrna")
	assert.Contains(t, prompt.User, "[1] TITLE: mRNA vaccines do not integrate into the genome")
	assert.Contains(t, prompt.User, "AUTHORS: Smith J, Doe A")
	assert.Contains(t, prompt.User, "[2] TITLE: Genomic stability after vaccination")
	assert.Contains(t, prompt.User, `"grade"`)
}

func TestBuildPrompt_WithoutEvidence(t *testing.T) {
	post := &models.Post{Platform: models.PlatformReddit, Author: "someone", Text: "text"}

	prompt := BuildPrompt(post, nil, nil, nil)

	assert.Contains(t, prompt.User, "No relevant literature was found")
	assert.NotContains(t, prompt.User, "[1]")
}

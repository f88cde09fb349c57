package analyzer

import (
	"fmt"
	"strings"

	"medwatch/internal/llm"
	"medwatch/internal/models"
)

const systemPrompt = `You are a medical fact-checker. Evaluate social media posts for health disinformation with evidence-based rigor.
Use ONLY the provided literature evidence; cite indices [n] when you rely on a source.
If the evidence is insufficient, lower your confidence instead of inventing support.
Respond ONLY with a JSON object, no text outside the JSON.`

const verdictSchema = `{
  "grade": 1-5,
  "verdict": "real" | "uncertain" | "fake",
  "justification": "why you assigned this grade, citing evidence [n] where used",
  "sentiment": "positive" | "neutral" | "negative",
  "confidence": 0.0-1.0,
  "sources": ["URL of each cited evidence item"]
}`

// BuildPrompt assembles the structured evaluation prompt for a post: the post
// text, the campaign's scientific context and the retrieved citations
// formatted with [n] indices.
func BuildPrompt(post *models.Post, campaignKeywords, concepts []string, citations []models.Citation) llm.Prompt {
	var b strings.Builder

	fmt.Fprintf(&b, "POST (%s, by %s):\n%s\n\n", post.Platform, post.Author, post.Text)

	if len(campaignKeywords) > 0 {
		fmt.Fprintf(&b, "CAMPAIGN TOPIC KEYWORDS: %s\n", strings.Join(campaignKeywords, ", "))
	}
	if len(concepts) > 0 {
		fmt.Fprintf(&b, "MEDICAL CONCEPTS DETECTED: %s\n", strings.Join(concepts, ", "))
	}

	b.WriteString("\nLITERATURE EVIDENCE:\n")
	if len(citations) == 0 {
		b.WriteString("No relevant literature was found. Judge from the text alone and reduce confidence accordingly.\n")
	} else {
		b.WriteString(formatEvidence(citations))
	}

	fmt.Fprintf(&b, "\nGrading scale: %d = accurate content, %d = severe, dangerous disinformation.\n", models.GradeMin, models.GradeMax)
	fmt.Fprintf(&b, "Return ONLY JSON with exactly these fields:\n%s\n", verdictSchema)

	return llm.Prompt{
		System: systemPrompt,
		User:   b.String(),
	}
}

// formatEvidence renders citations as an indexed block the model can cite.
func formatEvidence(citations []models.Citation) string {
	var b strings.Builder
	for i, c := range citations {
		fmt.Fprintf(&b, "[%d] TITLE: %s\n", i+1, c.Title)
		if len(c.Authors) > 0 {
			fmt.Fprintf(&b, "AUTHORS: %s\n", strings.Join(c.Authors, ", "))
		}
		if c.Year > 0 {
			fmt.Fprintf(&b, "YEAR: %d\n", c.Year)
		}
		fmt.Fprintf(&b, "URL: %s\n\n", c.URL)
	}
	return b.String()
}

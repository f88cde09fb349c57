// Package analyzer produces a structured disinformation assessment for a
// single post: it extracts medical concepts and key terms, gathers literature
// evidence, drives the configured language-model providers in priority order
// and validates the verdict into an AnalysisResult.
package analyzer

import (
	"context"
	"errors"
	"fmt"
	"log"

	"medwatch/internal/evidence"
	"medwatch/internal/llm"
	"medwatch/internal/models"
)

// Error reasons for terminal per-post failures.
const (
	ReasonNoProvider      = "no provider available"
	ReasonSchemaViolation = "schema violation"
)

// AnalysisError is a terminal failure for one post. It never crosses the
// post boundary: the orchestrator records it and moves on.
type AnalysisError struct {
	Reason string
	Err    error
}

func (e *AnalysisError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("analysis failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("analysis failed: %s", e.Reason)
}

func (e *AnalysisError) Unwrap() error {
	return e.Err
}

// EvidenceRetriever gathers literature citations for a set of concepts.
type EvidenceRetriever interface {
	Retrieve(ctx context.Context, concepts []string, maxResults int) ([]models.Citation, error)
}

// VerdictProvider is a language-model backend behind the adapter contract.
type VerdictProvider interface {
	Name() string
	Evaluate(ctx context.Context, p llm.Prompt) (llm.RawVerdict, error)
}

// CampaignContext is the scientific context a campaign provides for
// evaluating its posts.
type CampaignContext struct {
	Keywords []string
}

// Analyzer evaluates single posts. It retains no state across calls; every
// invocation is independent and safe to retry from scratch.
type Analyzer struct {
	retriever   EvidenceRetriever
	providers   []VerdictProvider // priority order
	maxEvidence int
}

// New creates an analyzer using the given retriever and providers in
// priority order.
func New(retriever EvidenceRetriever, providers []VerdictProvider) *Analyzer {
	return &Analyzer{
		retriever:   retriever,
		providers:   providers,
		maxEvidence: 3,
	}
}

// Analyze evaluates one post against the campaign context and returns a
// fully populated result, or an AnalysisError that leaves the post
// unanalyzed.
func (a *Analyzer) Analyze(ctx context.Context, post *models.Post, campaign CampaignContext) (*models.AnalysisResult, error) {
	concepts := ExtractConcepts(post.Text, campaign.Keywords, 5)
	keyTerms := ExtractKeyTerms(post.Text, 8)

	citations, degraded := a.gatherEvidence(ctx, post.ID.String(), concepts)

	prompt := BuildPrompt(post, campaign.Keywords, concepts, citations)

	verdict, provider, err := a.evaluate(ctx, prompt)
	if err != nil {
		return nil, err
	}

	confidence := verdict.Confidence
	if degraded {
		// An assessment without literature backing is worth strictly less.
		confidence *= 1 - evidencePenalty
		if confidence < confidenceFloor {
			confidence = confidenceFloor
		}
	}

	return &models.AnalysisResult{
		PostID:          post.ID,
		Grade:           verdict.Grade,
		Verdict:         verdict.Label,
		Justification:   verdict.Justification,
		Sentiment:       verdict.Sentiment,
		Confidence:      confidence,
		MedicalConcepts: concepts,
		KeyTerms:        keyTerms,
		EvidenceCount:   len(citations),
		Provider:        provider,
		Citations:       citations,
	}, nil
}

// gatherEvidence retrieves citations, degrading to an empty list when the
// index is unavailable. The bool result reports degradation.
func (a *Analyzer) gatherEvidence(ctx context.Context, postID string, concepts []string) ([]models.Citation, bool) {
	citations, err := a.retriever.Retrieve(ctx, concepts, a.maxEvidence)
	if err == nil {
		return citations, false
	}
	if errors.Is(err, evidence.ErrUnavailable) {
		log.Printf("[%s] literature index unavailable, continuing without evidence: %v", postID, err)
	} else {
		log.Printf("[%s] evidence retrieval failed, continuing without evidence: %v", postID, err)
	}
	return nil, true
}

// evaluate tries each configured provider in priority order. An unavailable
// provider triggers failover to the next; a malformed or schema-violating
// verdict fails the post, since resubmitting the same content is a schema
// problem rather than a transient one.
func (a *Analyzer) evaluate(ctx context.Context, prompt llm.Prompt) (*Verdict, string, error) {
	var lastErr error

	for _, provider := range a.providers {
		raw, err := provider.Evaluate(ctx, prompt)
		if err != nil {
			var unavailable *llm.ProviderUnavailableError
			if errors.As(err, &unavailable) {
				log.Printf("Provider %s unavailable, trying next: %v", provider.Name(), err)
				lastErr = err
				continue
			}
			// Malformed or otherwise uncoercible responses are schema
			// problems; resubmitting the same post will not fix them.
			return nil, "", &AnalysisError{Reason: ReasonSchemaViolation, Err: err}
		}

		verdict, err := NormalizeVerdict(raw)
		if err != nil {
			return nil, "", &AnalysisError{Reason: ReasonSchemaViolation, Err: err}
		}
		return verdict, provider.Name(), nil
	}

	return nil, "", &AnalysisError{Reason: ReasonNoProvider, Err: lastErr}
}

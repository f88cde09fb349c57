package analyzer

import (
	"sort"
	"strings"
	"unicode"
)

// medicalLexicon lists terms that mark a token as a medical concept when
// campaign keywords alone find nothing. Kept lowercase.
var medicalLexicon = map[string]struct{}{
	"vaccine": {}, "vaccines": {}, "vaccination": {}, "mrna": {},
	"virus": {}, "viral": {}, "covid": {}, "coronavirus": {}, "influenza": {}, "flu": {},
	"measles": {}, "polio": {}, "hpv": {}, "hiv": {}, "aids": {},
	"cancer": {}, "tumor": {}, "chemotherapy": {}, "radiation": {}, "oncology": {},
	"diabetes": {}, "insulin": {}, "glucose": {}, "obesity": {},
	"autism": {}, "adhd": {}, "alzheimer": {}, "dementia": {}, "parkinson": {},
	"antibiotic": {}, "antibiotics": {}, "antiviral": {}, "ivermectin": {},
	"hydroxychloroquine": {}, "paracetamol": {}, "ibuprofen": {}, "aspirin": {},
	"cardiovascular": {}, "heart": {}, "stroke": {}, "hypertension": {}, "cholesterol": {},
	"immunity": {}, "immune": {}, "antibodies": {}, "antibody": {},
	"pregnancy": {}, "fertility": {}, "miscarriage": {},
	"fluoride": {}, "mercury": {}, "aluminum": {}, "toxin": {}, "toxins": {},
	"detox": {}, "homeopathy": {}, "supplement": {}, "supplements": {},
	"vitamin": {}, "vitamins": {}, "zinc": {}, "magnesium": {},
	"microchip": {}, "5g": {}, "gmo": {}, "glyphosate": {},
	"therapy": {}, "treatment": {}, "cure": {}, "dose": {}, "dosage": {},
	"clinical": {}, "trial": {}, "placebo": {}, "fda": {}, "who": {}, "cdc": {},
	"infection": {}, "bacteria": {}, "pathogen": {}, "epidemic": {}, "pandemic": {},
}

// stopwords filtered out of key-term extraction. Covers the bulk of English
// function words seen in social posts.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {}, "been": {},
	"but": {}, "by": {}, "can": {}, "do": {}, "does": {}, "for": {}, "from": {}, "had": {},
	"has": {}, "have": {}, "he": {}, "her": {}, "his": {}, "i": {}, "if": {}, "in": {},
	"is": {}, "it": {}, "its": {}, "just": {}, "me": {}, "more": {}, "my": {}, "no": {},
	"not": {}, "of": {}, "on": {}, "or": {}, "our": {}, "out": {}, "she": {}, "so": {},
	"than": {}, "that": {}, "the": {}, "their": {}, "them": {}, "then": {}, "there": {},
	"they": {}, "this": {}, "to": {}, "up": {}, "was": {}, "we": {}, "were": {}, "what": {},
	"when": {}, "which": {}, "who": {}, "will": {}, "with": {}, "would": {}, "you": {},
	"your": {}, "about": {}, "all": {}, "also": {}, "any": {}, "because": {}, "how": {},
	"into": {}, "like": {}, "only": {}, "other": {}, "over": {}, "some": {}, "very": {},
}

// tokenize lowercases the text and splits on anything that is not a letter or
// digit, keeping tokens of two or more runes.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		if len(f) >= 2 {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

// ExtractConcepts returns the medical concepts found in the post text:
// campaign keywords that occur in the text first, then lexicon matches as a
// fallback. Deduplicated, capped at maxConcepts, deterministic order.
func ExtractConcepts(text string, keywords []string, maxConcepts int) []string {
	if maxConcepts <= 0 {
		maxConcepts = 5
	}
	lower := strings.ToLower(text)

	var concepts []string
	seen := make(map[string]struct{})
	add := func(c string) {
		c = strings.ToLower(strings.TrimSpace(c))
		if c == "" {
			return
		}
		if _, ok := seen[c]; ok {
			return
		}
		seen[c] = struct{}{}
		concepts = append(concepts, c)
	}

	for _, kw := range keywords {
		if kw = strings.TrimSpace(kw); kw == "" {
			continue
		}
		if strings.Contains(lower, strings.ToLower(kw)) {
			add(kw)
		}
	}

	// Dictionary fallback keeps the pipeline useful when campaign keywords
	// miss the post entirely.
	var lexiconHits []string
	for _, tok := range tokenize(text) {
		if _, ok := medicalLexicon[tok]; ok {
			lexiconHits = append(lexiconHits, tok)
		}
	}
	sort.Strings(lexiconHits)
	for _, hit := range lexiconHits {
		add(hit)
	}

	if len(concepts) > maxConcepts {
		concepts = concepts[:maxConcepts]
	}
	return concepts
}

// ExtractKeyTerms returns the k most frequent non-stopword terms in the text.
// Medical lexicon terms get a frequency boost so domain terms surface ahead
// of generic chatter. Ties break alphabetically for determinism.
func ExtractKeyTerms(text string, k int) []string {
	if k <= 0 {
		k = 8
	}

	counts := make(map[string]int)
	for _, tok := range tokenize(text) {
		if _, ok := stopwords[tok]; ok {
			continue
		}
		counts[tok]++
	}
	for term := range counts {
		if _, ok := medicalLexicon[term]; ok {
			counts[term] *= 3
		}
	}

	terms := make([]string, 0, len(counts))
	for term := range counts {
		terms = append(terms, term)
	}
	sort.Slice(terms, func(i, j int) bool {
		if counts[terms[i]] != counts[terms[j]] {
			return counts[terms[i]] > counts[terms[j]]
		}
		return terms[i] < terms[j]
	})

	if len(terms) > k {
		terms = terms[:k]
	}
	return terms
}

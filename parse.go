package insight

import "strings"

const (
	// ReferenceDelimiter separates the answer from its supporting excerpt
	// in the raw completion text.
	ReferenceDelimiter = "Ref:"

	// NoAnswerSentinel is the fixed phrase signaling that no retrieved
	// context answers the question.
	NoAnswerSentinel = "I don't know"
)

// AnswerResult is the parsed outcome of one query, plus the per-chunk
// diagnostics from retrieval.
type AnswerResult struct {
	Answer        string    `json:"answer"`
	Reference     string    `json:"reference,omitempty"`
	HasReference  bool      `json:"has_reference"`
	ShowReference bool      `json:"show_reference"`
	Scores        []float32 `json:"scores,omitempty"`
	Contents      []string  `json:"contents,omitempty"`
}

// Parse splits raw completion text at the first reference delimiter. Text
// before it is the answer, text after it the reference; without a delimiter
// the whole text is the answer and the reference is absent.
//
// ShowReference carries the display contract: a sentinel answer suppresses
// the reference even when one was parsed. The sentinel check is a plain
// substring match, so an answer that legitimately contains the phrase also
// suppresses its reference.
func Parse(raw string) *AnswerResult {
	answer, reference, found := strings.Cut(raw, ReferenceDelimiter)

	res := &AnswerResult{
		Answer: strings.TrimSpace(answer),
	}

	if found {
		res.Reference = strings.TrimSpace(reference)
		res.HasReference = true
	}

	res.ShowReference = res.HasReference && !strings.Contains(res.Answer, NoAnswerSentinel)

	return res
}

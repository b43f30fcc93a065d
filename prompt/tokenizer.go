package prompt

import "strings"

// Tokenizer estimates the token length of text for budget accounting.
type Tokenizer interface {
	Count(text string) int
}

// wordTokenizer approximates tokens as whitespace-delimited words. Close
// enough for a budget that only decides how many sections fit.
type wordTokenizer struct{}

func (wordTokenizer) Count(text string) int {
	return len(strings.Fields(text))
}

func NewWordTokenizer() Tokenizer {
	return wordTokenizer{}
}

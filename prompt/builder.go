package prompt

import (
	"strings"

	"github.com/w-h-a/insight/store"
)

const (
	// Header instructs the model to answer from the context only, to fall
	// back to the no-answer sentinel, and to cite its excerpt after "Ref:".
	Header = "Answer the question as truthfully as possible using the provided context, " +
		"and include the parts of the context that are used to generate the answer " +
		"after the answer starting with \"\nRef:\". " +
		"If the answer is not contained within the text below, say \"I don't know.\"\n\nContext:\n"

	Separator = "\n* "
)

// Builder assembles the completion prompt from a question and ranked chunks.
// Build is pure: the same inputs always produce the same prompt.
type Builder struct {
	options Options
}

// Build appends chunk sections in ranked order under a strict token budget:
// the first section that would overflow MaxSectionLen stops inclusion, with
// no reordering and no partial sections. Newlines inside a section are
// collapsed to spaces so each section stays a single bullet.
func (b *Builder) Build(question string, results []store.Result) string {
	separatorLen := b.options.Tokenizer.Count(Separator)

	var sb strings.Builder
	sb.WriteString(Header)

	used := 0
	for _, r := range results {
		section := strings.ReplaceAll(r.Chunk.Content, "\n", " ")

		cost := b.options.Tokenizer.Count(section) + separatorLen
		if used+cost > b.options.MaxSectionLen {
			break
		}
		used += cost

		sb.WriteString(Separator)
		sb.WriteString(section)
	}

	sb.WriteString("\n\n Q: ")
	sb.WriteString(question)
	sb.WriteString("\n A:")

	return sb.String()
}

func NewBuilder(opts ...Option) *Builder {
	options := NewOptions(opts...)

	return &Builder{
		options: options,
	}
}

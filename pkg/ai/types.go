package ai

import (
	"context"
	"errors"
)

// Goodbye texts used when the generator is unavailable or returns nothing.
const (
	FallbackGoodbye = "하교가 완료되었습니다. 조심히 들어가세요!"
	EmptyGoodbye    = "오늘 하루도 수고했어요! 조심히 들어가세요."
)

// ErrSearchFailed wraps failures of the search-augmented generator.
var ErrSearchFailed = errors.New("search generation failed")

// Citation is a source reference returned with generated text.
type Citation struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// SearchResult is the text and grounding returned by a search-enabled call.
type SearchResult struct {
	Text      string
	Citations []Citation
}

// GoodbyeWriter produces the decorative message attached to a dismissal.
// Implementations never fail; they fall back to FallbackGoodbye.
type GoodbyeWriter interface {
	Goodbye(ctx context.Context, studentName string, grade int) string
}

// Searcher runs a prompt with web search enabled.
type Searcher interface {
	Search(ctx context.Context, prompt string) (SearchResult, error)
}

// StaticGoodbye always answers with FallbackGoodbye. It is used when no
// generator is configured.
type StaticGoodbye struct{}

// Goodbye returns FallbackGoodbye.
func (StaticGoodbye) Goodbye(context.Context, string, int) string {
	return FallbackGoodbye
}

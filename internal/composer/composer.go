// Package composer assembles the final answer from ranked retrieval results.
// When a generator is configured it builds a bounded context prompt and asks
// the model; when generation is absent or fails it degrades to an extractive
// answer built from the best-matching chunk. Either way the answer carries a
// confidence score derived from the retrieval scores.
package composer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/alphas/policyrag-go/internal/rag"
)

// Defaults applied when Options fields are zero.
const (
	defaultMaxContextChars = 6000
	defaultGenTimeout      = 60 * time.Second

	// extractExcerptLen bounds the chunk excerpt used in extractive answers.
	extractExcerptLen = 600

	// fallbackPenalty scales confidence down when retrieval abandoned the
	// requested filter.
	fallbackPenalty = 0.75
)

// noAnswerText is returned when retrieval produced no results at all.
const noAnswerText = "I could not find any relevant policy information for your question. " +
	"Try rephrasing it or removing the department/category filter."

// Options configures a Composer.
type Options struct {
	// MaxContextChars bounds the total chunk text included in the prompt.
	// Lowest-scoring chunks are dropped first when the budget is exceeded.
	MaxContextChars int

	// GenTimeout bounds a single generation call.
	GenTimeout time.Duration
}

// withDefaults fills zero fields with the package defaults.
func (o Options) withDefaults() Options {
	if o.MaxContextChars <= 0 {
		o.MaxContextChars = defaultMaxContextChars
	}
	if o.GenTimeout <= 0 {
		o.GenTimeout = defaultGenTimeout
	}
	return o
}

// Composer turns retrieval results into an Answer. Safe for concurrent use.
type Composer struct {
	// generator is the optional external generation capability. Nil means
	// extractive composition only.
	generator rag.Generator

	// opts holds the resolved tuning knobs.
	opts Options

	// log receives degradation events.
	log *slog.Logger
}

// New constructs a Composer. generator may be nil — extractive answers are
// then produced unconditionally.
func New(generator rag.Generator, opts Options, log *slog.Logger) *Composer {
	if log == nil {
		log = slog.Default()
	}
	return &Composer{
		generator: generator,
		opts:      opts.withDefaults(),
		log:       log,
	}
}

// Compose builds the answer for a question from its ranked retrieval results.
// useAI false forces an extractive answer even when a generator is configured.
// fallback indicates the retrieval stage abandoned the requested filter; it is
// propagated onto the answer and discounts the confidence. Generation failures
// never fail the request — they degrade to an extractive answer.
func (c *Composer) Compose(ctx context.Context, question string, results []rag.RetrievalResult, useAI, fallback bool) (rag.Answer, error) {
	if len(results) == 0 {
		return rag.Answer{
			Text:       noAnswerText,
			Confidence: 0,
			Sources:    []rag.RetrievalResult{},
			Fallback:   fallback,
		}, nil
	}

	answer := rag.Answer{
		Confidence: confidence(results, fallback),
		Sources:    results,
		Fallback:   fallback,
	}

	if useAI && c.generator != nil {
		genCtx, cancel := context.WithTimeout(ctx, c.opts.GenTimeout)
		text, err := c.generator.Generate(genCtx, c.buildPrompt(question, results))
		cancel()
		switch {
		case err == nil && strings.TrimSpace(text) != "":
			answer.Text = strings.TrimSpace(text)
			answer.UsedGeneration = true
			return answer, nil
		case err == nil:
			c.log.Warn("composer: generator returned empty text, degrading to extractive answer")
		case errors.Is(err, rag.ErrGenerationUnavailable) || errors.Is(err, context.DeadlineExceeded):
			c.log.Warn("composer: generation unavailable, degrading to extractive answer",
				slog.String("error", err.Error()),
			)
		default:
			return rag.Answer{}, fmt.Errorf("composer: generation failed: %w", err)
		}
	}

	answer.Text = extractive(results[0])
	answer.UsedGeneration = false
	return answer, nil
}

// buildPrompt assembles the generation prompt: instructions, the numbered
// context blocks (best match first, bounded by MaxContextChars), and the
// question. Lowest-scoring chunks are dropped first when over budget.
func (c *Composer) buildPrompt(question string, results []rag.RetrievalResult) string {
	var b strings.Builder
	b.WriteString("You are an HR policy assistant. Answer the question using only the policy excerpts below. ")
	b.WriteString("If the excerpts do not contain the answer, say so. Cite the document title you relied on.\n\n")

	used := 0
	n := 0
	for _, r := range results {
		block := fmt.Sprintf("[%d] %s (%s / %s)\n%s\n\n", n+1, r.Title, r.Department, r.Category, r.Text)
		if used+len(block) > c.opts.MaxContextChars && n > 0 {
			break
		}
		b.WriteString(block)
		used += len(block)
		n++
	}

	b.WriteString("Question: ")
	b.WriteString(question)
	b.WriteString("\nAnswer:")
	return b.String()
}

// extractive builds an answer directly from the best-matching chunk: the
// parent document title as attribution plus a bounded excerpt of the chunk.
func extractive(top rag.RetrievalResult) string {
	excerpt := strings.TrimSpace(top.Text)
	if len(excerpt) > extractExcerptLen {
		cut := excerpt[:extractExcerptLen]
		if i := strings.LastIndexByte(cut, ' '); i > 0 {
			cut = cut[:i]
		}
		excerpt = cut + "…"
	}
	return fmt.Sprintf("According to %q: %s", top.Title, excerpt)
}

// confidence derives the answer confidence from the retrieval scores: the top
// score clamped to [0,1], scaled up as more corroborating sources appear, and
// discounted when the filter was abandoned. Monotonic in the top score and
// non-decreasing in the source count.
func confidence(results []rag.RetrievalResult, fallback bool) float32 {
	top := results[0].Score
	if top < 0 {
		top = 0
	}
	if top > 1 {
		top = 1
	}
	n := float32(len(results))
	conf := top * (1 - 0.3/(1+n))
	if fallback {
		conf *= fallbackPenalty
	}
	return conf
}

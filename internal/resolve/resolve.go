// Package resolve picks the best available summary for a disclosure by
// trying progressively cheaper strategies.
package resolve

import (
	"context"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/sells-group/disclosure-cli/internal/cleantext"
	"github.com/sells-group/disclosure-cli/internal/model"
	"github.com/sells-group/disclosure-cli/internal/structured"
	"github.com/sells-group/disclosure-cli/pkg/cse"
)

const (
	minDescription = 30
	minRawText     = 20
	maxRawText     = 500
)

// Strategy names the step that produced a summary.
type Strategy int

// Strategies in the order they are tried.
const (
	StrategyNone Strategy = iota
	StrategyStructured
	StrategyDocument
	StrategyDescription
	StrategyRawText
	StrategyTerminal
)

func (s Strategy) String() string {
	switch s {
	case StrategyStructured:
		return "structured"
	case StrategyDocument:
		return "document"
	case StrategyDescription:
		return "description"
	case StrategyRawText:
		return "raw_text"
	case StrategyTerminal:
		return "terminal"
	default:
		return "none"
	}
}

// Resolution is a summary and the strategy that produced it.
type Resolution struct {
	Summary  string
	Strategy Strategy
}

// Input is everything known about one disclosure. Detail may be nil.
// Documents are absolute URLs; only the first is read.
type Input struct {
	Company   string
	Category  string
	Detail    *model.Detail
	Documents []string
}

// DocumentSource downloads a document.
type DocumentSource interface {
	FetchDocument(ctx context.Context, url string) ([]byte, error)
}

// TextExtractor turns document bytes into text.
type TextExtractor interface {
	Extract(ctx context.Context, data []byte) (string, error)
}

// Summarizer condenses text with a language model.
type Summarizer interface {
	Summarize(ctx context.Context, text, company, category string) (string, bool)
}

// Resolver runs the summary strategies in order.
type Resolver struct {
	docs       DocumentSource
	extractor  TextExtractor
	summarizer Summarizer
}

// New creates a Resolver.
func New(docs DocumentSource, extractor TextExtractor, summarizer Summarizer) *Resolver {
	return &Resolver{docs: docs, extractor: extractor, summarizer: summarizer}
}

// Resolve always returns a non-empty summary. It tries, in order: the
// structured template, the first document through the summarizer, the
// detail text through the summarizer when there are no documents, the raw
// detail text, and finally "{company} — {category}.".
func (r *Resolver) Resolve(ctx context.Context, in Input) Resolution {
	if res, ok := r.Improve(ctx, in); ok {
		return res
	}

	if text := cleantext.Collapse(in.Detail.Text(), 0); utf8.RuneCountInString(text) > minRawText {
		if utf8.RuneCountInString(text) > maxRawText {
			text = string([]rune(text)[:maxRawText-3]) + "..."
		}
		return Resolution{Summary: in.Company + ": " + text, Strategy: StrategyRawText}
	}

	return Resolution{Summary: in.Company + " — " + in.Category + ".", Strategy: StrategyTerminal}
}

// Improve runs only the strategies that can produce a better summary than
// the raw fallbacks. It returns false when none succeeded.
func (r *Resolver) Improve(ctx context.Context, in Input) (Resolution, bool) {
	log := zap.L().With(zap.String("company", in.Company), zap.String("category", in.Category))

	if summary, ok := structured.Build(in.Detail); ok {
		return Resolution{Summary: summary, Strategy: StrategyStructured}, true
	}

	if len(in.Documents) > 0 {
		if text := r.documentText(ctx, in.Documents[0], log); text != "" {
			if summary, ok := r.summarize(ctx, text, in); ok {
				return Resolution{Summary: summary, Strategy: StrategyDocument}, true
			}
		}
		return Resolution{}, false
	}

	if text := strings.TrimSpace(in.Detail.Text()); utf8.RuneCountInString(text) > minDescription {
		if summary, ok := r.summarize(ctx, text, in); ok {
			return Resolution{Summary: summary, Strategy: StrategyDescription}, true
		}
	}
	return Resolution{}, false
}

func (r *Resolver) summarize(ctx context.Context, text string, in Input) (string, bool) {
	if r.summarizer == nil {
		return "", false
	}
	return r.summarizer.Summarize(ctx, text, in.Company, in.Category)
}

// documentText returns "" on any failure; failures are logged and absorbed.
func (r *Resolver) documentText(ctx context.Context, url string, log *zap.Logger) string {
	if r.docs == nil || r.extractor == nil {
		return ""
	}
	data, err := r.docs.FetchDocument(context.WithoutCancel(ctx), url)
	if err != nil {
		log.Info("resolve: document unavailable",
			zap.String("op", "fetch_document"),
			zap.Stringer("kind", cse.KindOf(err)),
			zap.String("url", url),
			zap.Error(err))
		return ""
	}
	text, err := r.extractor.Extract(context.WithoutCancel(ctx), data)
	if err != nil {
		log.Info("resolve: no document text", zap.String("op", "extract_text"), zap.String("url", url), zap.Error(err))
		return ""
	}
	return text
}

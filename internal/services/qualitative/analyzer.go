// -----------------------------------------------------------------------
// Qualitative analyzer - chunk, embed, cluster, then score each
// cluster into a themed insight
// -----------------------------------------------------------------------

package qualitative

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/augur/internal/interfaces"
	"github.com/ternarybob/augur/internal/models"
)

// quoteLimit bounds the supporting quote length in runes.
const quoteLimit = 240

// Analyzer turns transcript text into themed, sentiment-scored
// insights backed by representative quotes.
type Analyzer struct {
	embedder  interfaces.Embedder
	lexicon   *Lexicon
	logger    arbor.ILogger
	trace     interfaces.TraceSink
	chunkSize int
	overlap   float64
	threshold float64

	themeMu   sync.Mutex
	themeVecs [][]float32
}

// AnalyzerOption adjusts analyzer construction.
type AnalyzerOption func(*Analyzer)

// WithChunking overrides the chunk size and overlap fraction.
func WithChunking(words int, overlap float64) AnalyzerOption {
	return func(a *Analyzer) {
		a.chunkSize = words
		a.overlap = overlap
	}
}

// WithSimilarityThreshold overrides the clustering threshold.
func WithSimilarityThreshold(threshold float64) AnalyzerOption {
	return func(a *Analyzer) {
		a.threshold = threshold
	}
}

// NewAnalyzer creates an analyzer over the given embedder using the
// embedded lexicon.
func NewAnalyzer(embedder interfaces.Embedder, logger arbor.ILogger, opts ...AnalyzerOption) (*Analyzer, error) {
	lexicon, err := LoadLexicon()
	if err != nil {
		return nil, err
	}
	a := &Analyzer{
		embedder:  embedder,
		lexicon:   lexicon,
		logger:    logger,
		chunkSize: DefaultChunkWords,
		overlap:   DefaultChunkOverlap,
		threshold: DefaultSimilarityThreshold,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// Lexicon exposes the loaded lexicon, synthesis uses its risk themes.
func (a *Analyzer) Lexicon() *Lexicon { return a.lexicon }

// WithTrace returns an analyzer whose steps record to sink. The clone
// shares the embedder, lexicon and theme cache with the receiver.
func (a *Analyzer) WithTrace(sink interfaces.TraceSink) *Analyzer {
	clone := &Analyzer{
		embedder:  a.embedder,
		lexicon:   a.lexicon,
		logger:    a.logger,
		trace:     sink,
		chunkSize: a.chunkSize,
		overlap:   a.overlap,
		threshold: a.threshold,
	}
	a.themeMu.Lock()
	clone.themeVecs = a.themeVecs
	a.themeMu.Unlock()
	return clone
}

// Analyze chunks one transcript, embeds the chunks, clusters them and
// scores each cluster into an insight. An empty or unembeddable
// transcript returns no insights, the coordinator records the gap.
func (a *Analyzer) Analyze(ctx context.Context, doc *models.SourceDocument) ([]models.QualitativeInsight, error) {
	text := doc.Text
	if text == "" {
		text = doc.OCRText
	}
	chunks := ChunkText(text, a.chunkSize, a.overlap)
	if len(chunks) == 0 {
		a.record(fmt.Sprintf("qualitative %s: no chunkable text", doc.ID))
		return nil, nil
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Text
	}
	vectors, err := a.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed %d chunks: %w", len(chunks), err)
	}

	themeVecs, err := a.themeVectors(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to embed theme probes: %w", err)
	}

	clusters := GreedyCluster(vectors, a.threshold)
	a.record(fmt.Sprintf("qualitative %s: %d chunks, %d clusters", doc.ID, len(chunks), len(clusters)))
	a.logger.Debug().
		Str("document_id", doc.ID).
		Int("chunks", len(chunks)).
		Int("clusters", len(clusters)).
		Msg("Clustered transcript chunks")

	insights := make([]models.QualitativeInsight, 0, len(clusters))
	for _, cl := range clusters {
		var joined strings.Builder
		for _, idx := range cl.Members {
			if joined.Len() > 0 {
				joined.WriteString(" ")
			}
			joined.WriteString(chunks[idx].Text)
		}

		n := len(cl.Members)
		sizeTerm := float64(n) / 5.0
		if sizeTerm > 1 {
			sizeTerm = 1
		}
		insights = append(insights, models.QualitativeInsight{
			Theme:            a.themeName(cl.Centroid, themeVecs),
			Sentiment:        models.ClampSentiment(ScoreSentiment(joined.String(), a.lexicon.Sentiment)),
			Quote:            truncateQuote(chunks[cl.Representative(vectors)].Text),
			Confidence:       models.ClampConfidence(0.5*cl.Cohesion + 0.5*sizeTerm),
			SourceDocumentID: doc.ID,
			ChunkCount:       n,
			Cohesion:         cl.Cohesion,
		})
	}

	return insights, nil
}

// themeVectors lazily embeds the theme probes, once per analyzer.
func (a *Analyzer) themeVectors(ctx context.Context) ([][]float32, error) {
	a.themeMu.Lock()
	defer a.themeMu.Unlock()
	if a.themeVecs != nil {
		return a.themeVecs, nil
	}

	queries := make([]string, len(a.lexicon.Themes))
	for i, t := range a.lexicon.Themes {
		queries[i] = t.Query
	}
	vecs, err := a.embedder.Embed(ctx, queries)
	if err != nil {
		return nil, err
	}
	a.themeVecs = vecs
	return vecs, nil
}

// themeName labels a centroid with the nearest theme probe.
func (a *Analyzer) themeName(centroid []float32, themeVecs [][]float32) string {
	best := 0
	bestSim := -1.0
	for i, tv := range themeVecs {
		if sim := CosineSimilarity(centroid, tv); sim > bestSim {
			bestSim = sim
			best = i
		}
	}
	return a.lexicon.Themes[best].Name
}

func (a *Analyzer) record(detail string) {
	if a.trace != nil {
		a.trace.AppendTrace(models.TraceTool, detail)
	}
}

// truncateQuote bounds a quote to quoteLimit runes on a word break.
func truncateQuote(text string) string {
	runes := []rune(text)
	if len(runes) <= quoteLimit {
		return text
	}
	cut := string(runes[:quoteLimit])
	if idx := strings.LastIndex(cut, " "); idx > quoteLimit/2 {
		cut = cut[:idx]
	}
	return cut + "..."
}

var _ interfaces.TranscriptAnalyzer = (*Analyzer)(nil)

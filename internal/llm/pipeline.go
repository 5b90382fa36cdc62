package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/hyperjump/askthebook/internal/cache"
	"github.com/hyperjump/askthebook/pkg/utils"
	"go.uber.org/zap"
)

// ErrGeneration marks a failed remote generation call. The request cannot be
// served; the HTTP layer maps it to a gateway error.
var ErrGeneration = errors.New("answer generation failed")

// ContextCompressor compresses a retrieved context. Implemented by Compressor.
type ContextCompressor interface {
	Compress(ctx context.Context, contextText string) (string, error)
}

// AnswerGenerator produces an answer from an instruction and context.
// Implemented by Generator.
type AnswerGenerator interface {
	Generate(ctx context.Context, instruction, contextText string) (string, error)
	Model() string
}

// Pipeline runs a request through cache lookup, conditional context
// compression, answer generation, and cache write-through.
type Pipeline struct {
	cache            *cache.ResponseCache
	compressor       ContextCompressor
	generator        AnswerGenerator
	minCompressChars int
	logger           *zap.Logger
}

// NewPipeline creates a pipeline. Contexts of minCompressChars or fewer
// characters skip compression entirely; a remote call costs more than it
// saves on short contexts.
func NewPipeline(c *cache.ResponseCache, comp ContextCompressor, gen AnswerGenerator, minCompressChars int, logger *zap.Logger) *Pipeline {
	return &Pipeline{
		cache:            c,
		compressor:       comp,
		generator:        gen,
		minCompressChars: minCompressChars,
		logger:           logger,
	}
}

// Respond answers instruction against contextText. A cache hit short-circuits
// with no remote calls. Compression failures degrade to the original context;
// generation failures are fatal to the request. The cache entry is keyed on
// the original, uncompressed context so an identical later question hits the
// cache regardless of compression behavior or availability.
func (p *Pipeline) Respond(ctx context.Context, query, mode, instruction, contextText string) (string, error) {
	model := p.generator.Model()

	if answer, ok := p.cache.Get(query, mode, contextText, model); ok {
		p.logger.Debug("cache hit", zap.String("mode", mode))
		return answer, nil
	}
	p.logger.Debug("cache miss",
		zap.String("mode", mode),
		zap.String("query", utils.Truncate(query, 80)))

	working := contextText
	if len(contextText) > p.minCompressChars {
		compressed, err := p.compressor.Compress(ctx, contextText)
		if err != nil {
			p.logger.Warn("compression failed, using original context", zap.Error(err))
		} else {
			p.logger.Debug("context compressed",
				zap.Int("original_chars", len(contextText)),
				zap.Int("compressed_chars", len(compressed)))
			working = compressed
		}
	}

	answer, err := p.generator.Generate(ctx, instruction, working)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrGeneration, err)
	}

	p.cache.Put(query, mode, contextText, model, answer)
	return answer, nil
}

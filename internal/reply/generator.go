// Package reply drafts public replies to product reviews.
package reply

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/tinyship/reviewreply/internal/llm"
	"github.com/tinyship/reviewreply/internal/models"
	"github.com/tinyship/reviewreply/internal/settings"
	"github.com/tinyship/reviewreply/internal/store"
	"github.com/tinyship/reviewreply/internal/textutil"
)

// Temperature is the sampling temperature sent with every request.
const Temperature = 0.6

// Store is the data the generator reads: the review, its product, and the
// settings record.
type Store interface {
	settings.OptionStore
	GetComment(ctx context.Context, id int64) (*models.Comment, error)
	GetProduct(ctx context.Context, id int64) (*models.Product, error)
}

// ProviderFunc builds a completion provider for the configured API key.
type ProviderFunc func(ctx context.Context, apiKey string) (llm.CompletionProvider, error)

// Generator turns a review into a reply draft with one completion call.
type Generator struct {
	store    Store
	provider ProviderFunc
	logger   *zap.Logger
	timeout  time.Duration
}

// NewGenerator creates a generator. A nil logger discards output.
func NewGenerator(s Store, provider ProviderFunc, logger *zap.Logger) *Generator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Generator{
		store:    s,
		provider: provider,
		logger:   logger,
		timeout:  llm.DefaultTimeout,
	}
}

// WithTimeout sets the bound on a single completion call. Non-positive
// values keep the current timeout.
func (g *Generator) WithTimeout(d time.Duration) *Generator {
	if d > 0 {
		g.timeout = d
	}
	return g
}

// Generate drafts a reply to the review with the given comment id. An empty
// tone uses the stored default; an unknown tone is coerced like the
// settings form does.
//
// Failures are *Error values: KindNotFound when the comment is missing or
// not a review, KindMissingConfiguration when no API key is set (both before
// any network call), KindTransport when the provider could not be reached,
// and KindUpstream when it answered with a failure or an empty reply.
func (g *Generator) Generate(ctx context.Context, commentID int64, tone string) (string, error) {
	review, err := g.store.GetComment(ctx, commentID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !review.IsReview()) {
		return "", newError(KindNotFound, "Review not found", err)
	}
	if err != nil {
		return "", err
	}

	cfg, err := settings.Load(ctx, g.store)
	if err != nil {
		return "", err
	}
	if cfg.APIKey == "" {
		return "", newError(KindMissingConfiguration, "Missing API key", nil)
	}

	replyTone := cfg.Tone
	if strings.TrimSpace(tone) != "" {
		replyTone = settings.NormalizeTone(tone)
	}

	model := cfg.Model
	if model == "" {
		model = settings.DefaultModel
	}

	system, user := BuildPrompt(PromptInput{
		Tone:     replyTone,
		Product:  g.productTitle(ctx, review.ProductID),
		Rating:   review.Rating,
		Reviewer: review.Author,
		Review:   review.Content,
	})

	provider, err := g.provider(ctx, cfg.APIKey)
	if err != nil {
		return "", err
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	start := time.Now()
	text, err := provider.Complete(ctx, system, user, model, Temperature)
	if err != nil {
		var statusErr *llm.StatusError
		if errors.As(err, &statusErr) {
			return "", newError(KindUpstream, statusErr.Error(), err)
		}
		return "", newError(KindTransport, err.Error(), err)
	}

	reply := strings.TrimSpace(textutil.StripTags(text))
	if reply == "" {
		return "", newError(KindUpstream, "completion returned an empty reply", nil)
	}

	g.logger.Debug("reply drafted",
		zap.Int64("comment_id", commentID),
		zap.String("tone", string(replyTone)),
		zap.String("model", model),
		zap.Duration("elapsed", time.Since(start)),
	)
	return reply, nil
}

// productTitle resolves a product's title, falling back to a generic noun
// when the product cannot be loaded.
func (g *Generator) productTitle(ctx context.Context, productID int64) string {
	p, err := g.store.GetProduct(ctx, productID)
	if err != nil {
		g.logger.Debug("product lookup failed", zap.Int64("product_id", productID), zap.Error(err))
		return ""
	}
	return p.Title
}

package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"exposure-server/shared/interfaces"
	"exposure-server/shared/models"
	"exposure-server/shared/utils"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	openaigo "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"
)

var _ interfaces.MediaResolver = (*CatalogMediaResolver)(nil)

var aiMediaRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "session_media_ai_requests_total",
		Help: "Total number of AI media selection requests, partitioned by outcome.",
	},
	[]string{"status"},
)

const mediaSelectionPrompt = `You pick calming media for a guided exposure-therapy story.
Choose at most one image, one video and one sound from the catalog below that fit the chapter.
Answer with a JSON object {"image": "<id>", "video": "<id>", "sound": "<id>"}; use "" when nothing fits.
Catalog:
%s`

// ChatCompleter is the part of the OpenAI client the resolver uses.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openaigo.ChatCompletionRequest) (openaigo.ChatCompletionResponse, error)
}

// AIConfig configures optional model-based selection.
type AIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// NewOpenAIChatCompleter builds an OpenAI-compatible client.
func NewOpenAIChatCompleter(cfg AIConfig) ChatCompleter {
	openaiConfig := openaigo.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		openaiConfig.BaseURL = cfg.BaseURL
	}
	openaiConfig.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	return openaigo.NewClientWithConfig(openaiConfig)
}

// CatalogMediaResolver suggests media from a local catalog.
// With a ChatCompleter it lets the model choose catalog ids and falls back to tag matching
// for any slot the model leaves empty or answers with an unknown id.
type CatalogMediaResolver struct {
	catalog *Catalog
	ai      ChatCompleter
	model   string
	logger  *zap.Logger
}

// NewCatalogMediaResolver creates a resolver. ai may be nil.
func NewCatalogMediaResolver(catalog *Catalog, ai ChatCompleter, model string, logger *zap.Logger) *CatalogMediaResolver {
	return &CatalogMediaResolver{
		catalog: catalog,
		ai:      ai,
		model:   model,
		logger:  logger.Named("CatalogMediaResolver"),
	}
}

type aiSelection struct {
	Image string `json:"image"`
	Video string `json:"video"`
	Sound string `json:"sound"`
}

// Resolve selects up to one asset per kind for the chapter.
func (r *CatalogMediaResolver) Resolve(ctx context.Context, req models.MediaRequest) (*models.MediaSuggestion, error) {
	if strings.TrimSpace(req.NarrativeText) == "" {
		return nil, fmt.Errorf("%w: empty narrative", models.ErrInvalidInput)
	}

	var selection aiSelection
	if r.ai != nil {
		picked, err := r.selectWithAI(ctx, req.NarrativeText)
		if err != nil {
			if ctx.Err() != nil {
				return nil, fmt.Errorf("%w: %v", models.ErrNetwork, ctx.Err())
			}
			r.logger.Warn("AI media selection failed, using tag matching", zap.Int("stage", req.Stage), zap.Error(err))
		} else {
			selection = picked
		}
	}

	suggestion := &models.MediaSuggestion{Stage: req.Stage}
	suggestion.Image = r.pick(AssetImage, selection.Image, req.NarrativeText)
	suggestion.Video = r.pick(AssetVideo, selection.Video, req.NarrativeText)
	suggestion.Sound = r.pick(AssetSound, selection.Sound, req.NarrativeText)
	return suggestion, nil
}

func (r *CatalogMediaResolver) pick(kind AssetKind, chosenID, text string) *string {
	if chosenID != "" {
		if asset, ok := r.catalog.Lookup(chosenID, kind); ok {
			url := asset.URL
			return &url
		}
		r.logger.Debug("Model chose an unknown asset", zap.String("id", chosenID), zap.String("kind", string(kind)))
	}
	if asset, ok := r.catalog.BestMatch(kind, text); ok {
		url := asset.URL
		return &url
	}
	return nil
}

func (r *CatalogMediaResolver) selectWithAI(ctx context.Context, narrative string) (aiSelection, error) {
	var selection aiSelection

	resp, err := r.ai.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model: r.model,
		Messages: []openaigo.ChatCompletionMessage{
			{Role: openaigo.ChatMessageRoleSystem, Content: fmt.Sprintf(mediaSelectionPrompt, r.describeCatalog())},
			{Role: openaigo.ChatMessageRoleUser, Content: narrative},
		},
	})
	if err != nil {
		aiMediaRequestsTotal.WithLabelValues("error").Inc()
		return selection, fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		aiMediaRequestsTotal.WithLabelValues("error_empty_response").Inc()
		return selection, fmt.Errorf("empty chat completion")
	}

	content := utils.ExtractJSONObject(resp.Choices[0].Message.Content)
	if content == "" {
		aiMediaRequestsTotal.WithLabelValues("error_parse").Inc()
		return selection, fmt.Errorf("no JSON object in answer %q", utils.StringShort(resp.Choices[0].Message.Content, 120))
	}
	if err := json.Unmarshal([]byte(content), &selection); err != nil {
		aiMediaRequestsTotal.WithLabelValues("error_parse").Inc()
		return selection, fmt.Errorf("failed to decode selection: %w", err)
	}
	aiMediaRequestsTotal.WithLabelValues("success").Inc()
	return selection, nil
}

func (r *CatalogMediaResolver) describeCatalog() string {
	var sb strings.Builder
	for _, asset := range r.catalog.Assets {
		fmt.Fprintf(&sb, "- %s (%s): %s\n", asset.ID, asset.Kind, strings.Join(asset.Tags, ", "))
	}
	return sb.String()
}

package services

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"strings"

	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

// Gemini provides an implementation of the LLM interface backed by Google's hosted Gemini models. Each
// call to Chat opens a fresh chat session seeded with the supplied history.
type Gemini struct {
	modelName string

	client *genai.Client
	model  *genai.GenerativeModel

	// openStream is swapped in tests to avoid reaching the remote endpoint.
	openStream func(ctx context.Context, history []*genai.Content, message string) responseIterator

	logger *slog.Logger
}

// GenerationParams holds optional sampling settings for the model. Nil fields keep the model defaults.
type GenerationParams struct {
	Temperature     *float32 `yaml:"temperature"`
	TopP            *float32 `yaml:"topP"`
	TopK            *int32   `yaml:"topK"`
	MaxOutputTokens *int32   `yaml:"maxOutputTokens"`
}

type responseIterator interface {
	Next() (*genai.GenerateContentResponse, error)
}

// NewGemini creates a Gemini client authenticated with apiKey and bound to the named model. The
// systemPrompt is sent as the model's system instruction when it is not empty.
func NewGemini(
	ctx context.Context,
	apiKey, model, systemPrompt string,
	params GenerationParams,
	logger *slog.Logger,
) (Gemini, error) {
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return Gemini{}, fmt.Errorf("failed to create gemini client: %w", err)
	}

	m := client.GenerativeModel(model)
	if params.Temperature != nil {
		m.SetTemperature(*params.Temperature)
	}
	if params.TopP != nil {
		m.SetTopP(*params.TopP)
	}
	if params.TopK != nil {
		m.SetTopK(*params.TopK)
	}
	if params.MaxOutputTokens != nil {
		m.SetMaxOutputTokens(*params.MaxOutputTokens)
	}
	if systemPrompt != "" {
		m.SystemInstruction = genai.NewUserContent(genai.Text(systemPrompt))
	}

	g := Gemini{
		modelName: model,
		client:    client,
		model:     m,
		logger:    logger.With(slog.String("module", "gemini")),
	}
	g.openStream = g.sendMessageStream
	return g, nil
}

// Close releases the underlying client connections.
func (g Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	return g.client.Close()
}

// Model returns the model identifier the client is bound to.
func (g Gemini) Model() string {
	return g.modelName
}

func (g Gemini) sendMessageStream(ctx context.Context, history []*genai.Content, message string) responseIterator {
	cs := g.model.StartChat()
	cs.History = history
	return cs.SendMessageStream(ctx, genai.Text(message))
}

// geminiHistory converts the page's history into the alternating user/model contents the chat session
// is seeded with.
func geminiHistory(history []models.Exchange) []*genai.Content {
	turns := models.HistoryTurns(history)
	contents := make([]*genai.Content, len(turns))
	for i, turn := range turns {
		contents[i] = &genai.Content{
			Role:  string(turn.Role),
			Parts: []genai.Part{genai.Text(turn.Text)},
		}
	}
	return contents
}

// responseText returns the text of the first candidate, which is the one the chat session keeps.
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			sb.WriteString(string(t))
		}
	}
	return sb.String()
}

// Chat implements the LLM interface. It opens one chat session seeded with the complete exchanges of
// history, submits message and yields each streamed text fragment as it arrives. Transport,
// authentication and quota errors are yielded as-is (wrapped) and end the sequence; a cancelled
// context ends it silently.
func (g Gemini) Chat(ctx context.Context, message string, history []models.Exchange) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		ctx, cancel := context.WithCancel(ctx)
		defer cancel()

		complete := models.CompleteExchanges(history)
		if dropped := len(history) - len(complete); dropped > 0 {
			g.logger.Warn("Dropping incomplete exchanges from history", slog.Int("dropped", dropped))
		}

		g.logger.Debug("Starting chat session",
			slog.Int("historyTurns", len(complete)*2),
			slog.Int("messageLength", len(message)))

		it := g.openStream(ctx, geminiHistory(complete), message)
		for {
			resp, err := it.Next()
			if errors.Is(err, iterator.Done) {
				return
			}
			if err != nil {
				if errors.Is(err, context.Canceled) {
					return
				}
				yield("", fmt.Errorf("error receiving response: %w", err))
				return
			}

			text := responseText(resp)
			if text == "" {
				continue
			}
			if !yield(text, nil) {
				return
			}
		}
	}
}

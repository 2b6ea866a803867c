package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"net/http"
	"strings"

	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
	"github.com/google/uuid"
	"github.com/tmaxmax/go-sse"
)

type chatRequest struct {
	Message string            `json:"message"`
	History []models.Exchange `json:"history"`
}

type streamEvent struct {
	Text string `json:"text"`
	HTML string `json:"html"`
}

type streamError struct {
	Error string `json:"error"`
}

// SSE event types sent while a reply streams.
var (
	chunkSSEType = sse.Type("chunk")
	errorSSEType = sse.Type("error")
	doneSSEType  = sse.Type("done")
)

// maxChatRequestBytes caps the message plus the whole page history.
const maxChatRequestBytes = 8 << 20

// GenerateResponse drives one streamed exchange with llm and yields the full reply text accumulated so
// far after every fragment, never the fragment alone. Each range over the returned sequence opens a
// fresh session. An error from llm is yielded unchanged and ends the sequence; nothing is retried.
func GenerateResponse(
	ctx context.Context,
	llm LLM,
	message string,
	history []models.Exchange,
) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		var sb strings.Builder
		for fragment, err := range llm.Chat(ctx, message, history) {
			if err != nil {
				yield(sb.String(), err)
				return
			}
			sb.WriteString(fragment)
			if !yield(sb.String(), nil) {
				return
			}
		}
	}
}

// HandleChat accepts a JSON body with the new message and the page's history, then streams the reply
// back as server-sent events. Every "chunk" event carries the whole reply so far, in raw and rendered
// form; a "done" event closes a successful stream and an "error" event carries a model failure.
//
// Invalid methods, malformed bodies and empty messages are rejected before the stream starts.
func (m Main) HandleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		m.logger.Error("Method not allowed", slog.String("method", r.Method))
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req chatRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxChatRequestBytes)).Decode(&req); err != nil {
		m.logger.Error("Invalid request body", slog.String(errLoggerKey, err.Error()))
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			http.Error(w, fmt.Sprintf("Conversation is too long: request exceeds %d bytes, clear the chat to continue",
				maxErr.Limit), http.StatusRequestEntityTooLarge)
			return
		}
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Message) == "" {
		m.logger.Error("Message is required")
		http.Error(w, "Message is required", http.StatusBadRequest)
		return
	}

	sess, err := sse.Upgrade(w, r)
	if err != nil {
		m.logger.Error("Failed to upgrade to event stream", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	exchangeID := uuid.New().String()
	logger := m.logger.With(slog.String("exchangeID", exchangeID))
	logger.Info("Chat exchange started",
		slog.Int("historyLength", len(req.History)),
		slog.Int("messageLength", len(req.Message)))

	var (
		text   string
		chunks int
	)
	for cumulative, err := range GenerateResponse(r.Context(), m.llm, req.Message, req.History) {
		if err != nil {
			if r.Context().Err() != nil {
				logger.Info("Client went away", slog.Int("chunks", chunks))
				return
			}
			logger.Error("Error from llm provider", slog.String(errLoggerKey, err.Error()))
			if err := m.sendError(sess, exchangeID, err); err != nil {
				logger.Error("Failed to send error event", slog.String(errLoggerKey, err.Error()))
			}
			return
		}

		text = cumulative
		chunks++
		if err := m.sendEvent(sess, chunkSSEType, exchangeID, chunks, text); err != nil {
			if r.Context().Err() != nil {
				logger.Info("Client went away", slog.Int("chunks", chunks))
				return
			}
			logger.Error("Failed to send chunk", slog.String(errLoggerKey, err.Error()))
			return
		}
	}

	// The model client ends quietly when the request context is cancelled
	if r.Context().Err() != nil {
		logger.Info("Client went away", slog.Int("chunks", chunks))
		return
	}

	if err := m.sendEvent(sess, doneSSEType, exchangeID, chunks+1, text); err != nil {
		logger.Error("Failed to send done event", slog.String(errLoggerKey, err.Error()))
		return
	}
	logger.Info("Chat exchange finished", slog.Int("chunks", chunks), slog.Int("length", len(text)))
}

func (m Main) sendEvent(sess *sse.Session, typ sse.EventType, exchangeID string, seq int, text string) error {
	html, err := models.RenderMarkdown(text)
	if err != nil {
		return err
	}
	data, err := json.Marshal(streamEvent{Text: text, HTML: html})
	if err != nil {
		return fmt.Errorf("failed to marshal stream event: %w", err)
	}

	msg := &sse.Message{
		ID:   sse.ID(fmt.Sprintf("%s-%d", exchangeID, seq)),
		Type: typ,
	}
	msg.AppendData(string(data))
	if err := sess.Send(msg); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}
	return sess.Flush()
}

func (m Main) sendError(sess *sse.Session, exchangeID string, chatErr error) error {
	data, err := json.Marshal(streamError{Error: chatErr.Error()})
	if err != nil {
		return fmt.Errorf("failed to marshal stream error: %w", err)
	}

	msg := &sse.Message{
		ID:   sse.ID(exchangeID + "-error"),
		Type: errorSSEType,
	}
	msg.AppendData(string(data))
	if err := sess.Send(msg); err != nil {
		return fmt.Errorf("failed to send event: %w", err)
	}
	return sess.Flush()
}

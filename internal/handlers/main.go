package handlers

import (
	"context"
	"html/template"
	"iter"
	"log/slog"

	geminiwebui "github.com/MegaGrindStone/gemini-web-ui"
	"github.com/MegaGrindStone/gemini-web-ui/internal/models"
)

// LLM represents a large language model that can hold a conversation. Chat opens one session seeded
// with history, submits message, and returns an iterator that yields the reply as incremental text
// fragments, or an error that ends the sequence.
type LLM interface {
	Chat(ctx context.Context, message string, history []models.Exchange) iter.Seq2[string, error]
}

// Page holds the texts shown on the chat page.
type Page struct {
	Title       string
	Description string
	Model       string
}

// Main handles the chat application's HTTP surface: it renders the chat page and streams model
// replies to the browser as server-sent events.
type Main struct {
	templates *template.Template

	llm  LLM
	page Page

	logger *slog.Logger
}

const errLoggerKey = "err"

// NewMain creates a new Main instance with the provided LLM and page texts. It parses the required
// HTML templates from the embedded filesystem.
func NewMain(llm LLM, page Page, logger *slog.Logger) (Main, error) {
	// We parse templates from three distinct directories to separate layout, pages, and partial views
	tmpl, err := template.ParseFS(
		geminiwebui.TemplateFS,
		"templates/layout/*.html",
		"templates/pages/*.html",
		"templates/partials/*.html",
	)
	if err != nil {
		return Main{}, err
	}

	return Main{
		templates: tmpl,
		llm:       llm,
		page:      page,
		logger:    logger.With(slog.String("module", "main")),
	}, nil
}

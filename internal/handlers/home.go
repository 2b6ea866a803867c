package handlers

import (
	"log/slog"
	"net/http"
)

type homePageData struct {
	Page
}

// HandleHome renders the chat page. The page starts with an empty history; the browser keeps the
// history for as long as the tab stays open.
func (m Main) HandleHome(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	data := homePageData{Page: m.page}
	if err := m.templates.ExecuteTemplate(w, "home.html", data); err != nil {
		m.logger.Error("Failed to execute home template", slog.String(errLoggerKey, err.Error()))
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

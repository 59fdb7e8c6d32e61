package firegate

import (
	"log/slog"
	"net/http"

	"github.com/firegate-io/firegate/log"
)

// Guide serves the guideline documents rendered to sanitized HTML.
// The doc query parameter picks one document; without it the first
// document is served.
func Guide(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.LoggerFromContext(ctx)
	logger.Info("guide function called")

	if r.Method != http.MethodGet {
		logger.Error("invalid method: " + r.Method)
		http.Error(w, "Method Not Implemented", http.StatusNotImplemented)
		return
	}

	guides, err := loadGuide()
	if err != nil {
		logger.Error("error while loading guide", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	name := r.URL.Query().Get("doc")
	doc, ok := guides.Document(name)
	if name == "" {
		doc, ok = guides.Documents()[0], true
	}
	if !ok {
		logger.Error("unknown guide document: " + name)
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(guides.HTML(doc)); err != nil {
		logger.Error("error while writing response", slog.String(ErrorMsgLogField, err.Error()))
	}
}

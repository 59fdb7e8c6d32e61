package firegate

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"text/template"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/firegate-io/firegate/auth"
	"github.com/firegate-io/firegate/chat"
	"github.com/firegate-io/firegate/contract"
	"github.com/firegate-io/firegate/filter"
	"github.com/firegate-io/firegate/guide"
	"github.com/firegate-io/firegate/log"
	"github.com/firegate-io/firegate/store"
)

const (
	chatIDLogField = "chatID"
	promptLogField = "prompt"

	guideDir    = "docs"
	openAIModel = "gpt-4o"
)

var (
	openaiAPIKey = os.Getenv("OPENAI_API_KEY")

	guideOnce sync.Once
	guideSet  *guide.Set
	guideErr  error
)

func loadGuide() (*guide.Set, error) {
	guideOnce.Do(func() {
		guideSet, guideErr = guide.Load(guideDir)
	})
	return guideSet, guideErr
}

// loggingRoundTripper logs the outgoing request details
type loggingRoundTripper struct {
	rt http.RoundTripper
}

func (lrt *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	logger := log.LoggerFromContext(req.Context())
	var bodyBytes []byte
	if req.Body != nil {
		bodyBytes, _ = io.ReadAll(req.Body)
	}
	// reset req.Body so it can be read downstream
	req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	logger.Info("openAI request",
		slog.String("url", req.URL.String()),
		slog.String(bodyLogField, string(bodyBytes)),
	)
	return lrt.rt.RoundTrip(req)
}

// setupStreamingFunc writes filtered chunks to the SSE stream.
func setupStreamingFunc(w io.Writer, flusher http.Flusher, sections map[string]bool) func(ctx context.Context, chunk []byte) error {
	// filters keep state across chunks for the whole response
	rf := &filter.ReferenceFilter{Sections: sections}
	ef := &filter.ExternalLinkFilter{}

	return func(ctx context.Context, chunk []byte) error {
		cleanedChunk := rf.ProcessChunk(
			ctx,
			ef.ProcessChunk(
				ctx,
				string(chunk),
			),
		)
		if cleanedChunk == "" {
			return nil
		}
		msg := contract.AssistResponse{Response: cleanedChunk}
		jsonData, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		sseData := fmt.Sprintf("data: %s\n\n", jsonData)
		if _, err := w.Write([]byte(sseData)); err != nil {
			return err
		}
		flusher.Flush()
		return nil
	}
}

// Assist answers a user question grounded in the guideline documents,
// streamed over SSE.
func Assist(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := log.LoggerFromContext(ctx)
	logger.Info("assist function called")

	if r.Method != http.MethodPost {
		logger.Error("invalid method: " + r.Method)
		http.Error(w, "Method Not Implemented", http.StatusNotImplemented)
		return
	}

	token, err := auth.Authenticate(r)
	if err != nil {
		logger.Error("error while authenticating", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	logger = logger.With(slog.String(userIDLogField, token.UID))

	var msg contract.AssistRequest
	data, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error("error while reading request body", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	logger.Info("incoming request", slog.String(bodyLogField, string(data)))

	if err := json.Unmarshal(data, &msg); err != nil {
		logger.Error("error while decoding request", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Bad Request", http.StatusBadRequest)
		return
	}
	logger = logger.With(slog.String(chatIDLogField, msg.ChatID))
	ctx = log.WithLogger(ctx, logger)

	guides, err := loadGuide()
	if err != nil {
		logger.Error("error while loading guide", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var messages []llms.MessageContent
	if msg.ChatID != "" {
		st, err := store.NewFirestore(ctx)
		if err != nil {
			logger.Error("error while connecting to firestore", slog.String(ErrorMsgLogField, err.Error()))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
		defer st.Close()

		rs, err := loadRuleset()
		if err != nil {
			logger.Error("error while loading policy", slog.String(ErrorMsgLogField, err.Error()))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}

		messages, err = chat.LoadHistory(ctx, st, rs, token.UID, msg.ChatID)
		if errors.Is(err, chat.ErrNotOwner) {
			logger.Error("chat not owned by requester", slog.String(ErrorMsgLogField, err.Error()))
			http.Error(w, "Permission Denied", http.StatusForbidden)
			return
		}
		if err != nil {
			logger.Error("error while loading chat history", slog.String(ErrorMsgLogField, err.Error()))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
			return
		}
	}

	// append user message at the end of the messages history
	messages = append(messages, llms.TextParts(llms.ChatMessageTypeHuman, msg.Message))

	openAIClient, err := openai.New(
		openai.WithModel(openAIModel),
		openai.WithToken(openaiAPIKey),
		openai.WithHTTPClient(
			&http.Client{
				Transport: &loggingRoundTripper{
					rt: http.DefaultTransport,
				},
			},
		),
	)
	if err != nil {
		logger.Error("error while creating openAI client", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	systemPrompt, err := template.New("assistant.tmpl").ParseFiles("prompts/assistant.tmpl")
	if err != nil {
		logger.Error("error while parsing systemPrompt", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	var systemPromptStr strings.Builder
	err = systemPrompt.Execute(
		&systemPromptStr,
		struct {
			Guidelines string
		}{
			Guidelines: guides.Prompt(),
		},
	)
	if err != nil {
		logger.Error("error while executing systemPrompt", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	// set SSE headers for streaming
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		logger.Error("streaming unsupported!")
		http.Error(w, "Streaming unsupported!", http.StatusInternalServerError)
		return
	}

	resp, err := openAIClient.GenerateContent(
		ctx,
		append(
			[]llms.MessageContent{
				llms.TextParts(llms.ChatMessageTypeSystem, systemPromptStr.String()),
			},
			messages...,
		),
		llms.WithStreamingFunc(setupStreamingFunc(w, flusher, guides.SectionSlugs())),
		llms.WithMaxTokens(1000),
	)

	if err != nil {
		logger.Error("ChatCompletion error", slog.String(ErrorMsgLogField, err.Error()))
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	if len(resp.Choices) > 0 {
		logger.Info("openAI response", slog.String("response", resp.Choices[0].Content))
	} else {
		logger.Error("no openAI response")
	}
}

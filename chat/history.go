// Package chat loads a user's chat history for the assistant, enforcing
// the same ownership policy the gate applies to direct document access.
package chat

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/firegate-io/firegate/log"
	"github.com/firegate-io/firegate/policy"
	"github.com/firegate-io/firegate/store"
)

const (
	chatCollection    = "chats"
	messageCollection = "messages"
	fromUser          = "User"
	fromAI            = "AI"
)

// ErrNotOwner is returned when the requester does not own the chat.
var ErrNotOwner = errors.New("chat is not owned by requester")

// LoadHistory returns the messages of one chat as model input. A chat
// that does not exist yields empty history; a chat owned by someone
// else yields ErrNotOwner.
func LoadHistory(ctx context.Context, st store.Store, rs *policy.Ruleset, uid, chatID string) ([]llms.MessageContent, error) {
	logger := log.LoggerFromContext(ctx)

	var chatHistory []llms.MessageContent

	chatDoc, err := st.Get(ctx, chatCollection, chatID)
	if errors.Is(err, store.ErrNotFound) {
		logger.Info("chat not found: " + chatID)
		return chatHistory, nil
	}
	if err != nil {
		return chatHistory, err
	}

	dec, err := rs.Evaluate(ctx, st, policy.Request{
		Auth:       &policy.Auth{UID: uid},
		Op:         policy.OpRead,
		Collection: chatCollection,
		DocID:      chatID,
		Resource:   chatDoc,
	})
	if err != nil {
		return chatHistory, err
	}
	if !dec.Allowed {
		return chatHistory, fmt.Errorf("chat %s: %w", chatID, ErrNotOwner)
	}

	docs, err := st.ListByField(ctx, messageCollection, "chatId", chatID)
	if err != nil {
		return chatHistory, err
	}
	sort.SliceStable(docs, func(i, j int) bool {
		return messageTime(docs[i]).Before(messageTime(docs[j]))
	})

	for _, d := range docs {
		from, _ := d.Data["from"].(string)
		text, _ := d.Data["message"].(string)
		switch from {
		case fromUser:
			chatHistory = append(chatHistory, llms.TextParts(llms.ChatMessageTypeHuman, text))
		case fromAI:
			chatHistory = append(chatHistory, llms.TextParts(llms.ChatMessageTypeAI, text))
		default:
			return chatHistory, fmt.Errorf("invalid message role: %s", from)
		}
	}
	return chatHistory, nil
}

func messageTime(d store.Document) time.Time {
	t, _ := d.Data["createdAt"].(time.Time)
	return t
}

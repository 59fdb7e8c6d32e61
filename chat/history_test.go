package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/firegate-io/firegate/policy"
	"github.com/firegate-io/firegate/store"
)

func seedChat(t *testing.T) *store.Memory {
	t.Helper()
	m := store.NewMemory()
	m.Seed("chats", "c1", map[string]any{"userId": "u1", "title": "groceries"})
	m.Seed("messages", "m2", map[string]any{
		"chatId": "c1", "from": "AI", "message": "anything else?",
		"createdAt": time.Date(2026, 3, 1, 10, 1, 0, 0, time.UTC),
	})
	m.Seed("messages", "m1", map[string]any{
		"chatId": "c1", "from": "User", "message": "add milk",
		"createdAt": time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
	})
	m.Seed("messages", "m9", map[string]any{
		"chatId": "c9", "from": "User", "message": "other chat",
		"createdAt": time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
	})
	return m
}

func TestLoadHistory(t *testing.T) {
	st := seedChat(t)
	history, err := LoadHistory(context.Background(), st, policy.Default(), "u1", "c1")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 2 {
		t.Fatalf("got %d messages, want 2", len(history))
	}
	if history[0].Role != llms.ChatMessageTypeHuman {
		t.Errorf("first role = %v, want human", history[0].Role)
	}
	if history[1].Role != llms.ChatMessageTypeAI {
		t.Errorf("second role = %v, want AI", history[1].Role)
	}
}

func TestLoadHistoryMissingChat(t *testing.T) {
	st := seedChat(t)
	history, err := LoadHistory(context.Background(), st, policy.Default(), "u1", "nope")
	if err != nil {
		t.Fatal(err)
	}
	if len(history) != 0 {
		t.Errorf("got %d messages for missing chat, want 0", len(history))
	}
}

func TestLoadHistoryForeignChat(t *testing.T) {
	st := seedChat(t)
	_, err := LoadHistory(context.Background(), st, policy.Default(), "u2", "c1")
	if !errors.Is(err, ErrNotOwner) {
		t.Errorf("err = %v, want ErrNotOwner", err)
	}
}

func TestLoadHistoryInvalidRole(t *testing.T) {
	st := seedChat(t)
	st.Seed("messages", "m3", map[string]any{
		"chatId": "c1", "from": "System", "message": "??",
		"createdAt": time.Date(2026, 3, 1, 10, 2, 0, 0, time.UTC),
	})
	if _, err := LoadHistory(context.Background(), st, policy.Default(), "u1", "c1"); err == nil {
		t.Error("expected error for unknown message role")
	}
}

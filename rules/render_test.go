package rules

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/firegate-io/firegate/policy"
)

// The rendered file is a deployment artifact, so the test pins it
// byte-for-byte.
func TestRenderDefaultRuleset(t *testing.T) {
	got, err := Render(policy.Default())
	if err != nil {
		t.Fatal(err)
	}

	want, err := os.ReadFile(filepath.Join("testdata", "firestore.rules"))
	if err != nil {
		t.Fatal(err)
	}

	if got != string(want) {
		t.Errorf("rendered rules differ from testdata/firestore.rules:\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestRenderIndirectCondition(t *testing.T) {
	rs, err := policy.NewRuleset(
		policy.Rule{Collection: "chats", OwnerField: "userId"},
		policy.Rule{Collection: "messages", Ref: &policy.OwnerRef{
			Field:      "chatId",
			Collection: "chats",
			OwnerField: "userId",
		}},
	)
	if err != nil {
		t.Fatal(err)
	}

	got, err := Render(rs)
	if err != nil {
		t.Fatal(err)
	}

	for _, want := range []string{
		"match /messages/{messageId} {",
		"allow create: if request.auth != null && exists(/databases/$(database)/documents/chats/$(request.resource.data.chatId))",
		"allow delete: if request.auth != null && exists(/databases/$(database)/documents/chats/$(resource.data.chatId))",
		"get(/databases/$(database)/documents/chats/$(resource.data.chatId)).data.userId == request.auth.uid",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("rendered rules missing %q:\n%s", want, got)
		}
	}
}

func TestDocVar(t *testing.T) {
	tests := map[string]string{
		"profiles": "profileId",
		"users":    "userId",
		"todos":    "todoId",
		"chats":    "chatId",
		"messages": "messageId",
	}
	for collection, want := range tests {
		if got := docVar(collection); got != want {
			t.Errorf("docVar(%q) = %q, want %q", collection, got, want)
		}
	}
}

package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseConfig(t *testing.T) {
	data := []byte(`
collections:
  - name: notes
    owner_field: userId
  - name: attachments
    owner_ref:
      field: noteId
      collection: notes
      owner_field: userId
`)
	rs, err := Parse(data)
	require.NoError(t, err)

	rules := rs.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "notes", rules[0].Collection)
	assert.Equal(t, "userId", rules[0].OwnerField)
	assert.Equal(t, "attachments", rules[1].Collection)
	require.NotNil(t, rules[1].Ref)
	assert.Equal(t, "noteId", rules[1].Ref.Field)
	assert.Equal(t, "notes", rules[1].Ref.Collection)
}

func TestParseConfigInvalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{
			name: "not yaml",
			data: "collections: [",
		},
		{
			name: "both ownership kinds",
			data: `
collections:
  - name: messages
    owner_field: userId
    owner_ref:
      field: chatId
      collection: chats
      owner_field: userId
`,
		},
		{
			name: "incomplete ref",
			data: `
collections:
  - name: messages
    owner_ref:
      field: chatId
`,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.data))
			assert.Error(t, err)
		})
	}
}

func TestDefaultRuleset(t *testing.T) {
	rs := Default()
	rules := rs.Rules()
	require.Len(t, rules, 5)

	want := map[string]string{
		"profiles": "userId",
		"users":    "uid",
		"todos":    "userId",
		"chats":    "userId",
	}
	for _, r := range rules {
		if r.Collection == "messages" {
			require.NotNil(t, r.Ref)
			assert.Equal(t, "chatId", r.Ref.Field)
			assert.Equal(t, "chats", r.Ref.Collection)
			assert.Equal(t, "userId", r.Ref.OwnerField)
			continue
		}
		assert.Equal(t, want[r.Collection], r.OwnerField, r.Collection)
	}
}

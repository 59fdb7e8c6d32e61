// Package rules renders a policy ruleset to Firestore security-rules
// text. The output is the file deployed alongside the app, so it has to
// stay byte-for-byte stable.
package rules

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/firegate-io/firegate/policy"
)

const rulesTemplate = `rules_version = '2';

service cloud.firestore {
  match /databases/{database}/documents {
{{- range .Collections}}
    match /{{.Name}}/{{.DocVar}} {
      allow read: if {{.Read}};
      allow create: if {{.Create}};
      allow update: if {{.Update}};
      allow delete: if {{.Delete}};
    }
{{- end}}
  }
}
`

type collectionBlock struct {
	Name   string
	DocVar string
	Read   string
	Create string
	Update string
	Delete string
}

var tmpl = template.Must(template.New("rules").Parse(rulesTemplate))

// Render emits the security-rules file for the given ruleset.
func Render(rs *policy.Ruleset) (string, error) {
	var blocks []collectionBlock
	for _, r := range rs.Rules() {
		blocks = append(blocks, collectionBlock{
			Name:   r.Collection,
			DocVar: "{" + docVar(r.Collection) + "}",
			Read:   condition(r, false),
			Create: condition(r, true),
			Update: condition(r, false),
			Delete: condition(r, false),
		})
	}
	var out strings.Builder
	if err := tmpl.Execute(&out, struct{ Collections []collectionBlock }{blocks}); err != nil {
		return "", fmt.Errorf("rendering rules: %w", err)
	}
	return out.String(), nil
}

// condition builds the allow expression for one operation. Create reads
// the incoming document (request.resource), the other operations the
// stored one (resource).
func condition(r policy.Rule, incoming bool) string {
	data := "resource.data"
	if incoming {
		data = "request.resource.data"
	}
	if r.Ref == nil {
		return fmt.Sprintf("request.auth != null && request.auth.uid == %s.%s", data, r.OwnerField)
	}
	refPath := fmt.Sprintf("/databases/$(database)/documents/%s/$(%s.%s)", r.Ref.Collection, data, r.Ref.Field)
	return fmt.Sprintf(
		"request.auth != null && exists(%s) && get(%s).data.%s == request.auth.uid",
		refPath, refPath, r.Ref.OwnerField,
	)
}

// docVar derives the match variable from the collection name, the way
// the rules file has always spelled it (todos -> todoId).
func docVar(collection string) string {
	return strings.TrimSuffix(collection, "s") + "Id"
}

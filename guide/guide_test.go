package guide

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const sampleDoc = `# Assistant Guidelines

Intro paragraph.

## Tone and Voice

Be direct. Avoid filler.

## Handling User Data

Never echo tokens back to the user.

<script>alert("nope")</script>
`

func writeGuideDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "assistant-guidelines.md"), []byte(sampleDoc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("ignored"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoad(t *testing.T) {
	set, err := Load(writeGuideDir(t))
	if err != nil {
		t.Fatal(err)
	}

	doc, ok := set.Document("assistant-guidelines")
	if !ok {
		t.Fatal("assistant-guidelines not loaded")
	}
	if doc.Title != "Assistant Guidelines" {
		t.Errorf("title = %q", doc.Title)
	}
	if len(doc.Sections) != 2 {
		t.Fatalf("got %d sections, want 2", len(doc.Sections))
	}
	if doc.Sections[0].Slug != "tone-and-voice" {
		t.Errorf("slug = %q, want tone-and-voice", doc.Sections[0].Slug)
	}
	if !strings.Contains(doc.Sections[1].Markdown, "Never echo tokens") {
		t.Errorf("section body lost: %q", doc.Sections[1].Markdown)
	}

	if _, ok := set.Document("notes"); ok {
		t.Error("non-markdown file loaded")
	}
}

func TestLoadEmptyDir(t *testing.T) {
	if _, err := Load(t.TempDir()); err == nil {
		t.Error("expected error for directory without documents")
	}
}

func TestHTMLSanitized(t *testing.T) {
	set, err := Load(writeGuideDir(t))
	if err != nil {
		t.Fatal(err)
	}
	doc, _ := set.Document("assistant-guidelines")
	html := string(set.HTML(doc))

	if strings.Contains(html, "<script>") {
		t.Error("script tag survived sanitization")
	}
	if !strings.Contains(html, "Tone and Voice") {
		t.Error("heading missing from rendered HTML")
	}
}

func TestSectionSlugs(t *testing.T) {
	set, err := Load(writeGuideDir(t))
	if err != nil {
		t.Fatal(err)
	}
	slugs := set.SectionSlugs()
	if !slugs["tone-and-voice"] || !slugs["handling-user-data"] {
		t.Errorf("slugs = %v", slugs)
	}
}

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Tone and Voice":        "tone-and-voice",
		"CSS & Layout":          "css-layout",
		"  Spaces  everywhere ": "spaces-everywhere",
		"Rules, v2!":            "rules-v2",
	}
	for in, want := range tests {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q) = %q, want %q", in, got, want)
		}
	}
}

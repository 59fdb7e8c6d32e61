// Package guide loads the product guideline documents and renders them
// for the Guide endpoint, the assistant prompt and the index tool.
package guide

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/russross/blackfriday/v2"
)

// Section is one ##-level section of a guideline document.
type Section struct {
	Slug     string
	Title    string
	Markdown string
}

// Document is one guideline markdown file.
type Document struct {
	Name     string // file name without extension
	Title    string // first # heading
	Sections []Section
	raw      []byte
}

// Set holds all loaded documents and the shared sanitizer.
type Set struct {
	docs      map[string]*Document
	order     []string
	sanitizer *bluemonday.Policy
}

// Load reads every .md file in dir.
func Load(dir string) (*Set, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading guide dir: %w", err)
	}
	set := &Set{
		docs:      make(map[string]*Document),
		sanitizer: bluemonday.UGCPolicy(),
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".md" {
			continue
		}
		raw, err := os.ReadFile(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		name := strings.TrimSuffix(entry.Name(), ".md")
		doc := parseDocument(name, raw)
		set.docs[name] = doc
		set.order = append(set.order, name)
	}
	sort.Strings(set.order)
	if len(set.docs) == 0 {
		return nil, fmt.Errorf("no guideline documents in %s", dir)
	}
	return set, nil
}

// Document returns one document by file name (without extension).
func (s *Set) Document(name string) (*Document, bool) {
	doc, ok := s.docs[name]
	return doc, ok
}

// Documents returns all documents in file-name order.
func (s *Set) Documents() []*Document {
	out := make([]*Document, 0, len(s.order))
	for _, name := range s.order {
		out = append(out, s.docs[name])
	}
	return out
}

// HTML renders a document to sanitized HTML.
func (s *Set) HTML(doc *Document) []byte {
	return s.sanitizer.SanitizeBytes(blackfriday.Run(doc.raw))
}

// SectionSlugs returns the slugs of every section across all documents,
// used by the streaming filter to validate guide references.
func (s *Set) SectionSlugs() map[string]bool {
	slugs := make(map[string]bool)
	for _, doc := range s.docs {
		for _, sec := range doc.Sections {
			slugs[sec.Slug] = true
		}
	}
	return slugs
}

// Prompt concatenates all documents as markdown for the assistant's
// system prompt.
func (s *Set) Prompt() string {
	var b strings.Builder
	for _, name := range s.order {
		b.Write(s.docs[name].raw)
		b.WriteString("\n")
	}
	return b.String()
}

func parseDocument(name string, raw []byte) *Document {
	doc := &Document{Name: name, raw: raw}
	var current *Section
	for _, line := range strings.Split(string(raw), "\n") {
		switch {
		case strings.HasPrefix(line, "# ") && doc.Title == "":
			doc.Title = strings.TrimSpace(strings.TrimPrefix(line, "# "))
		case strings.HasPrefix(line, "## "):
			title := strings.TrimSpace(strings.TrimPrefix(line, "## "))
			doc.Sections = append(doc.Sections, Section{Slug: Slugify(title), Title: title})
			current = &doc.Sections[len(doc.Sections)-1]
		default:
			if current != nil {
				current.Markdown += line + "\n"
			}
		}
	}
	for i := range doc.Sections {
		doc.Sections[i].Markdown = strings.TrimSpace(doc.Sections[i].Markdown)
	}
	return doc
}

// Slugify turns a section title into its anchor form.
func Slugify(title string) string {
	var b strings.Builder
	lastDash := true // suppress leading dash
	for _, r := range strings.ToLower(title) {
		switch {
		case r >= 'a' && r <= 'z' || r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.TrimSuffix(b.String(), "-")
}

// Indexes the guideline documents into Postgres for retrieval: each
// section is embedded with OpenAI and upserted into the guide_section
// table, keyed by document and section slug.
//
// OPENAI_API_KEY=... go run cmd/index/main.go -database "postgres://..."
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"cloud.google.com/go/compute/metadata"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	openai "github.com/sashabaranov/go-openai"

	"github.com/firegate-io/firegate/guide"
	"github.com/firegate-io/firegate/logger"
)

const dbDriver = "postgres"

var schema = `
CREATE EXTENSION IF NOT EXISTS vector;

CREATE TABLE IF NOT EXISTS guide_section (
	id TEXT PRIMARY KEY,
	doc TEXT NOT NULL,
	slug TEXT NOT NULL,
	title TEXT NOT NULL,
	body TEXT NOT NULL,
	vector VECTOR(1536) NOT NULL
);`

func main() {
	docsPtr := flag.String("docs", "docs", "directory with the guideline documents")
	databasePtr := flag.String("database", os.Getenv("AUDIT_DATABASE_URL"), "Postgres connection string")
	flag.Parse()

	if *databasePtr == "" {
		log.Fatal("no database: set -database or AUDIT_DATABASE_URL")
	}
	openaiAPIKey := os.Getenv("OPENAI_API_KEY")
	if openaiAPIKey == "" {
		log.Fatal("OPENAI_API_KEY is not set")
	}

	ctx := context.Background()

	// as a Cloud Run job the output goes to Cloud Logging, locally to stderr
	infoLog := log.Default()
	if metadata.OnGCE() {
		infoLog = logger.FromContext(ctx)
	}

	set, err := guide.Load(*docsPtr)
	if err != nil {
		log.Fatalf("failed to load guide: %v", err)
	}

	db, err := sqlx.Connect(dbDriver, *databasePtr)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	db.MustExec(schema)

	openaiClient := openai.NewClient(openaiAPIKey)

	indexed := 0
	for _, doc := range set.Documents() {
		for _, section := range doc.Sections {
			res, err := openaiClient.CreateEmbeddings(ctx, openai.EmbeddingRequest{
				Input: section.Title + "\n\n" + section.Markdown,
				Model: openai.AdaEmbeddingV2,
			})
			if err != nil {
				log.Fatalf("failed to embed %s/%s: %v", doc.Name, section.Slug, err)
			}
			if len(res.Data) == 0 {
				log.Fatalf("no embedding returned for %s/%s", doc.Name, section.Slug)
			}

			_, err = db.ExecContext(ctx, `
				INSERT INTO guide_section (id, doc, slug, title, body, vector)
				VALUES ($1, $2, $3, $4, $5, $6::vector)
				ON CONFLICT (id) DO UPDATE SET
					title = EXCLUDED.title,
					body = EXCLUDED.body,
					vector = EXCLUDED.vector`,
				doc.Name+"/"+section.Slug,
				doc.Name,
				section.Slug,
				section.Title,
				section.Markdown,
				vectorLiteral(res.Data[0].Embedding),
			)
			if err != nil {
				log.Fatalf("failed to upsert %s/%s: %v", doc.Name, section.Slug, err)
			}
			infoLog.Printf("indexed %s/%s", doc.Name, section.Slug)
			indexed++
		}
	}
	infoLog.Printf("indexed %d sections", indexed)
}

// vectorLiteral formats an embedding in pgvector's input syntax.
func vectorLiteral(embedding []float32) string {
	parts := make([]string, len(embedding))
	for i, v := range embedding {
		parts[i] = fmt.Sprintf("%g", v)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

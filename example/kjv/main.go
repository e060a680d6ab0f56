// KJV example: ingests a whole public domain book (Genesis, King James
// Version) and runs retrieval queries against it. Demonstrates that large
// documents are chunked, embedded and searched entirely locally.
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"

	"github.com/mbertholdt/docrag"
	"github.com/mbertholdt/docrag/core/pipeline"
	"github.com/mbertholdt/docrag/helper"
	"github.com/mbertholdt/docrag/model"
)

const kjvRepoURL = "https://raw.githubusercontent.com/arleym/kjv-markdown/master"

// One book keeps the example fast; add more filenames from the repository to
// grow the corpus.
var kjvBooks = []string{
	"01 - Genesis - KJV.md",
}

var queries = []string{
	"Who built the ark?",
	"What happened in the garden of Eden?",
	"How was the world created?",
}

func main() {
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	dbConfig := &helper.DatabaseConfiguration{
		Host:     "localhost",
		Port:     dbPort,
		Database: "database",
		Username: "user",
		Password: "password",
		Schema:   "public",
		SSLMode:  "disable",
	}

	rag, err := docrag.NewDocRag(dbConfig, pipeline.LocalEmbedderDimension)
	if err != nil {
		log.Fatalf("Failed to create docrag: %v", err)
	}
	defer rag.Close()

	if err := rag.UseLocalPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	ctx := context.Background()

	for _, book := range kjvBooks {
		content, err := downloadBook(book)
		if err != nil {
			log.Fatalf("Failed to download %q: %v", book, err)
		}

		fmt.Printf("Ingesting %q (%d bytes)...\n", book, len(content))
		numChunks, err := rag.IngestDocument(ctx, content, book, model.Metadata{
			"source": "kjv-markdown",
		})
		if err != nil {
			log.Fatalf("Failed to ingest %q: %v", book, err)
		}
		fmt.Printf("Ingested %d chunks\n", numChunks)
	}

	total, err := rag.CountChunks(ctx)
	if err != nil {
		log.Fatalf("Failed to count chunks: %v", err)
	}
	fmt.Printf("\nStore now holds %d chunks\n", total)

	config := model.DefaultQueryConfig()
	config.SimilarityThreshold = 0.3
	for _, query := range queries {
		fmt.Printf("\nQuery: %s\n", query)

		results, err := rag.Retrieve(ctx, query, &config)
		if err != nil {
			log.Fatalf("Failed to retrieve: %v", err)
		}
		if len(results) == 0 {
			fmt.Println("  no chunks above threshold")
			continue
		}
		for i, result := range results {
			excerpt := result.Chunk.Content
			if len(excerpt) > 120 {
				excerpt = excerpt[:120] + "..."
			}
			fmt.Printf("  %d. (%.3f) %s\n", i+1, result.Similarity, excerpt)
		}
	}
}

func downloadBook(filename string) (string, error) {
	bookURL := fmt.Sprintf("%s/%s", kjvRepoURL, url.PathEscape(filename))

	resp, err := http.Get(bookURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download failed: %s", resp.Status)
	}

	content, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	return string(content), nil
}

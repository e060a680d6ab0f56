package main

import (
	"context"
	"fmt"
	"log"

	"github.com/mbertholdt/docrag"
	"github.com/mbertholdt/docrag/core/pipeline"
	"github.com/mbertholdt/docrag/helper"
	"github.com/mbertholdt/docrag/model"
)

const sampleContent = `This is a sample document about retrieval augmented generation.

Retrieval augmented generation grounds a language model in your own documents.
Documents are split into chunks, each chunk is embedded into a vector, and the
vectors are stored in PostgreSQL with the pgvector extension.

At question time the question is embedded the same way and the store returns
the chunks closest in cosine similarity. Those chunks become the context the
model answers from, which keeps answers tied to the source material.

Because every answer carries its sources and a confidence score, a reader can
always check where a statement came from.`

func main() {
	// Start a test PostgreSQL container
	teardown, dbPort, err := helper.MustStartPostgresContainer()
	if err != nil {
		log.Fatalf("Failed to start PostgreSQL container: %v", err)
	}
	defer teardown(context.Background())

	// Create database configuration using the container port
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

	// Fully local pipeline: recursive chunking + in-process embeddings
	if err := rag.UseLocalPipeline(); err != nil {
		log.Fatalf("Failed to set up pipeline: %v", err)
	}

	ctx := context.Background()

	fmt.Println("Ingesting document...")
	numChunks, err := rag.IngestDocument(ctx, sampleContent, "rag_intro.txt", model.Metadata{
		"author": "Example Author",
		"topic":  "retrieval augmented generation",
	})
	if err != nil {
		log.Fatalf("Failed to ingest document: %v", err)
	}
	fmt.Printf("Ingested %d chunks\n", numChunks)

	// List what the store now holds
	documents, err := rag.ListDocuments(ctx)
	if err != nil {
		log.Fatalf("Failed to list documents: %v", err)
	}
	for _, doc := range documents {
		fmt.Printf("Document %q: %d chunks, topic=%v\n", doc.Filename, doc.ChunkCount, doc.Metadata["topic"])
	}

	// Retrieve the chunks most relevant to a question
	question := "How does retrieval augmented generation work?"
	fmt.Printf("\nRetrieving for: %s\n", question)

	config := model.DefaultQueryConfig()
	config.SimilarityThreshold = 0.3
	results, err := rag.Retrieve(ctx, question, &config)
	if err != nil {
		log.Fatalf("Failed to retrieve: %v", err)
	}

	if len(results) == 0 {
		fmt.Println("No chunks cleared the similarity threshold.")
	}
	for i, result := range results {
		fmt.Printf("%d. similarity=%.3f %q\n", i+1, result.Similarity, result.Chunk.Content)
	}

	// Clean up
	deleted, err := rag.DeleteDocument(ctx, "rag_intro.txt")
	if err != nil {
		log.Fatalf("Failed to delete document: %v", err)
	}
	fmt.Printf("\nDeleted document: %v\n", deleted)
}

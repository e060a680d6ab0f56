// Advanced example: OpenAI backed pipeline with answer synthesis and chat
// sessions. Requires OPENAI_API_KEY in the environment (or a .env file).
package main

import (
	"context"
	"fmt"
	"log"

	"github.com/mbertholdt/docrag"
	"github.com/mbertholdt/docrag/helper"
	"github.com/mbertholdt/docrag/model"
)

const openAIEmbeddingDim = 1536

const handbookContent = `Employee Handbook

Vacation policy: every employee receives 30 days of paid vacation per year.
Unused days expire at the end of March of the following year. Vacation
requests need manager approval at least two weeks in advance.

Remote work: employees may work remotely up to three days per week. Fully
remote arrangements require approval by the department head.

Equipment: the company provides a laptop and one external monitor. Additional
equipment can be requested through the internal shop.`

const onboardingContent = `Onboarding Guide

Every new employee is assigned a buddy for the first three months. The buddy
answers day to day questions and introduces the team.

Accounts for email, chat and the internal wiki are created before the first
day. The IT department hands over the laptop in the first week.`

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

	rag, err := docrag.NewDocRag(dbConfig, openAIEmbeddingDim)
	if err != nil {
		log.Fatalf("Failed to create docrag: %v", err)
	}
	defer rag.Close()

	// OpenAI embeddings and gpt-3.5-turbo answer generation
	if err := rag.UseOpenAIPipeline(); err != nil {
		log.Fatalf("Failed to set up OpenAI pipeline: %v", err)
	}

	ctx := context.Background()

	// Ingest two documents
	for filename, content := range map[string]string{
		"handbook.txt":   handbookContent,
		"onboarding.txt": onboardingContent,
	} {
		numChunks, err := rag.IngestDocument(ctx, content, filename, nil)
		if err != nil {
			log.Fatalf("Failed to ingest %s: %v", filename, err)
		}
		fmt.Printf("Ingested %s (%d chunks)\n", filename, numChunks)
	}

	// Ask questions inside a chat session so the conversation is persisted
	session, err := rag.CreateSession(ctx, "HR questions")
	if err != nil {
		log.Fatalf("Failed to create session: %v", err)
	}
	fmt.Printf("\nSession %q (%s)\n", session.Name, session.RID)

	questions := []string{
		"How many vacation days do I get?",
		"Can I work fully remote?",
		"Who helps me during onboarding?",
	}
	for _, question := range questions {
		answer, err := rag.AskInSession(ctx, session.ID, question, nil)
		if err != nil {
			log.Fatalf("Failed to answer %q: %v", question, err)
		}

		fmt.Printf("\nQ: %s\n", question)
		fmt.Printf("A: %s\n", answer.Answer)
		fmt.Printf("   confidence=%.2f sources=%d\n", answer.Confidence, len(answer.Sources))
		for _, source := range answer.Sources {
			fmt.Printf("   - %s (%.2f)\n", source.Filename, source.Similarity)
		}
	}

	// The session now holds the full conversation
	messages, err := rag.GetMessages(ctx, session.ID)
	if err != nil {
		log.Fatalf("Failed to load messages: %v", err)
	}
	fmt.Printf("\nSession transcript (%d messages):\n", len(messages))
	for _, message := range messages {
		fmt.Printf("[%s] %s\n", message.Role, message.Content)
	}
}

package main

import (
	"context"
	"encoding/json"
	"fmt"

	"google.golang.org/genai"
)

const scanPrompt = `This photo shows a word search puzzle.

Extract it as JSON in exactly this shape:
{
  "rows": <number of grid rows>,
  "cols": <number of grid columns>,
  "cells": [["H", "A", ...], ...],
  "words": ["HELLO", ...]
}

Rules:
- "cells" holds one string per grid cell, row by row from the top, each a single letter exactly as printed.
- Every row must contain exactly "cols" letters.
- "words" is the list of words to find, usually printed beside or below the grid, spelled exactly as printed.
- Do not solve the puzzle and do not add words that are not printed.
- Reply with the JSON only, no commentary and no markdown.`

// GeminiClient wraps the Google GenAI client for VertexAI.
type GeminiClient struct {
	client    *genai.Client
	modelName string
}

// NewGeminiClient creates a client using Application Default Credentials.
// Set GOOGLE_APPLICATION_CREDENTIALS to the service account key file path.
func NewGeminiClient(ctx context.Context, cfg *GeminiConfig) (*GeminiClient, error) {
	region, model := cfg.Region, cfg.Model
	if region == "" {
		region = defaultRegion
	}
	if model == "" {
		model = defaultModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  cfg.ProjectID,
		Location: region,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiClient{client: client, modelName: model}, nil
}

// Close releases resources held by the client.
func (g *GeminiClient) Close() error {
	return nil
}

// ScanImage sends a puzzle photo to Gemini and returns the extracted
// grid and word list, normalised and validated.
func (g *GeminiClient) ScanImage(ctx context.Context, imageData []byte, mimeType string) (*Puzzle, error) {
	resp, err := g.client.Models.GenerateContent(ctx, g.modelName,
		[]*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{Text: scanPrompt},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageData}},
			},
		}},
		&genai.GenerateContentConfig{
			Temperature:      genai.Ptr(float32(0.1)),
			TopP:             genai.Ptr(float32(1)),
			ResponseMIMEType: "application/json",
		},
	)
	if err != nil {
		return nil, fmt.Errorf("gemini generate: %w", err)
	}

	text := resp.Text()
	if text == "" {
		return nil, fmt.Errorf("empty gemini response")
	}
	return decodeScan(text)
}

// decodeScan turns the model's JSON reply into a validated puzzle.
func decodeScan(text string) (*Puzzle, error) {
	var p Puzzle
	if err := json.Unmarshal([]byte(text), &p); err != nil {
		return nil, fmt.Errorf("parse puzzle JSON: %w\nraw response: %s", err, text)
	}
	p.Normalize()
	p.Source = "scan"
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("scanned puzzle: %w", err)
	}
	return &p, nil
}

/*
 * This file is part of Paperwork Hub (https://github.com/clerkwell/paperwork-hub).
 * Copyright (C) 2025 Clerkwell Health
 *
 * This program is free software: you can redistribute it and/or modify
 * it under the terms of the GNU Affero General Public License as published by
 * the Free Software Foundation, either version 3 of the License, or
 * (at your option) any later version.
 *
 * This program is distributed in the hope that it will be useful,
 * but WITHOUT ANY WARRANTY; without even the implied warranty of
 * MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
 * GNU Affero General Public License for more details.
 *
 * You should have received a copy of the GNU Affero General Public License
 * along with this program. If not, see <https://www.gnu.org/licenses/>.
 */

// Package extraction turns free-text clinical notes into structured field
// candidates by calling the OpenAI Responses API with a strict JSON schema.
package extraction

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/invopop/jsonschema"
	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/responses"
	"github.com/openai/openai-go/v3/shared"
	"go.uber.org/zap"

	"github.com/clerkwell/paperwork-hub/internal/forms"
	"github.com/clerkwell/paperwork-hub/internal/logging"
)

const (
	// DefaultModel is the extraction model used when none is configured.
	DefaultModel = "gpt-4.1-mini"

	// defaultTemperature keeps extraction output consistent across runs.
	defaultTemperature = 0.1

	// defaultMaxOutputTokens bounds the structured response size.
	defaultMaxOutputTokens = 2000
)

// wireCandidate is the shape each extracted field takes on the wire.
type wireCandidate struct {
	Key        string  `json:"key" jsonschema_description:"Field label exactly as it appears in the note or the closest target label"`
	Value      string  `json:"value" jsonschema_description:"Extracted value, verbatim where possible"`
	Confidence float64 `json:"confidence" jsonschema_description:"How certain the extraction is, 0.0 to 1.0"`
}

// wireResult is the strict structured output the model must produce.
type wireResult struct {
	Candidates []wireCandidate `json:"candidates"`
}

// Result carries the extraction candidates plus request metadata.
type Result struct {
	Candidates []forms.Candidate `json:"candidates"`
	Model      string            `json:"model"`
	NoteChars  int               `json:"note_chars"`
}

// Config holds extraction client settings.
type Config struct {
	APIKey          string
	BaseURL         string
	Model           string
	Temperature     float64
	MaxOutputTokens int64
	Timeout         time.Duration
}

// Client extracts structured candidates from clinical notes.
type Client struct {
	client      openai.Client
	model       string
	temperature float64
	maxTokens   int64
	timeout     time.Duration
	schema      map[string]any
}

// NewClient builds an extraction client. The API key is required.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("extraction: API key is required")
	}

	requestOpts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(cfg.BaseURL))
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}
	temperature := cfg.Temperature
	if temperature <= 0 {
		temperature = defaultTemperature
	}
	maxTokens := cfg.MaxOutputTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxOutputTokens
	}

	schema, err := candidateSchema()
	if err != nil {
		return nil, fmt.Errorf("extraction: building output schema: %w", err)
	}

	return &Client{
		client:      openai.NewClient(requestOpts...),
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     cfg.Timeout,
		schema:      schema,
	}, nil
}

// Extract asks the model for field candidates found in noteText. The
// fieldLabels steer the model toward the labels the mapper knows how to
// place; extra keys beyond the list are still returned.
func (c *Client) Extract(ctx context.Context, noteText string, fieldLabels []string) (*Result, error) {
	noteText = strings.TrimSpace(noteText)
	if noteText == "" {
		return nil, errors.New("extraction: note text is empty")
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()

	items := responses.ResponseInputParam{
		responses.ResponseInputItemParamOfMessage(systemPrompt, responses.EasyInputMessageRoleSystem),
		responses.ResponseInputItemParamOfMessage(buildUserPrompt(noteText, fieldLabels), responses.EasyInputMessageRoleUser),
	}

	params := responses.ResponseNewParams{
		Input:           responses.ResponseNewParamsInputUnion{OfInputItemList: items},
		Model:           shared.ResponsesModel(c.model),
		Temperature:     openai.Float(c.temperature),
		MaxOutputTokens: openai.Int(c.maxTokens),
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigUnionParam{
				OfJSONSchema: &responses.ResponseFormatTextJSONSchemaConfigParam{
					Name:   "extraction_candidates",
					Schema: c.schema,
					Strict: openai.Bool(true),
				},
			},
		},
	}

	response, err := c.client.Responses.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("extraction: responses API call failed: %w", err)
	}
	if response == nil {
		return nil, errors.New("extraction: responses API returned nil response")
	}

	output := strings.TrimSpace(response.OutputText())
	if output == "" {
		return nil, errors.New("extraction: response output is empty")
	}

	candidates, err := decodeCandidates(output)
	if err != nil {
		return nil, err
	}

	logging.LogExtraction(c.model, "extract_complete",
		zap.Duration("elapsed", time.Since(start)),
		zap.Int("note_chars", len(noteText)),
		zap.Int("candidates", len(candidates)),
	)

	return &Result{
		Candidates: candidates,
		Model:      c.model,
		NoteChars:  len(noteText),
	}, nil
}

// decodeCandidates parses the structured output and normalizes it. Blank
// keys are dropped and confidence values are clamped into [0,1].
func decodeCandidates(output string) ([]forms.Candidate, error) {
	// Strict structured output should be pure JSON, but trim to the outer
	// object in case the model wraps it anyway.
	start := strings.Index(output, "{")
	end := strings.LastIndex(output, "}")
	if start == -1 || end == -1 || start >= end {
		return nil, errors.New("extraction: no JSON object in response output")
	}

	var wire wireResult
	if err := json.Unmarshal([]byte(output[start:end+1]), &wire); err != nil {
		return nil, fmt.Errorf("extraction: decoding response output: %w", err)
	}

	candidates := make([]forms.Candidate, 0, len(wire.Candidates))
	for _, wc := range wire.Candidates {
		key := strings.TrimSpace(wc.Key)
		if key == "" {
			continue
		}

		confidence := wc.Confidence
		if confidence < 0 {
			confidence = 0
		}
		if confidence > 1 {
			confidence = 1
		}

		candidates = append(candidates, forms.Candidate{
			Key:        key,
			Value:      strings.TrimSpace(wc.Value),
			Confidence: confidence,
		})
	}

	return candidates, nil
}

// candidateSchema reflects the wire struct into a JSON schema map for the
// strict structured-output format.
func candidateSchema() (map[string]any, error) {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}

	schema := reflector.Reflect(wireResult{})
	schemaJSON, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}

	var schemaMap map[string]any
	if err := json.Unmarshal(schemaJSON, &schemaMap); err != nil {
		return nil, err
	}
	return schemaMap, nil
}

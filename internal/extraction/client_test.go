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

package extraction

import (
	"strings"
	"testing"
)

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{})
	if err == nil {
		t.Fatal("NewClient() with no API key should fail")
	}
}

func TestNewClientDefaults(t *testing.T) {
	client, err := NewClient(Config{APIKey: "sk-test"})
	if err != nil {
		t.Fatalf("NewClient() error: %v", err)
	}

	if client.model != DefaultModel {
		t.Errorf("model = %q, want %q", client.model, DefaultModel)
	}
	if client.temperature != defaultTemperature {
		t.Errorf("temperature = %v, want %v", client.temperature, defaultTemperature)
	}
	if client.maxTokens != defaultMaxOutputTokens {
		t.Errorf("maxTokens = %d, want %d", client.maxTokens, defaultMaxOutputTokens)
	}
	if client.schema == nil {
		t.Error("schema not built")
	}
}

func TestDecodeCandidates(t *testing.T) {
	tests := []struct {
		name    string
		output  string
		want    int
		wantErr bool
	}{
		{
			name:   "well formed",
			output: `{"candidates":[{"key":"nhs_number","value":"943 476 5919","confidence":0.95},{"key":"first_name","value":"John","confidence":0.9}]}`,
			want:   2,
		},
		{
			name:   "clamps confidence above one",
			output: `{"candidates":[{"key":"dob","value":"1962-03-14","confidence":1.7}]}`,
			want:   1,
		},
		{
			name:   "clamps negative confidence",
			output: `{"candidates":[{"key":"dob","value":"1962-03-14","confidence":-0.3}]}`,
			want:   1,
		},
		{
			name:   "drops blank keys",
			output: `{"candidates":[{"key":"  ","value":"orphan","confidence":0.8},{"key":"allergies","value":"penicillin","confidence":0.8}]}`,
			want:   1,
		},
		{
			name:   "tolerates prose around the object",
			output: "Here you go:\n" + `{"candidates":[{"key":"gp_name","value":"Dr Adeyemi","confidence":0.7}]}` + "\nDone.",
			want:   1,
		},
		{
			name:   "empty candidate list",
			output: `{"candidates":[]}`,
			want:   0,
		},
		{
			name:    "not JSON",
			output:  "I could not process that note.",
			wantErr: true,
		},
		{
			name:    "malformed JSON",
			output:  `{"candidates":[{"key":`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := decodeCandidates(tt.output)
			if tt.wantErr {
				if err == nil {
					t.Fatal("decodeCandidates() should fail")
				}
				return
			}
			if err != nil {
				t.Fatalf("decodeCandidates() error: %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("got %d candidates, want %d", len(got), tt.want)
			}
			for _, c := range got {
				if c.Confidence < 0 || c.Confidence > 1 {
					t.Errorf("confidence %v outside [0,1]", c.Confidence)
				}
				if strings.TrimSpace(c.Key) == "" {
					t.Errorf("blank key survived decoding")
				}
			}
		})
	}
}

func TestDecodeCandidatesTrimsValues(t *testing.T) {
	got, err := decodeCandidates(`{"candidates":[{"key":"first_name","value":"  Amira  ","confidence":0.9}]}`)
	if err != nil {
		t.Fatalf("decodeCandidates() error: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("got %d candidates, want 1", len(got))
	}
	if got[0].Value != "Amira" {
		t.Errorf("Value = %q, want %q", got[0].Value, "Amira")
	}
}

func TestBuildUserPrompt(t *testing.T) {
	prompt := buildUserPrompt("Patient reports chest pain.", []string{"first_name", "presenting_complaint"})

	if !strings.Contains(prompt, "--- CLINICAL NOTE ---") {
		t.Error("prompt missing note start marker")
	}
	if !strings.Contains(prompt, "--- END CLINICAL NOTE ---") {
		t.Error("prompt missing note end marker")
	}
	if !strings.Contains(prompt, "Patient reports chest pain.") {
		t.Error("prompt missing note text")
	}
	if !strings.Contains(prompt, "- first_name") || !strings.Contains(prompt, "- presenting_complaint") {
		t.Error("prompt missing target field labels")
	}
}

func TestBuildUserPromptNoLabels(t *testing.T) {
	prompt := buildUserPrompt("note", nil)
	if strings.Contains(prompt, "Target field labels") {
		t.Error("label section should be omitted when no labels are given")
	}
}

func TestCandidateSchema(t *testing.T) {
	schema, err := candidateSchema()
	if err != nil {
		t.Fatalf("candidateSchema() error: %v", err)
	}
	if schema["type"] != "object" {
		t.Errorf("schema type = %v, want object", schema["type"])
	}
	props, ok := schema["properties"].(map[string]any)
	if !ok {
		t.Fatal("schema has no properties map")
	}
	if _, ok := props["candidates"]; !ok {
		t.Error("schema missing candidates property")
	}
}

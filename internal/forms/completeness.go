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

package forms

import (
	"fmt"
	"strings"
)

const (
	// DefaultAcceptanceConfidence is the minimum confidence for a mapped
	// value to count as present in the completeness score
	DefaultAcceptanceConfidence = 0.5

	// DefaultMaxFollowUps caps the follow-up prompts returned per form
	DefaultMaxFollowUps = 5
)

// Report is the completeness result for one mapped form: the fraction of
// fields filled with acceptable confidence and the required fields still
// outstanding, in schema order. A structural measure, not a clinical one.
type Report struct {
	Score           float64  `json:"score"`
	MissingRequired []string `json:"missing_required"`
}

// Evaluator scores mapped fields against their schema
type Evaluator struct {
	acceptance float64
}

// NewEvaluator creates an evaluator with the given acceptance threshold.
// Values outside (0,1] fall back to DefaultAcceptanceConfidence.
func NewEvaluator(acceptanceThreshold float64) *Evaluator {
	if acceptanceThreshold <= 0 || acceptanceThreshold > 1 {
		acceptanceThreshold = DefaultAcceptanceConfidence
	}
	return &Evaluator{acceptance: acceptanceThreshold}
}

// Evaluate computes the completeness report for mapped fields. A field
// counts toward the score when it holds a value with confidence at or above
// the acceptance threshold; required fields below that line are listed as
// missing. Evaluating a built instance's own fields reproduces its stored
// report.
func (e *Evaluator) Evaluate(mapped []MappedField, schema *FormSchema) Report {
	byID := make(map[string]MappedField, len(mapped))
	for _, field := range mapped {
		if _, exists := byID[field.FieldID]; !exists {
			byID[field.FieldID] = field
		}
	}

	accepted := 0
	missing := make([]string, 0)
	for _, def := range schema.Fields {
		field, ok := byID[def.ID]
		if ok && field.HasValue() && field.Confidence >= e.acceptance {
			accepted++
		} else if def.Required {
			missing = append(missing, def.ID)
		}
	}

	score := 0.0
	if len(schema.Fields) > 0 {
		score = float64(accepted) / float64(len(schema.Fields))
	}

	return Report{Score: score, MissingRequired: missing}
}

// followUpPrompts holds clinician-facing questions for well-known fields
var followUpPrompts = map[string]string{
	"patient_name":             "Please confirm the patient's full name",
	"nhs_number":               "Please provide the patient's NHS number",
	"date_of_birth":            "Please provide the patient's date of birth",
	"admission_date":           "Please provide the date of admission",
	"discharge_date":           "Please provide the date of discharge",
	"consultant":               "Please confirm the responsible consultant",
	"presenting_complaint":     "Please provide the main presenting complaint",
	"primary_diagnosis":        "Please clarify the primary diagnosis",
	"clinical_summary":         "Please provide a brief clinical summary",
	"medications_on_admission": "Please list medications on admission with doses",
	"discharge_medications":    "Please list discharge medications with doses",
	"current_medications":      "Please list current medications with doses",
	"allergies":                "Please confirm any known allergies",
	"follow_up_instructions":   "Please specify follow-up care requirements",
	"referring_clinician":      "Please confirm the referring clinician",
	"referral_to":              "Please specify where the referral is directed",
	"referral_urgency":         "Please confirm the urgency of the referral",
	"referral_reason":          "Please state the reason for referral",
	"clinical_history":         "Please summarise the relevant clinical history",
	"assessment_date":          "Please provide the assessment date",
	"assessor_name":            "Please confirm the assessor's name",
	"risk_mitigation_plan":     "Please describe the risk mitigation plan",
	"review_date":              "Please set the next review date",
}

// FollowUps builds human-readable prompts for missing required fields, in
// the order given, capped at max (DefaultMaxFollowUps when max is not
// positive). Unknown fields fall back to a generic prompt built from the
// field label.
func (e *Evaluator) FollowUps(schema *FormSchema, missingRequired []string, max int) []string {
	if max <= 0 {
		max = DefaultMaxFollowUps
	}

	prompts := make([]string, 0, len(missingRequired))
	for _, id := range missingRequired {
		if len(prompts) >= max {
			break
		}

		if prompt, ok := followUpPrompts[id]; ok {
			prompts = append(prompts, prompt)
			continue
		}

		label := strings.ReplaceAll(id, "_", " ")
		if def, ok := schema.Field(id); ok {
			label = strings.ToLower(def.Label)
		}
		prompts = append(prompts, fmt.Sprintf("Please provide the %s", label))
	}

	return prompts
}

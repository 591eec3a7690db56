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

// DefaultFuzzyMatchThreshold is the minimum similarity for a non-exact key
// match. The default favors precision over recall: clinical mis-mapping is
// costlier than a missed field.
const DefaultFuzzyMatchThreshold = 0.8

// Mapper assigns extraction candidates to schema fields. It is stateless
// apart from its tuning and safe for concurrent use.
type Mapper struct {
	fuzzyThreshold float64
}

// NewMapper creates a mapper with the given similarity threshold. Values
// outside (0,1] fall back to DefaultFuzzyMatchThreshold.
func NewMapper(fuzzyThreshold float64) *Mapper {
	if fuzzyThreshold <= 0 || fuzzyThreshold > 1 {
		fuzzyThreshold = DefaultFuzzyMatchThreshold
	}
	return &Mapper{fuzzyThreshold: fuzzyThreshold}
}

// lookupEntry pairs a normalized label or synonym with its field, kept in
// declaration order so fuzzy scans are deterministic
type lookupEntry struct {
	name    string
	fieldID string
}

// Map assigns candidates to schema fields and returns exactly one
// MappedField per FieldDefinition, in schema order.
//
// Matching is exact on normalized keys first, then fuzzy against every
// label and synonym. When several candidates resolve to the same field the
// highest confidence wins; ties keep the first-seen candidate. The winning
// value is coerced to the declared type; a coercion or validation failure
// leaves the field unset with confidence 0 and the reason recorded, never
// an error. Candidates are not mutated.
func (m *Mapper) Map(candidates []Candidate, schema *FormSchema) []MappedField {
	exact, entries := buildLookup(schema)

	// Pick a winning candidate per field
	winners := make(map[string]int, len(schema.Fields))
	for i, candidate := range candidates {
		fieldID, ok := m.resolve(candidate.Key, exact, entries)
		if !ok {
			continue
		}
		current, claimed := winners[fieldID]
		if !claimed || candidate.Confidence > candidates[current].Confidence {
			winners[fieldID] = i
		}
	}

	mapped := make([]MappedField, 0, len(schema.Fields))
	for i := range schema.Fields {
		field := &schema.Fields[i]

		idx, ok := winners[field.ID]
		if !ok {
			mapped = append(mapped, MappedField{FieldID: field.ID})
			continue
		}

		candidate := candidates[idx]
		value, err := coerceValue(candidate.Value, field)
		if err != nil {
			mapped = append(mapped, MappedField{
				FieldID:   field.ID,
				SourceKey: candidate.Key,
				Rejection: err.Error(),
			})
			continue
		}

		mapped = append(mapped, MappedField{
			FieldID:    field.ID,
			Value:      value,
			Confidence: clampConfidence(candidate.Confidence),
			SourceKey:  candidate.Key,
		})
	}

	return mapped
}

// buildLookup indexes every normalized label and synonym. Labels are
// registered before any synonym so an exact label match can never be
// shadowed by another field's synonym; within a pass the earlier field
// keeps a contested name.
func buildLookup(schema *FormSchema) (map[string]string, []lookupEntry) {
	exact := make(map[string]string, len(schema.Fields)*2)
	entries := make([]lookupEntry, 0, len(schema.Fields)*2)

	claim := func(name, fieldID string) {
		normalized := NormalizeLabel(name)
		if normalized == "" {
			return
		}
		if _, taken := exact[normalized]; taken {
			return
		}
		exact[normalized] = fieldID
		entries = append(entries, lookupEntry{name: normalized, fieldID: fieldID})
	}

	for _, field := range schema.Fields {
		claim(field.Label, field.ID)
	}
	for _, field := range schema.Fields {
		for _, synonym := range field.Synonyms {
			claim(synonym, field.ID)
		}
	}

	return exact, entries
}

// resolve matches one candidate key to a field id
func (m *Mapper) resolve(key string, exact map[string]string, entries []lookupEntry) (string, bool) {
	normalized := NormalizeLabel(key)
	if normalized == "" {
		return "", false
	}

	if fieldID, ok := exact[normalized]; ok {
		return fieldID, true
	}

	bestScore := 0.0
	bestField := ""
	for _, entry := range entries {
		if score := Similarity(normalized, entry.name); score > bestScore {
			bestScore = score
			bestField = entry.fieldID
		}
	}

	if bestField == "" || bestScore < m.fuzzyThreshold {
		return "", false
	}
	return bestField, true
}

func clampConfidence(c float64) float64 {
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

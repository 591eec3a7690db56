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
	"fmt"
	"strings"
)

// systemPrompt instructs the model as an NHS clinical data extraction
// specialist. The rules keep output grounded in the note text.
const systemPrompt = `You are a clinical data extraction specialist for the NHS. Your task is to extract structured information from clinical notes as a list of field candidates.

IMPORTANT RULES:
1. Only extract information that is explicitly mentioned in the text
2. Do not infer or guess information that isn't clearly stated
3. Use proper medical terminology when available
4. Format dates as YYYY-MM-DD
5. Be precise with medication details (name, dose, frequency)
6. Maintain patient confidentiality - only extract necessary clinical information

For each piece of information found, emit one candidate with:
- key: the field label, preferring the target labels you are given
- value: the extracted value; join multiple items for one field with "; "
- confidence: 0.0-1.0 reflecting how clearly the note states it

Emit nothing for fields the note does not mention.`

// buildUserPrompt embeds the note between markers and lists the labels the
// downstream mapper can place.
func buildUserPrompt(noteText string, fieldLabels []string) string {
	var b strings.Builder
	b.WriteString("Please extract structured clinical information from the following clinical note:\n\n")
	b.WriteString("--- CLINICAL NOTE ---\n")
	b.WriteString(noteText)
	b.WriteString("\n--- END CLINICAL NOTE ---\n")

	if len(fieldLabels) > 0 {
		b.WriteString("\nTarget field labels:\n")
		for _, label := range fieldLabels {
			fmt.Fprintf(&b, "- %s\n", label)
		}
	}

	b.WriteString("\nOnly include information that is explicitly mentioned in the note.")
	return b.String()
}

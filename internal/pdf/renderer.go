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

// Package pdf renders filled form instances as NHS-styled PDF documents.
package pdf

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"github.com/clerkwell/paperwork-hub/internal/forms"
)

// NHS brand palette
var (
	nhsBlue      = rgb{0, 94, 184}    // #005EB8
	nhsDarkBlue  = rgb{0, 48, 135}    // #003087
	nhsDarkGrey  = rgb{66, 85, 99}    // #425563
	nhsMidGrey   = rgb{118, 134, 146} // #768692
	nhsLightGrey = rgb{232, 237, 238} // #E8EDEE
	alertRed     = rgb{204, 51, 51}
)

type rgb struct{ r, g, b int }

const (
	labelColWidth = 62.0
	valueColWidth = 128.0
	rowHeight     = 6.0
)

// Options controls the optional blocks of a rendered document.
type Options struct {
	// IncludeSignature adds a clinician signature and date placeholder
	// block at the end of each form.
	IncludeSignature bool

	// GeneratedAt stamps the document; zero means time.Now().
	GeneratedAt time.Time
}

// FormPage pairs a schema with the filled instance rendered from it.
type FormPage struct {
	Schema   *forms.FormSchema
	Instance *forms.FormInstance
}

// Renderer turns form instances into PDF bytes.
type Renderer struct{}

// NewRenderer creates a PDF renderer.
func NewRenderer() *Renderer {
	return &Renderer{}
}

// RenderForm renders a single filled form as a PDF document.
func (r *Renderer) RenderForm(schema *forms.FormSchema, instance *forms.FormInstance, opts Options) ([]byte, error) {
	return r.render([]FormPage{{Schema: schema, Instance: instance}}, "", opts)
}

// RenderBundle renders each form on a fresh page of one document. The
// bundle name goes into the document title and the page footer.
func (r *Renderer) RenderBundle(pages []FormPage, bundleName string, opts Options) ([]byte, error) {
	if len(pages) == 0 {
		return nil, errors.New("pdf: bundle has no forms to render")
	}
	return r.render(pages, bundleName, opts)
}

func (r *Renderer) render(pages []FormPage, bundleName string, opts Options) ([]byte, error) {
	for _, page := range pages {
		if page.Schema == nil || page.Instance == nil {
			return nil, errors.New("pdf: form page needs both schema and instance")
		}
	}

	generatedAt := opts.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCreationDate(generatedAt)
	doc.SetModificationDate(generatedAt)
	doc.SetCreator("Paperwork Hub", true)
	if bundleName != "" {
		doc.SetTitle(bundleName, true)
	} else {
		doc.SetTitle(pages[0].Schema.Name, true)
	}

	tr := doc.UnicodeTranslatorFromDescriptor("")

	doc.AliasNbPages("")
	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont("Helvetica", "I", 8)
		doc.SetTextColor(nhsMidGrey.r, nhsMidGrey.g, nhsMidGrey.b)
		footer := fmt.Sprintf("Page %d of {nb}", doc.PageNo())
		if bundleName != "" {
			footer = tr(bundleName) + "  -  " + footer
		}
		doc.CellFormat(0, 10, footer, "", 0, "C", false, 0, "")
	})

	for _, page := range pages {
		doc.AddPage()
		r.writeForm(doc, tr, page.Schema, page.Instance, opts, generatedAt)
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("pdf: rendering failed: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) writeForm(doc *fpdf.Fpdf, tr func(string) string, schema *forms.FormSchema, instance *forms.FormInstance, opts Options, generatedAt time.Time) {
	// Title banner
	doc.SetFillColor(nhsBlue.r, nhsBlue.g, nhsBlue.b)
	doc.SetTextColor(255, 255, 255)
	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 14, tr(strings.ToUpper(schema.Name)), "", 1, "C", true, 0, "")

	// Form type and schema version
	doc.SetTextColor(nhsMidGrey.r, nhsMidGrey.g, nhsMidGrey.b)
	doc.SetFont("Helvetica", "", 9)
	doc.CellFormat(0, 8, fmt.Sprintf("Form type: %s (schema v%d)    Form ID: %s", schema.FormType, instance.SchemaVersion, instance.ID), "", 1, "L", false, 0, "")
	doc.Ln(2)

	fieldsByID := make(map[string]forms.MappedField, len(instance.Fields))
	for _, field := range instance.Fields {
		fieldsByID[field.FieldID] = field
	}

	// Label/value rows in schema order
	for _, def := range schema.Fields {
		mapped := fieldsByID[def.ID]

		doc.SetFont("Helvetica", "B", 10)
		doc.SetTextColor(nhsDarkGrey.r, nhsDarkGrey.g, nhsDarkGrey.b)
		doc.CellFormat(labelColWidth, rowHeight, tr(def.Label), "", 0, "L", false, 0, "")

		if mapped.HasValue() {
			doc.SetFont("Helvetica", "", 10)
			doc.SetTextColor(0, 0, 0)
			doc.MultiCell(valueColWidth, rowHeight, tr(formatValue(mapped.Value)), "", "L", false)
		} else if def.Required {
			doc.SetFont("Helvetica", "I", 10)
			doc.SetTextColor(alertRed.r, alertRed.g, alertRed.b)
			doc.MultiCell(valueColWidth, rowHeight, "[needs review]", "", "L", false)
		} else {
			doc.Ln(rowHeight)
		}
		doc.Ln(1)
	}

	// Completeness footer
	doc.Ln(4)
	doc.SetDrawColor(nhsLightGrey.r, nhsLightGrey.g, nhsLightGrey.b)
	doc.SetLineWidth(0.4)
	left, _, right, _ := doc.GetMargins()
	pageWidth, _ := doc.GetPageSize()
	y := doc.GetY()
	doc.Line(left, y, pageWidth-right, y)
	doc.Ln(2)

	doc.SetFont("Helvetica", "B", 9)
	doc.SetTextColor(nhsDarkBlue.r, nhsDarkBlue.g, nhsDarkBlue.b)
	doc.CellFormat(0, 6, fmt.Sprintf("Completeness: %.0f%%", instance.CompletenessScore*100), "", 1, "L", false, 0, "")

	doc.SetFont("Helvetica", "", 9)
	if len(instance.MissingRequired) == 0 {
		doc.SetTextColor(nhsDarkGrey.r, nhsDarkGrey.g, nhsDarkGrey.b)
		doc.CellFormat(0, 5, "All required fields are present.", "", 1, "L", false, 0, "")
	} else {
		doc.SetTextColor(alertRed.r, alertRed.g, alertRed.b)
		doc.MultiCell(0, 5, tr(fmt.Sprintf("%d required field(s) missing: %s", len(instance.MissingRequired), strings.Join(missingLabels(schema, instance.MissingRequired), ", "))), "", "L", false)
	}

	if opts.IncludeSignature {
		r.writeSignatureBlock(doc)
	}

	doc.Ln(6)
	doc.SetFont("Helvetica", "I", 8)
	doc.SetTextColor(nhsMidGrey.r, nhsMidGrey.g, nhsMidGrey.b)
	doc.CellFormat(0, 5, fmt.Sprintf("Generated automatically by Paperwork Hub on %s", generatedAt.Format("02/01/2006 at 15:04")), "", 1, "L", false, 0, "")
}

func (r *Renderer) writeSignatureBlock(doc *fpdf.Fpdf) {
	doc.Ln(8)
	doc.SetFont("Helvetica", "B", 10)
	doc.SetTextColor(nhsDarkBlue.r, nhsDarkBlue.g, nhsDarkBlue.b)
	doc.CellFormat(0, 6, "AUTHORISATION", "", 1, "L", false, 0, "")
	doc.Ln(4)

	doc.SetFont("Helvetica", "", 10)
	doc.SetTextColor(nhsDarkGrey.r, nhsDarkGrey.g, nhsDarkGrey.b)
	doc.CellFormat(labelColWidth, rowHeight, "Clinician signature:", "", 0, "L", false, 0, "")
	doc.CellFormat(valueColWidth, rowHeight, "_________________________________", "", 1, "L", false, 0, "")
	doc.Ln(3)
	doc.CellFormat(labelColWidth, rowHeight, "Date:", "", 0, "L", false, 0, "")
	doc.CellFormat(valueColWidth, rowHeight, "_____________________", "", 1, "L", false, 0, "")
	doc.Ln(2)

	doc.SetFont("Helvetica", "I", 8)
	doc.SetTextColor(nhsMidGrey.r, nhsMidGrey.g, nhsMidGrey.b)
	doc.CellFormat(0, 5, "Pending signature - this document is not valid until signed.", "", 1, "L", false, 0, "")
}

// missingLabels resolves missing field ids to their schema labels.
func missingLabels(schema *forms.FormSchema, ids []string) []string {
	labels := make([]string, 0, len(ids))
	for _, id := range ids {
		if def, ok := schema.Field(id); ok {
			labels = append(labels, def.Label)
		} else {
			labels = append(labels, id)
		}
	}
	return labels
}

// formatValue renders a coerced field value for print. Lists join with "; ".
func formatValue(value interface{}) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, "; ")
	case []interface{}:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, formatValue(item))
		}
		return strings.Join(parts, "; ")
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

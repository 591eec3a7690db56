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

package api

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/clerkwell/paperwork-hub/internal/forms"
	"github.com/clerkwell/paperwork-hub/internal/logging"
	"github.com/clerkwell/paperwork-hub/internal/messaging"
	"github.com/clerkwell/paperwork-hub/internal/pdf"
	"github.com/clerkwell/paperwork-hub/internal/records"
	"github.com/clerkwell/paperwork-hub/internal/security"
	"github.com/clerkwell/paperwork-hub/internal/storage"
)

// FormsConfig wires the form endpoints to their collaborators. Extractor
// may be nil; note-driven endpoints then answer 503.
type FormsConfig struct {
	Registry     *forms.Registry
	Mapper       *forms.Mapper
	Evaluator    *forms.Evaluator
	Builder      *forms.Builder
	Extractor    Extractor
	Renderer     *pdf.Renderer
	Notes        *storage.NotesStore
	Forms        *storage.FormsStore
	Audit        *storage.AuditStore
	Events       *messaging.Service
	MaxFollowUps int
}

// FormsHandler handles template, fill, process, and PDF requests.
type FormsHandler struct {
	registry     *forms.Registry
	mapper       *forms.Mapper
	evaluator    *forms.Evaluator
	builder      *forms.Builder
	extractor    Extractor
	renderer     *pdf.Renderer
	notes        *storage.NotesStore
	forms        *storage.FormsStore
	audit        *storage.AuditStore
	events       *messaging.Service
	maxFollowUps int
}

// NewFormsHandler creates the form endpoints handler.
func NewFormsHandler(cfg FormsConfig) *FormsHandler {
	return &FormsHandler{
		registry:     cfg.Registry,
		mapper:       cfg.Mapper,
		evaluator:    cfg.Evaluator,
		builder:      cfg.Builder,
		extractor:    cfg.Extractor,
		renderer:     cfg.Renderer,
		notes:        cfg.Notes,
		forms:        cfg.Forms,
		audit:        cfg.Audit,
		events:       cfg.Events,
		maxFollowUps: cfg.MaxFollowUps,
	}
}

// TemplateSummary describes one registered schema.
type TemplateSummary struct {
	FormType   string `json:"form_type"`
	Name       string `json:"name"`
	Version    int    `json:"version"`
	FieldCount int    `json:"field_count"`
}

// HandleTemplates handles GET /api/templates.
func (h *FormsHandler) HandleTemplates(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	templates := make(map[string]TemplateSummary, h.registry.Len())
	for _, formType := range h.registry.Types() {
		schema, err := h.registry.Get(formType)
		if err != nil {
			continue
		}
		templates[formType] = TemplateSummary{
			FormType:   schema.FormType,
			Name:       schema.Name,
			Version:    schema.Version,
			FieldCount: len(schema.Fields),
		}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"templates": templates,
		"count":     len(templates),
	})
}

// HandleTemplateByType handles GET /api/templates/{form_type}.
func (h *FormsHandler) HandleTemplateByType(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	formType := pathSegment(r.URL.Path, "/api/templates/", 0)
	if err := security.ValidateFormType(formType); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	schema, err := h.registry.Get(formType)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, schema)
}

// FillRequest is the body for POST /api/forms/fill. Candidates take
// precedence over note_text; with note_text the hub extracts first.
type FillRequest struct {
	FormType      string            `json:"form_type"`
	SchemaVersion int               `json:"schema_version,omitempty"`
	NoteText      string            `json:"note_text,omitempty"`
	Candidates    []forms.Candidate `json:"candidates,omitempty"`
}

// FillResponse carries a filled form instance with its completeness report.
type FillResponse struct {
	NoteID    string              `json:"note_id,omitempty"`
	Instance  *forms.FormInstance `json:"instance"`
	Report    forms.Report        `json:"report"`
	FollowUps []string            `json:"follow_ups"`
}

// HandleFill handles POST /api/forms/fill.
func (h *FormsHandler) HandleFill(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req FillRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := security.ValidateFormType(req.FormType); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	candidates, noteID, err := h.resolveCandidates(r, req.NoteText, req.Candidates, req.FormType)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	outcome, err := h.fill(req.FormType, req.SchemaVersion, candidates, noteID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	logging.Sugar.Infow("Form filled via API",
		"form_type", req.FormType,
		"form_id", outcome.instance.ID,
		"score", outcome.report.Score,
		"missing_required", len(outcome.report.MissingRequired),
	)

	writeJSON(w, http.StatusOK, FillResponse{
		NoteID:    noteID,
		Instance:  outcome.instance,
		Report:    outcome.report,
		FollowUps: outcome.followUps,
	})
}

// ProcessRequest is the body for POST /api/process.
type ProcessRequest struct {
	NoteText  string   `json:"note_text"`
	FormTypes []string `json:"form_types,omitempty"`
}

// ProcessResponse is the note-to-forms pipeline outcome. Per-form failures
// land in warnings; only extraction failure fails the request.
type ProcessResponse struct {
	RequestID    string                `json:"request_id"`
	NoteID       string                `json:"note_id"`
	Model        string                `json:"model"`
	Candidates   []forms.Candidate     `json:"candidates"`
	Forms        []*forms.FormInstance `json:"forms"`
	Warnings     []string              `json:"warnings"`
	Status       string                `json:"status"`
	ProcessingMS int64                 `json:"processing_ms"`
}

// HandleProcess handles POST /api/process: one extraction, many forms.
func (h *FormsHandler) HandleProcess(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req ProcessRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.NoteText) == "" {
		writeError(w, http.StatusBadRequest, "note_text is required")
		return
	}

	formTypes := req.FormTypes
	if len(formTypes) == 0 {
		formTypes = h.registry.Types()
	}
	for _, formType := range formTypes {
		if err := security.ValidateFormType(formType); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", formType, err))
			return
		}
	}

	start := time.Now()

	candidates, noteID, err := h.resolveCandidates(r, req.NoteText, nil, formTypes...)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	var model string
	if ext, err := h.notes.GetExtractionByNote(noteID); err == nil {
		model = ext.Model
	}

	instances := make([]*forms.FormInstance, 0, len(formTypes))
	warnings := make([]string, 0)
	for _, formType := range formTypes {
		outcome, err := h.fill(formType, 0, candidates, noteID)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", formType, err))
			continue
		}
		instances = append(instances, outcome.instance)
	}

	status := "completed"
	if len(warnings) > 0 {
		status = "completed_with_errors"
		if len(instances) == 0 {
			status = "failed"
		}
	}

	logging.Sugar.Infow("Note processed via API",
		"note_id", noteID,
		"forms_requested", len(formTypes),
		"forms_filled", len(instances),
		"warnings", len(warnings),
	)

	writeJSON(w, http.StatusOK, ProcessResponse{
		RequestID:    records.NewID(),
		NoteID:       noteID,
		Model:        model,
		Candidates:   candidates,
		Forms:        instances,
		Warnings:     warnings,
		Status:       status,
		ProcessingMS: time.Since(start).Milliseconds(),
	})
}

// ListFormsResponse is the paginated form record listing.
type ListFormsResponse struct {
	Forms      []*records.FormRecord `json:"forms"`
	Total      int64                 `json:"total"`
	Page       int                   `json:"page"`
	PageSize   int                   `json:"page_size"`
	TotalPages int                   `json:"total_pages"`
}

// HandleForms handles GET /api/forms.
func (h *FormsHandler) HandleForms(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	query := r.URL.Query()

	page := parseIntParam(query.Get("page"), 1)
	pageSize := parseIntParam(query.Get("page_size"), 20)
	if pageSize > 100 {
		pageSize = 100
	}
	if pageSize < 1 {
		pageSize = 1
	}
	if page < 1 {
		page = 1
	}

	options := storage.ListOptions{
		FormType:  query.Get("form_type"),
		NoteID:    query.Get("note_id"),
		Limit:     pageSize,
		Offset:    (page - 1) * pageSize,
		SortBy:    query.Get("sort_by"),
		SortOrder: strings.ToUpper(query.Get("sort_order")),
	}

	if minScoreStr := query.Get("min_score"); minScoreStr != "" {
		if minScore, err := strconv.ParseFloat(minScoreStr, 64); err == nil {
			options.MinScore = &minScore
		}
	}
	if startTimeStr := query.Get("start_time"); startTimeStr != "" {
		if startTime, err := time.Parse(time.RFC3339, startTimeStr); err == nil {
			options.StartTime = &startTime
		}
	}
	if endTimeStr := query.Get("end_time"); endTimeStr != "" {
		if endTime, err := time.Parse(time.RFC3339, endTimeStr); err == nil {
			options.EndTime = &endTime
		}
	}

	total, err := h.forms.Count(options)
	if err != nil {
		logging.LogError(err, "Failed to count form records")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	formRecords, err := h.forms.List(options)
	if err != nil {
		logging.LogError(err, "Failed to list form records")
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	totalPages := int((total + int64(pageSize) - 1) / int64(pageSize))
	writeJSON(w, http.StatusOK, ListFormsResponse{
		Forms:      formRecords,
		Total:      total,
		Page:       page,
		PageSize:   pageSize,
		TotalPages: totalPages,
	})
}

// HandleFormByID handles GET and DELETE on /api/forms/{id}.
func (h *FormsHandler) HandleFormByID(w http.ResponseWriter, r *http.Request) {
	id := pathSegment(r.URL.Path, "/api/forms/", 0)
	if id == "" {
		writeError(w, http.StatusBadRequest, "form id is required")
		return
	}

	switch r.Method {
	case http.MethodGet:
		h.getForm(w, r, id)
	case http.MethodDelete:
		h.deleteForm(w, r, id)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

// getForm returns one stored form record
func (h *FormsHandler) getForm(w http.ResponseWriter, r *http.Request, id string) {
	record, err := h.forms.GetByID(id)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "form record not found")
			return
		}
		logging.LogError(err, "Failed to get form record", zap.String("id", security.SanitizeLogInput(id)))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	writeJSON(w, http.StatusOK, record)
}

// deleteForm erases a stored form record. The erasure itself is audited;
// the record content is not.
func (h *FormsHandler) deleteForm(w http.ResponseWriter, r *http.Request, id string) {
	if err := h.forms.Delete(id); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, "form record not found")
			return
		}
		logging.LogError(err, "Failed to delete form record", zap.String("id", security.SanitizeLogInput(id)))
		writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	recordAudit(h.audit, records.ActionFormDeleted, "form", id, "")
	logging.Sugar.Infow("Form record deleted", "form_id", security.SanitizeLogInput(id))

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "form record deleted",
		"id":      id,
	})
}

// PDFRequest is the body for POST /api/forms/pdf.
type PDFRequest struct {
	FillRequest
	IncludeSignaturePlaceholder *bool `json:"include_signature_placeholder,omitempty"`
}

// HandlePDF handles POST /api/forms/pdf: fill one form, download the PDF.
func (h *FormsHandler) HandlePDF(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req PDFRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := security.ValidateFormType(req.FormType); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	candidates, noteID, err := h.resolveCandidates(r, req.NoteText, req.Candidates, req.FormType)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	outcome, err := h.fill(req.FormType, req.SchemaVersion, candidates, noteID)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	opts := pdf.Options{IncludeSignature: includeSignature(req.IncludeSignaturePlaceholder)}
	document, err := h.renderer.RenderForm(outcome.schema, outcome.instance, opts)
	if err != nil {
		logging.LogError(err, "PDF rendering failed", zap.String("form_type", req.FormType))
		writeError(w, http.StatusInternalServerError, "failed to render PDF")
		return
	}

	filename := fmt.Sprintf("%s_%s.pdf", req.FormType, time.Now().Format("20060102_150405"))
	recordAudit(h.audit, records.ActionPDFRendered, "form", outcome.instance.ID,
		fmt.Sprintf("filename=%s bytes=%d", filename, len(document)))

	writePDF(w, filename, document)
}

// BundleRequest is the body for POST /api/forms/pdf/bundle.
type BundleRequest struct {
	FormTypes                   []string          `json:"form_types"`
	NoteText                    string            `json:"note_text,omitempty"`
	Candidates                  []forms.Candidate `json:"candidates,omitempty"`
	BundleName                  string            `json:"bundle_name,omitempty"`
	IncludeSignaturePlaceholder *bool             `json:"include_signature_placeholder,omitempty"`
}

// HandlePDFBundle handles POST /api/forms/pdf/bundle: fill several forms
// from one set of candidates, download one document.
func (h *FormsHandler) HandlePDFBundle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req BundleRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.FormTypes) == 0 {
		writeError(w, http.StatusBadRequest, "form_types is required")
		return
	}
	for _, formType := range req.FormTypes {
		if err := security.ValidateFormType(formType); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", formType, err))
			return
		}
	}

	candidates, noteID, err := h.resolveCandidates(r, req.NoteText, req.Candidates, req.FormTypes...)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	bundleName := req.BundleName
	if bundleName == "" {
		bundleName = "NHS_Forms_Bundle_" + time.Now().Format("20060102_150405")
	}

	h.renderBundle(w, req.FormTypes, candidates, noteID, bundleName, includeSignature(req.IncludeSignaturePlaceholder))
}

// FromNoteRequest is the body for POST /api/forms/pdf/from-note.
type FromNoteRequest struct {
	NoteText                    string   `json:"note_text"`
	FormTypes                   []string `json:"form_types,omitempty"`
	IncludeSignaturePlaceholder *bool    `json:"include_signature_placeholder,omitempty"`
}

// HandlePDFFromNote handles POST /api/forms/pdf/from-note: extract, fill
// every requested form, and download a single PDF or a bundle.
func (h *FormsHandler) HandlePDFFromNote(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req FromNoteRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.NoteText) == "" {
		writeError(w, http.StatusBadRequest, "note_text is required")
		return
	}

	formTypes := req.FormTypes
	if len(formTypes) == 0 {
		formTypes = h.registry.Types()
	}
	for _, formType := range formTypes {
		if err := security.ValidateFormType(formType); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s: %v", formType, err))
			return
		}
	}

	candidates, noteID, err := h.resolveCandidates(r, req.NoteText, nil, formTypes...)
	if err != nil {
		writeError(w, statusFor(err), err.Error())
		return
	}

	bundleName := "NHS_Forms_Bundle_" + time.Now().Format("20060102_150405")
	h.renderBundle(w, formTypes, candidates, noteID, bundleName, includeSignature(req.IncludeSignaturePlaceholder))
}

// fillOutcome is one completed fill pass.
type fillOutcome struct {
	schema    *forms.FormSchema
	instance  *forms.FormInstance
	report    forms.Report
	followUps []string
}

// fill runs the map-evaluate-build pipeline for one form type and persists
// the resulting record.
func (h *FormsHandler) fill(formType string, schemaVersion int, candidates []forms.Candidate, noteID string) (*fillOutcome, error) {
	schema, err := h.registry.Get(formType)
	if err != nil {
		return nil, err
	}

	mapped := h.mapper.Map(candidates, schema)
	report := h.evaluator.Evaluate(mapped, schema)

	version := schemaVersion
	if version <= 0 {
		version = schema.Version
	}

	instance, err := h.builder.Build(formType, version, mapped, report)
	if err != nil {
		return nil, err
	}

	record := records.NewFormRecord(instance, noteID)
	if err := h.forms.Insert(record); err != nil {
		return nil, fmt.Errorf("storing form record: %w", err)
	}

	recordAudit(h.audit, records.ActionFormFilled, "form", instance.ID,
		fmt.Sprintf("form_type=%s score=%.2f missing=%d", formType, report.Score, len(report.MissingRequired)))
	logPublish(h.events.PublishFormFilled(record))

	return &fillOutcome{
		schema:    schema,
		instance:  instance,
		report:    report,
		followUps: h.evaluator.FollowUps(schema, report.MissingRequired, h.maxFollowUps),
	}, nil
}

// resolveCandidates returns the extraction candidates for a request: the
// explicit list when given, otherwise an extraction over note_text (which
// also persists the note and extraction). formTypes scope the target labels.
func (h *FormsHandler) resolveCandidates(r *http.Request, noteText string, candidates []forms.Candidate, formTypes ...string) ([]forms.Candidate, string, error) {
	if len(candidates) > 0 {
		return candidates, "", nil
	}

	noteText = strings.TrimSpace(noteText)
	if noteText == "" {
		return nil, "", errBadRequest("note_text or candidates is required")
	}
	if h.extractor == nil {
		return nil, "", errUnavailable("extraction is not configured (no API key)")
	}

	note := records.NewNote(noteText, records.SourceTyped)
	if err := h.notes.Insert(note); err != nil {
		return nil, "", fmt.Errorf("storing note: %w", err)
	}

	result, err := h.extractor.Extract(r.Context(), noteText, registryLabels(h.registry, formTypes...))
	if err != nil {
		logging.LogError(err, "Extraction failed", zap.String("note_id", note.ID))
		return nil, "", errUpstream("extraction failed")
	}

	ext := records.NewExtraction(note.ID, result.Model, result.Candidates)
	if err := h.notes.SaveExtraction(ext); err != nil {
		return nil, "", fmt.Errorf("storing extraction: %w", err)
	}

	recordAudit(h.audit, records.ActionExtractionCompleted, "extraction", ext.ID,
		fmt.Sprintf("model=%s candidates=%d note_chars=%d", result.Model, len(result.Candidates), result.NoteChars))
	logPublish(h.events.PublishNoteCreated(note))
	logPublish(h.events.PublishExtractionCompleted(ext))

	return result.Candidates, note.ID, nil
}

// renderBundle fills each form type, renders pages for the ones that
// succeed, and streams the document. No fillable form at all is a 400.
func (h *FormsHandler) renderBundle(w http.ResponseWriter, formTypes []string, candidates []forms.Candidate, noteID, bundleName string, withSignature bool) {
	pages := make([]pdf.FormPage, 0, len(formTypes))
	warnings := make([]string, 0)
	for _, formType := range formTypes {
		outcome, err := h.fill(formType, 0, candidates, noteID)
		if err != nil {
			warnings = append(warnings, fmt.Sprintf("%s: %v", formType, err))
			continue
		}
		pages = append(pages, pdf.FormPage{Schema: outcome.schema, Instance: outcome.instance})
	}

	if len(pages) == 0 {
		writeError(w, http.StatusBadRequest, "no forms could be filled: "+strings.Join(warnings, "; "))
		return
	}

	opts := pdf.Options{IncludeSignature: withSignature}
	var document []byte
	var err error
	if len(pages) == 1 {
		document, err = h.renderer.RenderForm(pages[0].Schema, pages[0].Instance, opts)
	} else {
		document, err = h.renderer.RenderBundle(pages, bundleName, opts)
	}
	if err != nil {
		logging.LogError(err, "PDF bundle rendering failed", zap.Int("pages", len(pages)))
		writeError(w, http.StatusInternalServerError, "failed to render PDF")
		return
	}

	for _, warning := range warnings {
		logging.Sugar.Warnw("Form skipped in PDF bundle", "reason", warning)
	}
	recordAudit(h.audit, records.ActionPDFRendered, "bundle", bundleName,
		fmt.Sprintf("forms=%d bytes=%d", len(pages), len(document)))

	writePDF(w, bundleName+".pdf", document)
}

// writePDF streams a document as an attachment download.
func writePDF(w http.ResponseWriter, filename string, document []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(document)))
	if _, err := w.Write(document); err != nil {
		logging.Sugar.Errorw("Failed to write PDF response", "error", err)
	}
}

// includeSignature applies the include_signature_placeholder default (true).
func includeSignature(flag *bool) bool {
	if flag == nil {
		return true
	}
	return *flag
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	var unknownType *forms.UnknownFormTypeError
	var versionMismatch *forms.SchemaVersionMismatchError
	var httpErr *httpError

	switch {
	case errors.As(err, &httpErr):
		return httpErr.status
	case errors.As(err, &unknownType):
		return http.StatusNotFound
	case errors.As(err, &versionMismatch):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// httpError carries a status through the fill pipeline.
type httpError struct {
	status  int
	message string
}

func (e *httpError) Error() string { return e.message }

func errBadRequest(message string) error {
	return &httpError{status: http.StatusBadRequest, message: message}
}

func errUnavailable(message string) error {
	return &httpError{status: http.StatusServiceUnavailable, message: message}
}

func errUpstream(message string) error {
	return &httpError{status: http.StatusBadGateway, message: message}
}

package forms

import (
	"reflect"
	"testing"
)

func mappingSchema() *FormSchema {
	return &FormSchema{
		FormType: "clinic_intake",
		Name:     "Clinic Intake",
		Version:  1,
		Fields: []FieldDefinition{
			{ID: "patient_name", Label: "Patient Name", Type: FieldText, Required: true,
				Synonyms: []string{"name", "patient", "full name"}},
			{ID: "nhs_number", Label: "NHS Number", Type: FieldText, Required: true,
				Synonyms: []string{"nhs no", "nhs"}, Validator: ValidateNHSNumber},
			{ID: "date_of_birth", Label: "Date of Birth", Type: FieldDate, Required: true,
				Synonyms: []string{"dob", "born"}},
			{ID: "priority", Label: "Priority", Type: FieldEnum,
				Options: []string{"Routine", "Urgent"}, Synonyms: []string{"urgency"}},
			{ID: "medications", Label: "Current Medications", Type: FieldList,
				Synonyms: []string{"meds"}},
		},
	}
}

func fieldByID(t *testing.T, mapped []MappedField, id string) MappedField {
	t.Helper()
	for _, field := range mapped {
		if field.FieldID == id {
			return field
		}
	}
	t.Fatalf("no mapped field with id %q", id)
	return MappedField{}
}

// Map returns exactly one entry per schema field, in schema order, whatever
// the candidates look like.
func TestMapCardinality(t *testing.T) {
	schema := mappingSchema()
	mapper := NewMapper(DefaultFuzzyMatchThreshold)

	tests := []struct {
		name       string
		candidates []Candidate
	}{
		{
			name:       "No candidates",
			candidates: nil,
		},
		{
			name: "Only unmatched keys",
			candidates: []Candidate{
				{Key: "blood pressure", Value: "120/80", Confidence: 0.9},
				{Key: "", Value: "empty key", Confidence: 0.9},
			},
		},
		{
			name: "Duplicates and extras",
			candidates: []Candidate{
				{Key: "Patient Name", Value: "Joan Reed", Confidence: 0.9},
				{Key: "name", Value: "J. Reed", Confidence: 0.4},
				{Key: "NHS Number", Value: "1234567890", Confidence: 0.95},
				{Key: "ward", Value: "B4", Confidence: 0.8},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapper.Map(tt.candidates, schema)

			if len(mapped) != len(schema.Fields) {
				t.Fatalf("Map returned %d fields, schema defines %d", len(mapped), len(schema.Fields))
			}
			for i, field := range mapped {
				if field.FieldID != schema.Fields[i].ID {
					t.Errorf("mapped[%d].FieldID = %q, want %q (schema order)",
						i, field.FieldID, schema.Fields[i].ID)
				}
			}
		})
	}
}

func TestMapExactLabelMatch(t *testing.T) {
	schema := mappingSchema()
	mapper := NewMapper(DefaultFuzzyMatchThreshold)

	mapped := mapper.Map([]Candidate{
		{Key: "Patient Name:", Value: "  Joan Reed ", Confidence: 0.93},
	}, schema)

	got := fieldByID(t, mapped, "patient_name")
	if got.Value != "Joan Reed" {
		t.Errorf("Value = %v, want trimmed text", got.Value)
	}
	if got.Confidence != 0.93 {
		t.Errorf("Confidence = %f, want 0.93", got.Confidence)
	}
	if got.SourceKey != "Patient Name:" {
		t.Errorf("SourceKey = %q, want the original candidate key", got.SourceKey)
	}
}

// A synonym key maps onto its field and carries the candidate confidence
// through unchanged.
func TestMapSynonymMatch(t *testing.T) {
	schema := mappingSchema()
	mapper := NewMapper(DefaultFuzzyMatchThreshold)

	mapped := mapper.Map([]Candidate{
		{Key: "Patient", Value: "John Smith", Confidence: 0.9},
	}, schema)

	got := fieldByID(t, mapped, "patient_name")
	if !got.HasValue() {
		t.Fatal("synonym key did not map onto patient_name")
	}
	if got.Value != "John Smith" {
		t.Errorf("Value = %v, want John Smith", got.Value)
	}
	if got.Confidence != 0.9 {
		t.Errorf("Confidence = %f, want 0.9", got.Confidence)
	}
}

// When several candidates resolve to one field, the highest confidence wins.
func TestMapHigherConfidenceWins(t *testing.T) {
	schema := mappingSchema()
	mapper := NewMapper(DefaultFuzzyMatchThreshold)

	mapped := mapper.Map([]Candidate{
		{Key: "nhs no", Value: "9876543210", Confidence: 0.70},
		{Key: "NHS Number", Value: "1234567890", Confidence: 0.95},
	}, schema)

	got := fieldByID(t, mapped, "nhs_number")
	if got.Value != "1234567890" {
		t.Errorf("Value = %v, want the higher-confidence candidate", got.Value)
	}
	if got.Confidence != 0.95 {
		t.Errorf("Confidence = %f, want 0.95", got.Confidence)
	}
	if got.SourceKey != "NHS Number" {
		t.Errorf("SourceKey = %q, want NHS Number", got.SourceKey)
	}
}

// Equal confidence keeps the first-seen candidate.
func TestMapTieKeepsFirstSeen(t *testing.T) {
	schema := mappingSchema()
	mapper := NewMapper(DefaultFuzzyMatchThreshold)

	mapped := mapper.Map([]Candidate{
		{Key: "patient name", Value: "First Candidate", Confidence: 0.8},
		{Key: "name", Value: "Second Candidate", Confidence: 0.8},
	}, schema)

	got := fieldByID(t, mapped, "patient_name")
	if got.Value != "First Candidate" {
		t.Errorf("Value = %v, want the first-seen candidate on a confidence tie", got.Value)
	}
}

// An unparseable value leaves the field unset with the reason recorded;
// mapping never fails outright.
func TestMapCoercionFailureRecordsRejection(t *testing.T) {
	schema := mappingSchema()
	mapper := NewMapper(DefaultFuzzyMatchThreshold)

	mapped := mapper.Map([]Candidate{
		{Key: "Date of Birth", Value: "not-a-date", Confidence: 0.9},
	}, schema)

	got := fieldByID(t, mapped, "date_of_birth")
	if got.HasValue() {
		t.Errorf("Value = %v, want unset after failed coercion", got.Value)
	}
	if got.Confidence != 0 {
		t.Errorf("Confidence = %f, want 0 for a rejected value", got.Confidence)
	}
	if got.Rejection == "" {
		t.Error("Rejection is empty, want the coercion failure reason")
	}
	if got.SourceKey != "Date of Birth" {
		t.Errorf("SourceKey = %q, want the rejected candidate's key", got.SourceKey)
	}
}

func TestMapValidatorFailureRecordsRejection(t *testing.T) {
	schema := mappingSchema()
	mapper := NewMapper(DefaultFuzzyMatchThreshold)

	mapped := mapper.Map([]Candidate{
		{Key: "NHS Number", Value: "12345", Confidence: 0.9},
	}, schema)

	got := fieldByID(t, mapped, "nhs_number")
	if got.HasValue() {
		t.Errorf("Value = %v, want unset after validator rejection", got.Value)
	}
	if got.Rejection == "" {
		t.Error("Rejection is empty, want the validator failure reason")
	}
}

func TestMapFuzzyMatch(t *testing.T) {
	schema := mappingSchema()
	mapper := NewMapper(DefaultFuzzyMatchThreshold)

	tests := []struct {
		name      string
		key       string
		fieldID   string
		wantMatch bool
	}{
		{
			name:      "Transposed letters stay above threshold",
			key:       "Patient Nmae",
			fieldID:   "patient_name",
			wantMatch: true,
		},
		{
			name:      "Unrelated key matches nothing",
			key:       "clinical impression",
			fieldID:   "patient_name",
			wantMatch: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mapped := mapper.Map([]Candidate{
				{Key: tt.key, Value: "Joan Reed", Confidence: 0.9},
			}, schema)

			got := fieldByID(t, mapped, tt.fieldID)
			if got.HasValue() != tt.wantMatch {
				t.Errorf("key %q: HasValue() = %v, want %v", tt.key, got.HasValue(), tt.wantMatch)
			}
		})
	}
}

func TestMapStricterThresholdRejectsTypo(t *testing.T) {
	schema := mappingSchema()

	// "patient nmae" scores 1 - 2/12 against "patient name"; a mapper
	// tuned above that must not take the match.
	strict := NewMapper(0.95)
	mapped := strict.Map([]Candidate{
		{Key: "Patient Nmae", Value: "Joan Reed", Confidence: 0.9},
	}, schema)

	if got := fieldByID(t, mapped, "patient_name"); got.HasValue() {
		t.Errorf("threshold 0.95 accepted a 0.83 similarity match: %v", got.Value)
	}
}

// An exact label match can never be shadowed by another field's synonym.
func TestMapLabelBeatsSynonym(t *testing.T) {
	schema := &FormSchema{
		FormType: "shadow_check",
		Name:     "Shadow Check",
		Version:  1,
		Fields: []FieldDefinition{
			{ID: "summary", Label: "Summary", Type: FieldText, Required: true},
			{ID: "history", Label: "History", Type: FieldText,
				Synonyms: []string{"summary", "background"}},
		},
	}
	mapper := NewMapper(DefaultFuzzyMatchThreshold)

	mapped := mapper.Map([]Candidate{
		{Key: "Summary", Value: "Recovering well", Confidence: 0.9},
	}, schema)

	if got := fieldByID(t, mapped, "summary"); !got.HasValue() {
		t.Error("label owner lost its own exact match")
	}
	if got := fieldByID(t, mapped, "history"); got.HasValue() {
		t.Errorf("synonym stole an exact label match: %v", got.Value)
	}
}

func TestMapClampsConfidence(t *testing.T) {
	schema := mappingSchema()
	mapper := NewMapper(DefaultFuzzyMatchThreshold)

	mapped := mapper.Map([]Candidate{
		{Key: "patient name", Value: "Joan Reed", Confidence: 1.5},
		{Key: "nhs number", Value: "1234567890", Confidence: -0.3},
	}, schema)

	if got := fieldByID(t, mapped, "patient_name"); got.Confidence != 1.0 {
		t.Errorf("Confidence = %f, want clamped to 1.0", got.Confidence)
	}
	if got := fieldByID(t, mapped, "nhs_number"); got.Confidence != 0.0 {
		t.Errorf("Confidence = %f, want clamped to 0.0", got.Confidence)
	}
}

func TestMapDeterministic(t *testing.T) {
	schema := mappingSchema()
	mapper := NewMapper(DefaultFuzzyMatchThreshold)

	candidates := []Candidate{
		{Key: "Patient", Value: "John Smith", Confidence: 0.9},
		{Key: "nhs no", Value: "9876543210", Confidence: 0.70},
		{Key: "NHS Number", Value: "1234567890", Confidence: 0.95},
		{Key: "dob", Value: "14/03/1952", Confidence: 0.85},
		{Key: "urgency", Value: "urgent", Confidence: 0.75},
		{Key: "meds", Value: "aspirin; ramipril", Confidence: 0.8},
	}

	first := mapper.Map(candidates, schema)
	for run := 0; run < 3; run++ {
		if got := mapper.Map(candidates, schema); !reflect.DeepEqual(got, first) {
			t.Fatalf("run %d differs from first mapping:\n got %+v\nwant %+v", run, got, first)
		}
	}
}

func TestMapDoesNotMutateCandidates(t *testing.T) {
	schema := mappingSchema()
	mapper := NewMapper(DefaultFuzzyMatchThreshold)

	candidates := []Candidate{
		{Key: "Patient Name", Value: "Joan Reed", Confidence: 1.5},
		{Key: "Date of Birth", Value: "not-a-date", Confidence: 0.9},
	}
	snapshot := make([]Candidate, len(candidates))
	copy(snapshot, candidates)

	mapper.Map(candidates, schema)

	if !reflect.DeepEqual(candidates, snapshot) {
		t.Errorf("Map mutated its candidates:\n got %+v\nwant %+v", candidates, snapshot)
	}
}

func TestNewMapperThresholdFallback(t *testing.T) {
	tests := []struct {
		name      string
		threshold float64
		want      float64
	}{
		{name: "Zero falls back", threshold: 0, want: DefaultFuzzyMatchThreshold},
		{name: "Negative falls back", threshold: -0.5, want: DefaultFuzzyMatchThreshold},
		{name: "Above one falls back", threshold: 1.5, want: DefaultFuzzyMatchThreshold},
		{name: "In range kept", threshold: 0.9, want: 0.9},
		{name: "Exactly one kept", threshold: 1.0, want: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NewMapper(tt.threshold).fuzzyThreshold; got != tt.want {
				t.Errorf("NewMapper(%f).fuzzyThreshold = %f, want %f", tt.threshold, got, tt.want)
			}
		})
	}
}

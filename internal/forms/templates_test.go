package forms

import (
	"reflect"
	"testing"
)

func TestRegisterBuiltins(t *testing.T) {
	registry := NewRegistry()

	if err := RegisterBuiltins(registry); err != nil {
		t.Fatalf("RegisterBuiltins returned error: %v", err)
	}

	want := []string{FormTypeDischargeSummary, FormTypeReferral, FormTypeRiskAssessment}
	if got := registry.Types(); !reflect.DeepEqual(got, want) {
		t.Errorf("Types() = %v, want %v", got, want)
	}
}

func TestBuiltinSchemasValid(t *testing.T) {
	for _, schema := range BuiltinSchemas() {
		t.Run(schema.FormType, func(t *testing.T) {
			if err := schema.Validate(); err != nil {
				t.Errorf("Validate returned error: %v", err)
			}
			if len(schema.RequiredFieldIDs()) == 0 {
				t.Error("schema has no required fields")
			}
			if schema.Version < 1 {
				t.Errorf("Version = %d, want at least 1", schema.Version)
			}

			for _, field := range schema.Fields {
				if field.Type == FieldEnum && len(field.Options) == 0 {
					t.Errorf("enum field %q has no options", field.ID)
				}
			}
		})
	}
}

// BuiltinSchemas hands out fresh copies so one registry's schemas can never
// leak edits into another's.
func TestBuiltinSchemasAreFreshCopies(t *testing.T) {
	first := BuiltinSchemas()
	second := BuiltinSchemas()

	first[0].Fields[0].Label = "Mutated"

	if second[0].Fields[0].Label != "Patient Name" {
		t.Errorf("mutating one copy changed another: %q", second[0].Fields[0].Label)
	}
}

func TestValidateNHSNumber(t *testing.T) {
	tests := []struct {
		name    string
		value   interface{}
		wantErr bool
	}{
		{
			name:  "Ten digits accepted",
			value: "1234567890",
		},
		{
			name:    "Nine digits rejected",
			value:   "123456789",
			wantErr: true,
		},
		{
			name:    "Eleven digits rejected",
			value:   "12345678901",
			wantErr: true,
		},
		{
			name:    "Spaced groups rejected",
			value:   "123 456 7890",
			wantErr: true,
		},
		{
			name:    "Letters rejected",
			value:   "abcdefghij",
			wantErr: true,
		},
		{
			name:    "Non-text rejected",
			value:   1234567890,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateNHSNumber(tt.value)
			if tt.wantErr && err == nil {
				t.Errorf("ValidateNHSNumber(%v) = nil, want error", tt.value)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("ValidateNHSNumber(%v) = %v, want nil", tt.value, err)
			}
		})
	}
}

func TestDischargeSummaryRequiredFields(t *testing.T) {
	registry := NewRegistry()
	if err := RegisterBuiltins(registry); err != nil {
		t.Fatalf("RegisterBuiltins returned error: %v", err)
	}

	schema, err := registry.Get(FormTypeDischargeSummary)
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}

	want := []string{
		"patient_name",
		"nhs_number",
		"date_of_birth",
		"admission_date",
		"discharge_date",
		"consultant",
		"presenting_complaint",
		"primary_diagnosis",
		"clinical_summary",
		"follow_up_instructions",
	}
	if got := schema.RequiredFieldIDs(); !reflect.DeepEqual(got, want) {
		t.Errorf("RequiredFieldIDs() = %v, want %v", got, want)
	}
}

// Every builtin field label maps back onto its own field, whatever synonyms
// the other fields declare.
func TestBuiltinLabelsRoundTrip(t *testing.T) {
	mapper := NewMapper(DefaultFuzzyMatchThreshold)

	for _, schema := range BuiltinSchemas() {
		t.Run(schema.FormType, func(t *testing.T) {
			for _, def := range schema.Fields {
				mapped := mapper.Map([]Candidate{
					{Key: def.Label, Value: sampleValueFor(def), Confidence: 0.9},
				}, schema)

				var got MappedField
				for _, field := range mapped {
					if field.FieldID == def.ID {
						got = field
						break
					}
				}

				if !got.HasValue() {
					t.Errorf("label %q did not fill its own field %q (rejection: %s)",
						def.Label, def.ID, got.Rejection)
				}
			}
		})
	}
}

func sampleValueFor(def FieldDefinition) interface{} {
	switch def.Type {
	case FieldDate:
		return "2026-01-15"
	case FieldNumber:
		return 42.0
	case FieldEnum:
		return def.Options[0]
	case FieldList:
		return []string{"first item", "second item"}
	default:
		if def.Validator != nil {
			return "1234567890"
		}
		return "sample text"
	}
}

package forms

import (
	"errors"
	"testing"
)

func validTestSchema() *FormSchema {
	return &FormSchema{
		FormType: "clinic_intake",
		Name:     "Clinic Intake",
		Version:  1,
		Fields: []FieldDefinition{
			{ID: "patient_name", Label: "Patient Name", Type: FieldText, Required: true,
				Synonyms: []string{"name", "patient"}},
			{ID: "date_of_birth", Label: "Date of Birth", Type: FieldDate,
				Synonyms: []string{"dob"}},
			{ID: "priority", Label: "Priority", Type: FieldEnum,
				Options: []string{"Routine", "Urgent"}},
		},
	}
}

func TestRegistryRegisterAndGet(t *testing.T) {
	registry := NewRegistry()
	schema := validTestSchema()

	if err := registry.Register(schema); err != nil {
		t.Fatalf("Register returned error: %v", err)
	}

	got, err := registry.Get("clinic_intake")
	if err != nil {
		t.Fatalf("Get returned error: %v", err)
	}
	if got != schema {
		t.Error("Get returned a different schema than was registered")
	}
	if registry.Len() != 1 {
		t.Errorf("Len() = %d, want 1", registry.Len())
	}
}

func TestRegistryDuplicateRegistration(t *testing.T) {
	registry := NewRegistry()
	if err := registry.Register(validTestSchema()); err != nil {
		t.Fatalf("first Register returned error: %v", err)
	}

	err := registry.Register(validTestSchema())
	if err == nil {
		t.Fatal("second Register succeeded, want DuplicateSchemaError")
	}

	var dup *DuplicateSchemaError
	if !errors.As(err, &dup) {
		t.Fatalf("error is %T, want *DuplicateSchemaError", err)
	}
	if dup.FormType != "clinic_intake" {
		t.Errorf("DuplicateSchemaError.FormType = %q, want clinic_intake", dup.FormType)
	}

	// The first registration must be untouched
	if registry.Len() != 1 {
		t.Errorf("Len() = %d after rejected duplicate, want 1", registry.Len())
	}
}

func TestRegistryGetUnknown(t *testing.T) {
	registry := NewRegistry()

	_, err := registry.Get("never_registered")
	if err == nil {
		t.Fatal("Get succeeded for an unregistered type")
	}

	var unknown *UnknownFormTypeError
	if !errors.As(err, &unknown) {
		t.Fatalf("error is %T, want *UnknownFormTypeError", err)
	}
	if unknown.FormType != "never_registered" {
		t.Errorf("UnknownFormTypeError.FormType = %q, want never_registered", unknown.FormType)
	}
}

func TestRegistryTypesOrder(t *testing.T) {
	registry := NewRegistry()

	names := []string{"first_form", "second_form", "third_form"}
	for _, name := range names {
		schema := validTestSchema()
		schema.FormType = name
		if err := registry.Register(schema); err != nil {
			t.Fatalf("Register(%s) returned error: %v", name, err)
		}
	}

	types := registry.Types()
	if len(types) != len(names) {
		t.Fatalf("Types() returned %d entries, want %d", len(types), len(names))
	}
	for i, name := range names {
		if types[i] != name {
			t.Errorf("Types()[%d] = %q, want %q (registration order)", i, types[i], name)
		}
	}

	// The returned slice is a copy; mutating it must not corrupt the registry
	types[0] = "mutated"
	if registry.Types()[0] != "first_form" {
		t.Error("mutating the Types() result changed registry state")
	}
}

func TestRegistryRejectsInvalidSchema(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*FormSchema)
	}{
		{
			name:   "Empty form type",
			mutate: func(s *FormSchema) { s.FormType = "" },
		},
		{
			name:   "Version below one",
			mutate: func(s *FormSchema) { s.Version = 0 },
		},
		{
			name:   "No fields",
			mutate: func(s *FormSchema) { s.Fields = nil },
		},
		{
			name:   "Duplicate field id",
			mutate: func(s *FormSchema) { s.Fields[1].ID = s.Fields[0].ID },
		},
		{
			name:   "Empty field id",
			mutate: func(s *FormSchema) { s.Fields[0].ID = "" },
		},
		{
			name:   "Empty field label",
			mutate: func(s *FormSchema) { s.Fields[0].Label = "" },
		},
		{
			name:   "Unknown field type",
			mutate: func(s *FormSchema) { s.Fields[0].Type = "checkbox" },
		},
		{
			name:   "Enum without options",
			mutate: func(s *FormSchema) { s.Fields[2].Options = nil },
		},
		{
			name: "No required field",
			mutate: func(s *FormSchema) {
				for i := range s.Fields {
					s.Fields[i].Required = false
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			registry := NewRegistry()
			schema := validTestSchema()
			tt.mutate(schema)

			if err := registry.Register(schema); err == nil {
				t.Error("Register accepted an invalid schema")
			}
			if registry.Len() != 0 {
				t.Error("rejected schema still landed in the registry")
			}
		})
	}
}

func TestSchemaFieldLookup(t *testing.T) {
	schema := validTestSchema()

	def, ok := schema.Field("date_of_birth")
	if !ok {
		t.Fatal("Field(date_of_birth) not found")
	}
	if def.Label != "Date of Birth" {
		t.Errorf("Field(date_of_birth).Label = %q", def.Label)
	}

	if _, ok := schema.Field("no_such_field"); ok {
		t.Error("Field returned ok for an absent id")
	}
}

func TestSchemaRequiredFieldIDs(t *testing.T) {
	schema := validTestSchema()
	schema.Fields[2].Required = true

	got := schema.RequiredFieldIDs()
	want := []string{"patient_name", "priority"}
	if len(got) != len(want) {
		t.Fatalf("RequiredFieldIDs() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("RequiredFieldIDs()[%d] = %q, want %q (schema order)", i, got[i], want[i])
		}
	}
}

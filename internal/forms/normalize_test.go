package forms

import (
	"math"
	"testing"
)

func TestNormalizeLabel(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			name:  "Lowercases and trims",
			input: "  Patient Name  ",
			want:  "patient name",
		},
		{
			name:  "Strips punctuation",
			input: "Date-of-Birth:",
			want:  "date of birth",
		},
		{
			name:  "Collapses whitespace",
			input: "NHS   Number",
			want:  "nhs number",
		},
		{
			name:  "Keeps digits",
			input: "2-week wait",
			want:  "2 week wait",
		},
		{
			name:  "Parenthesized label",
			input: "Referring To (Department/Consultant)",
			want:  "referring to department consultant",
		},
		{
			name:  "Punctuation only becomes empty",
			input: "!!! --- ???",
			want:  "",
		},
		{
			name:  "Empty input",
			input: "",
			want:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NormalizeLabel(tt.input)
			if got != tt.want {
				t.Errorf("NormalizeLabel(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestNormalizeLabel_EquivalentSpellings(t *testing.T) {
	// Different clinical spellings of one label normalize identically
	spellings := []string{
		"Date of Birth",
		"date-of-birth",
		"DATE OF BIRTH:",
		"  date   of  birth ",
	}

	want := NormalizeLabel(spellings[0])
	for _, s := range spellings[1:] {
		if got := NormalizeLabel(s); got != want {
			t.Errorf("NormalizeLabel(%q) = %q, want %q", s, got, want)
		}
	}
}

func TestSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a    string
		b    string
		want float64
	}{
		{
			name: "Identical strings",
			a:    "patient name",
			b:    "patient name",
			want: 1.0,
		},
		{
			name: "Both empty",
			a:    "",
			b:    "",
			want: 1.0,
		},
		{
			name: "One empty",
			a:    "patient name",
			b:    "",
			want: 0.0,
		},
		{
			name: "Known distance",
			a:    "kitten",
			b:    "sitting",
			want: 1.0 - 3.0/7.0,
		},
		{
			name: "Clinical typo stays above default threshold",
			a:    "pateint name",
			b:    "patient name",
			want: 1.0 - 2.0/12.0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Similarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("Similarity(%q, %q) = %f, want %f", tt.a, tt.b, got, tt.want)
			}
		})
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	pairs := [][2]string{
		{"patient name", "pateint name"},
		{"nhs number", "nhs no"},
		{"discharge date", "date of discharge"},
	}

	for _, pair := range pairs {
		ab := Similarity(pair[0], pair[1])
		ba := Similarity(pair[1], pair[0])
		if ab != ba {
			t.Errorf("Similarity(%q, %q) = %f but reversed = %f", pair[0], pair[1], ab, ba)
		}
	}
}

func TestSimilarity_Bounded(t *testing.T) {
	pairs := [][2]string{
		{"a", "completely different string"},
		{"falls risk", "falls risk factors"},
		{"x", "y"},
		{"", "anything"},
	}

	for _, pair := range pairs {
		got := Similarity(pair[0], pair[1])
		if got < 0.0 || got > 1.0 {
			t.Errorf("Similarity(%q, %q) = %f, outside [0,1]", pair[0], pair[1], got)
		}
	}
}

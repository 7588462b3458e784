package main

import (
	"reflect"
	"strings"
	"testing"
)

// TestClassify tests keyword classification
func TestClassify(t *testing.T) {
	tests := []struct {
		name         string
		query        string
		wantCategory string
		wantIDs      []string
		confidence   float64
	}{
		{
			name:         "code",
			query:        "Write a function to sort an array",
			wantCategory: "code",
			wantIDs:      []string{"architect", "pragmatist", "skeptic", "scholar"},
			confidence:   1,
		},
		{
			name:         "general when nothing matches",
			query:        "Hello there",
			wantCategory: GeneralCategory,
			wantIDs:      []string{"architect", "skeptic", "visionary", "pragmatist"},
			confidence:   0,
		},
		{
			name:         "tie goes to the earlier category",
			query:        "Write a story about a database",
			wantCategory: "code",
			wantIDs:      []string{"architect", "pragmatist", "skeptic", "scholar"},
			confidence:   0.5,
		},
		{
			name:         "substring matches count",
			query:        "What is the capital of France?",
			wantCategory: "code",
			wantIDs:      []string{"architect", "pragmatist", "skeptic", "scholar"},
			confidence:   1,
		},
		{
			name:         "confidence is share of all matches",
			query:        "Prove this theorem about probability and fair coins",
			wantCategory: "math",
			wantIDs:      []string{"scholar", "skeptic", "architect", "pragmatist"},
			confidence:   0.75,
		},
		{
			name:         "case insensitive",
			query:        "SHOULD I tell my friend? Is it MORAL?",
			wantCategory: "ethics",
			wantIDs:      []string{"humanist", "skeptic", "scholar", "visionary"},
			confidence:   1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(tt.query)

			if got.Category != tt.wantCategory {
				t.Errorf("Category = %q, want %q (scores %v)", got.Category, tt.wantCategory, got.Scores)
			}
			if !reflect.DeepEqual(got.SelectedArchetypeIDs, tt.wantIDs) {
				t.Errorf("SelectedArchetypeIDs = %v, want %v", got.SelectedArchetypeIDs, tt.wantIDs)
			}
			if got.Confidence != tt.confidence {
				t.Errorf("Confidence = %v, want %v", got.Confidence, tt.confidence)
			}
			if got.Reasoning == "" {
				t.Error("Reasoning should not be empty")
			}
		})
	}
}

// TestClassifyDeterminism checks repeated calls agree
func TestClassifyDeterminism(t *testing.T) {
	first := Classify("Write a function to sort an array")
	for i := 0; i < 100; i++ {
		got := Classify("Write a function to sort an array")
		if got.Category != "code" || len(got.SelectedArchetypeIDs) != 4 {
			t.Fatalf("Iteration %d: %+v", i, got)
		}
		if !reflect.DeepEqual(got, first) {
			t.Fatalf("Iteration %d differs: %+v vs %+v", i, got, first)
		}
	}
}

// TestClassifyReturnsFreshSlices checks callers cannot corrupt the tables
func TestClassifyReturnsFreshSlices(t *testing.T) {
	for _, query := range []string{"Write a function", "Hello there"} {
		got := Classify(query)
		got.SelectedArchetypeIDs[0] = "mutated"

		again := Classify(query)
		if again.SelectedArchetypeIDs[0] == "mutated" {
			t.Errorf("%q: selection shares memory with the category table", query)
		}
	}
}

// TestGetSpecializedPrompts tests template selection and fallbacks
func TestGetSpecializedPrompts(t *testing.T) {
	t.Run("every category covers its own archetypes", func(t *testing.T) {
		for _, rule := range categoryTable {
			prompts := GetSpecializedPrompts(rule.name, rule.archetypes[:])
			for _, id := range rule.archetypes {
				if prompts[id] != specializedPrompts[rule.name][id] || prompts[id] == "" {
					t.Errorf("%s/%s: missing template", rule.name, id)
				}
			}
		}
		prompts := GetSpecializedPrompts(GeneralCategory, generalArchetypes[:])
		if len(prompts) != 4 {
			t.Errorf("General prompts = %d, want 4", len(prompts))
		}
	})

	t.Run("missing archetype borrows the first one's template", func(t *testing.T) {
		prompts := GetSpecializedPrompts("code", []string{"architect", "humanist"})
		if prompts["humanist"] != specializedPrompts["code"]["architect"] {
			t.Errorf("humanist prompt = %q", prompts["humanist"])
		}
	})

	t.Run("unknown category uses general templates", func(t *testing.T) {
		prompts := GetSpecializedPrompts("astrology", []string{"skeptic"})
		if prompts["skeptic"] != specializedPrompts[GeneralCategory]["skeptic"] {
			t.Errorf("skeptic prompt = %q", prompts["skeptic"])
		}
	})

	t.Run("no template at all", func(t *testing.T) {
		prompts := GetSpecializedPrompts("code", []string{"ghost", "spirit"})
		for _, id := range []string{"ghost", "spirit"} {
			if !strings.Contains(prompts[id], "code task") {
				t.Errorf("%s prompt = %q", id, prompts[id])
			}
		}
	})

	t.Run("empty selection", func(t *testing.T) {
		if prompts := GetSpecializedPrompts("code", nil); len(prompts) != 0 {
			t.Errorf("Expected no prompts, got %v", prompts)
		}
	})
}

package main

import (
	"fmt"
	"strings"
)

// GeneralCategory is chosen when no category keyword matches.
const GeneralCategory = "general"

// Classification is the outcome of keyword classification.
type Classification struct {
	Category             string         `json:"category"`
	Confidence           float64        `json:"confidence"`
	Reasoning            string         `json:"reasoning"`
	SelectedArchetypeIDs []string       `json:"selected_archetype_ids"`
	Scores               map[string]int `json:"scores"`
}

type categoryRule struct {
	name       string
	keywords   []string
	archetypes [4]string
}

// categoryTable order matters: ties go to the earlier entry.
// Keywords match as plain substrings of the lowercased query, so short ones
// like "api" also hit "capital". That is intended.
var categoryTable = []categoryRule{
	{
		name: "code",
		keywords: []string{
			"code", "function", "bug", "debug", "compile", "algorithm", "array",
			"api", "database", "sql", "python", "javascript", "golang", "refactor",
			"sort", "program", "script", "regex", "deploy",
		},
		archetypes: [4]string{"architect", "pragmatist", "skeptic", "scholar"},
	},
	{
		name: "math",
		keywords: []string{
			"math", "equation", "calculate", "proof", "prove", "integral",
			"derivative", "probability", "statistic", "algebra", "geometry", "theorem",
		},
		archetypes: [4]string{"scholar", "skeptic", "architect", "pragmatist"},
	},
	{
		name: "science",
		keywords: []string{
			"science", "physics", "chemistry", "biology", "experiment", "hypothesis",
			"molecule", "quantum", "climate", "evolution", "research",
		},
		archetypes: [4]string{"scholar", "skeptic", "visionary", "architect"},
	},
	{
		name: "creative",
		keywords: []string{
			"story", "poem", "novel", "creative", "fiction", "character", "lyrics",
			"screenplay", "imagine", "brainstorm", "slogan",
		},
		archetypes: [4]string{"visionary", "humanist", "pragmatist", "skeptic"},
	},
	{
		name: "business",
		keywords: []string{
			"business", "startup", "market", "revenue", "profit", "strategy",
			"customer", "pricing", "invest", "sales", "product", "competitor",
		},
		archetypes: [4]string{"pragmatist", "architect", "visionary", "skeptic"},
	},
	{
		name: "ethics",
		keywords: []string{
			"ethic", "moral", "should i", "right or wrong", "fair", "justice",
			"privacy", "consent", "harm", "responsib",
		},
		archetypes: [4]string{"humanist", "skeptic", "scholar", "visionary"},
	},
}

var generalArchetypes = [4]string{"architect", "skeptic", "visionary", "pragmatist"}

// Classify maps a query to a task category and the four archetypes that
// should answer it. It is a pure function of the query.
func Classify(query string) Classification {
	lower := strings.ToLower(query)

	scores := make(map[string]int, len(categoryTable))
	matched := make(map[string][]string, len(categoryTable))
	total := 0
	for _, rule := range categoryTable {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				scores[rule.name]++
				matched[rule.name] = append(matched[rule.name], kw)
			}
		}
		total += scores[rule.name]
	}

	best := -1
	bestScore := 0
	for i, rule := range categoryTable {
		if scores[rule.name] > bestScore {
			best = i
			bestScore = scores[rule.name]
		}
	}

	if best < 0 {
		selected := make([]string, len(generalArchetypes))
		copy(selected, generalArchetypes[:])
		return Classification{
			Category:             GeneralCategory,
			Confidence:           0,
			Reasoning:            "No category keywords matched; convening the general council.",
			SelectedArchetypeIDs: selected,
			Scores:               scores,
		}
	}

	rule := categoryTable[best]
	selected := make([]string, len(rule.archetypes))
	copy(selected, rule.archetypes[:])

	return Classification{
		Category:   rule.name,
		Confidence: float64(bestScore) / float64(total),
		Reasoning: fmt.Sprintf("Matched %d %s keyword(s): %s.",
			bestScore, rule.name, strings.Join(matched[rule.name], ", ")),
		SelectedArchetypeIDs: selected,
		Scores:               scores,
	}
}

// GetSpecializedPrompts returns the instruction each archetype receives for
// a category. An archetype with no template borrows the first requested
// archetype's template; an unknown category uses the general templates.
func GetSpecializedPrompts(category string, archetypeIDs []string) map[string]string {
	templates, ok := specializedPrompts[category]
	if !ok {
		category = GeneralCategory
		templates = specializedPrompts[GeneralCategory]
	}

	prompts := make(map[string]string, len(archetypeIDs))
	for _, id := range archetypeIDs {
		if t, ok := templates[id]; ok {
			prompts[id] = t
			continue
		}
		if t, ok := templates[archetypeIDs[0]]; ok {
			prompts[id] = t
			continue
		}
		prompts[id] = fmt.Sprintf("Treat this as a %s task and answer from your own perspective.", category)
	}
	return prompts
}

var specializedPrompts = map[string]map[string]string{
	"code": {
		"architect":  "Propose the overall design first: module boundaries, data structures and interfaces. Then give the implementation.",
		"pragmatist": "Give the simplest working implementation. Name the exact commands or steps to run it.",
		"skeptic":    "Find the edge cases, off-by-one risks and failure modes. Show the inputs that would break a naive solution.",
		"scholar":    "State the algorithm by name, its time and space complexity, and why it is correct.",
	},
	"math": {
		"scholar":    "Give a rigorous derivation with every step justified.",
		"skeptic":    "Check the problem statement for hidden assumptions and verify the final answer independently.",
		"architect":  "Structure the solution: restate the problem, plan the approach, then execute it.",
		"pragmatist": "Give the final numeric or symbolic answer up front, then the shortest path to it.",
	},
	"science": {
		"scholar":   "Explain the established consensus and cite the underlying principles.",
		"skeptic":   "Separate what is well evidenced from what is speculative or contested.",
		"visionary": "Describe where the frontier is and which open questions matter most.",
		"architect": "Build a clear causal model of the phenomenon from first principles.",
	},
	"creative": {
		"visionary":  "Take the most original angle you can defend. Surprise the reader.",
		"humanist":   "Make it emotionally true. Focus on the people or characters and what they feel.",
		"pragmatist": "Deliver a polished piece that fits the requested form and length exactly.",
		"skeptic":    "Avoid cliche. Point out which obvious choices you rejected and why.",
	},
	"business": {
		"pragmatist": "Recommend concrete next steps with owners, costs and a timeline.",
		"architect":  "Lay out the business model and how its parts depend on each other.",
		"visionary":  "Identify the non-obvious opportunity or market shift others overlook.",
		"skeptic":    "Stress-test the plan: list the assumptions most likely to be wrong and what happens if they are.",
	},
	"ethics": {
		"humanist":  "Centre the people affected and the harms and benefits to each.",
		"skeptic":   "Challenge the framing of the question and expose motivated reasoning.",
		"scholar":   "Apply at least two established ethical frameworks and compare their conclusions.",
		"visionary": "Consider the long-term and systemic consequences of each option.",
	},
	GeneralCategory: {
		"architect":  "Organise the answer into a clear structure before filling in details.",
		"skeptic":    "Question the premise and flag anything uncertain.",
		"visionary":  "Offer at least one perspective the user probably has not considered.",
		"pragmatist": "Make the answer actionable and concise.",
	},
}

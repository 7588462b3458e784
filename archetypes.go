package main

import (
	"fmt"
)

// CouncilMember describes one archetype seat on the council.
type CouncilMember struct {
	ID           string `yaml:"id" json:"id"`
	Name         string `yaml:"name" json:"name"`
	Model        string `yaml:"model" json:"model"`
	Bias         string `yaml:"bias" json:"bias"`
	ChairmanLens string `yaml:"chairman_lens" json:"chairman_lens"`
}

// MaxRosterSize is the number of distinct response labels.
const MaxRosterSize = 26

// Roster is the immutable set of council members, in declaration order.
type Roster struct {
	members []CouncilMember
	byID    map[string]int
	byModel map[string]int
}

// NewRoster indexes members by id and by model. Ids and models must be unique.
func NewRoster(members []CouncilMember) (*Roster, error) {
	if len(members) == 0 {
		return nil, fmt.Errorf("roster has no members")
	}
	// Anonymized labels run from "Response A" to "Response Z"
	if len(members) > MaxRosterSize {
		return nil, fmt.Errorf("roster has %d members, at most %d are supported", len(members), MaxRosterSize)
	}

	r := &Roster{
		members: make([]CouncilMember, len(members)),
		byID:    make(map[string]int, len(members)),
		byModel: make(map[string]int, len(members)),
	}
	copy(r.members, members)

	for i, m := range r.members {
		if m.ID == "" || m.Model == "" {
			return nil, fmt.Errorf("member %d needs both id and model", i)
		}
		if _, dup := r.byID[m.ID]; dup {
			return nil, fmt.Errorf("duplicate member id %q", m.ID)
		}
		if _, dup := r.byModel[m.Model]; dup {
			return nil, fmt.Errorf("model %q is assigned to more than one member", m.Model)
		}
		if r.members[i].Name == "" {
			r.members[i].Name = m.ID
		}
		r.byID[m.ID] = i
		r.byModel[m.Model] = i
	}
	return r, nil
}

// GetCouncilMember looks up a member by archetype id.
func (r *Roster) GetCouncilMember(id string) (CouncilMember, bool) {
	i, ok := r.byID[id]
	if !ok {
		return CouncilMember{}, false
	}
	return r.members[i], true
}

// GetAllCouncilMemberIDs returns every archetype id in roster order.
func (r *Roster) GetAllCouncilMemberIDs() []string {
	ids := make([]string, len(r.members))
	for i, m := range r.members {
		ids[i] = m.ID
	}
	return ids
}

// GetModelIDFromMemberID returns the backing model of an archetype, or "".
func (r *Roster) GetModelIDFromMemberID(id string) string {
	if m, ok := r.GetCouncilMember(id); ok {
		return m.Model
	}
	return ""
}

// GetMemberIDFromModelID returns the archetype seated on a model, or "".
func (r *Roster) GetMemberIDFromModelID(model string) string {
	if i, ok := r.byModel[model]; ok {
		return r.members[i].ID
	}
	return ""
}

// Members returns a copy of the roster.
func (r *Roster) Members() []CouncilMember {
	out := make([]CouncilMember, len(r.members))
	copy(out, r.members)
	return out
}

// Models returns every backing model in roster order.
func (r *Roster) Models() []string {
	models := make([]string, len(r.members))
	for i, m := range r.members {
		models[i] = m.Model
	}
	return models
}

// DefaultRoster is the council seated when council.yaml lists no members.
func DefaultRoster() *Roster {
	r, err := NewRoster(defaultMembers)
	if err != nil {
		panic(err) // static table
	}
	return r
}

var defaultMembers = []CouncilMember{
	{
		ID:           "architect",
		Name:         "The Architect",
		Model:        "openai/gpt-5.1",
		Bias:         "You think in systems. You favour clean structure, explicit trade-offs and designs that survive growth. You distrust clever shortcuts.",
		ChairmanLens: "Weigh each answer by how well its structure would hold up if the problem doubled in size.",
	},
	{
		ID:           "skeptic",
		Name:         "The Skeptic",
		Model:        "anthropic/claude-sonnet-4.5",
		Bias:         "You assume every claim is wrong until shown otherwise. You hunt for hidden assumptions, missing evidence and failure modes.",
		ChairmanLens: "Prefer the claims that survived the harshest scrutiny; call out anything the council asserted without support.",
	},
	{
		ID:           "visionary",
		Name:         "The Visionary",
		Model:        "google/gemini-3-pro-preview",
		Bias:         "You look past the obvious answer. You propose bold reframings and second-order ideas others will miss.",
		ChairmanLens: "Reward answers that open new possibilities, but only where the idea is actually reachable.",
	},
	{
		ID:           "pragmatist",
		Name:         "The Pragmatist",
		Model:        "x-ai/grok-4",
		Bias:         "You care about what works today with the resources at hand. You cut scope, name concrete steps and ignore theory that does not change the outcome.",
		ChairmanLens: "Judge every recommendation by whether the user could act on it tomorrow morning.",
	},
	{
		ID:           "scholar",
		Name:         "The Scholar",
		Model:        "deepseek/deepseek-chat-v3.1",
		Bias:         "You ground every answer in established knowledge, precise definitions and cited reasoning. You show your derivations.",
		ChairmanLens: "Favour the answer whose reasoning is most rigorous and whose facts are most precisely stated.",
	},
	{
		ID:           "humanist",
		Name:         "The Humanist",
		Model:        "meta-llama/llama-4-maverick",
		Bias:         "You centre the people affected. You weigh ethics, fairness, emotion and how an answer will land with a real person.",
		ChairmanLens: "Ask who is helped and who is harmed by each answer, and let that tip close calls.",
	},
}

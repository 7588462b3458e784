package main

import (
	"context"
	"fmt"
	"log"
	"math"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// RankScope decides which models vote in stage 2.
type RankScope string

const (
	// RankParticipants asks the models that were invited to stage 1.
	RankParticipants RankScope = "participants"
	// RankCouncil asks every model on the roster.
	RankCouncil RankScope = "council"
)

// ParseRankingScope validates a scope name from configuration.
func ParseRankingScope(s string) (RankScope, error) {
	switch RankScope(strings.ToLower(strings.TrimSpace(s))) {
	case RankParticipants:
		return RankParticipants, nil
	case RankCouncil:
		return RankCouncil, nil
	}
	return "", fmt.Errorf("unknown ranking scope %q (want %q or %q)", s, RankParticipants, RankCouncil)
}

// Call priorities on the request queue.
const (
	PriorityTitle        = -10
	PriorityDeliberation = 0
	PriorityChairman     = 10
)

// Stage3ErrorResponse is the chairman sentinel when synthesis fails.
const Stage3ErrorResponse = "Error: Unable to generate final synthesis."

// NoResponsesMessage is the stage 3 text of a run where nobody answered.
const NoResponsesMessage = "All council members failed to respond. Please try again."

// DefaultTitle is used whenever title generation fails.
const DefaultTitle = "New Conversation"

// Council runs the three-stage deliberation against a roster.
type Council struct {
	Client            ModelQuerier
	Roster            *Roster
	ChairmanModel     string
	TitleModel        string
	RankingScope      RankScope
	StructuredVerdict bool
	// Events receives every event of every run; may be nil.
	Events EventSink
}

// NewCouncil builds a council from the loaded configuration.
func NewCouncil(client ModelQuerier, roster *Roster) *Council {
	return &Council{
		Client:            client,
		Roster:            roster,
		ChairmanModel:     ChairmanModel,
		TitleModel:        TitleModel,
		RankingScope:      RankingScope,
		StructuredVerdict: StructuredVerdict,
	}
}

// RunOptions tunes a single run.
type RunOptions struct {
	// ChairmanID seats an archetype as chairman; empty uses ChairmanModel.
	ChairmanID string
	// Dispatch classifies the query and scopes the run to four archetypes.
	Dispatch bool
	// Brief is a precomputed dispatch brief; it wins over Dispatch.
	Brief *DispatchBrief
	// Events receives this run's events in addition to Council.Events.
	Events EventSink
}

type participant struct {
	member      CouncilMember
	instruction string
}

type chairmanSeat struct {
	model string
	name  string
	lens  string
}

// ExecuteCouncil runs the whole protocol. Naming a chairman archetype also
// runs the dispatch phase, so the four best-suited archetypes deliberate.
// The only error returned is a configuration failure; every other problem
// is reported inside the result.
func (c *Council) ExecuteCouncil(ctx context.Context, userQuery string, chairmanID string) (*CouncilResult, error) {
	return c.Run(ctx, userQuery, RunOptions{
		ChairmanID: chairmanID,
		Dispatch:   chairmanID != "",
	})
}

// Run executes dispatch (optional), collection, ranking and synthesis.
func (c *Council) Run(ctx context.Context, userQuery string, opts RunOptions) (*CouncilResult, error) {
	if cc, ok := c.Client.(configChecker); ok {
		if err := cc.CheckConfig(); err != nil {
			return nil, err
		}
	}

	runID := uuid.NewString()
	emit := func(event CouncilEvent) {
		event.RunID = runID
		event.Timestamp = time.Now().UTC()
		EventSinks{c.Events, opts.Events}.Publish(event)
	}

	brief := opts.Brief
	if brief == nil && opts.Dispatch {
		brief = c.DispatchPhase(userQuery, opts.ChairmanID)
	}
	if brief != nil {
		emit(CouncilEvent{Type: EventDispatchComplete, Data: brief})
	}

	// Stage 1
	emit(CouncilEvent{Type: EventStage1Start})
	stage1Results := c.Stage1CollectResponses(ctx, userQuery, brief)
	emit(CouncilEvent{Type: EventStage1Complete, Data: stage1Results})

	// If no models responded successfully there is nothing to rank
	if len(stage1Results) == 0 {
		log.Printf("Run %s: all council models failed to respond", runID)
		result := noResponsesResult(runID)
		emit(CouncilEvent{Type: EventError, Message: NoResponsesMessage})
		return result, nil
	}

	// Stage 2
	emit(CouncilEvent{Type: EventStage2Start})
	stage2Results, labelToModel := c.Stage2CollectRankings(ctx, userQuery, stage1Results, c.voters(brief))
	aggregateRankings := CalculateAggregateRankings(stage2Results, labelToModel)
	metadata := Metadata{
		LabelToModel:      labelToModel,
		AggregateRankings: aggregateRankings,
		Dispatch:          brief,
	}
	emit(CouncilEvent{Type: EventStage2Complete, Data: stage2Results, Metadata: metadata})

	// Stage 3
	chairman := c.resolveChairman(opts.ChairmanID)
	metadata.Chairman = chairman.model
	emit(CouncilEvent{Type: EventStage3Start})
	stage3Result := c.stage3(ctx, userQuery, stage1Results, stage2Results, chairman)
	emit(CouncilEvent{Type: EventStage3Complete, Data: stage3Result})

	result := &CouncilResult{
		RunID:    runID,
		Stage1:   stage1Results,
		Stage2:   stage2Results,
		Stage3:   stage3Result,
		Metadata: metadata,
	}
	emit(CouncilEvent{Type: EventComplete})
	return result, nil
}

func noResponsesResult(runID string) *CouncilResult {
	return &CouncilResult{
		RunID:  runID,
		Stage1: []Stage1Result{},
		Stage2: []Stage2Result{},
		Stage3: Stage3Result{
			Model:    ErrorModel,
			Response: NoResponsesMessage,
		},
		Metadata: Metadata{
			LabelToModel:      LabelIndex{},
			AggregateRankings: []AggregateRanking{},
		},
	}
}

// DispatchPhase classifies the query and turns the result into a brief
// naming four archetypes and what each of them should focus on.
func (c *Council) DispatchPhase(userQuery string, chairmanID string) *DispatchBrief {
	classification := Classify(userQuery)
	assignments := GetSpecializedPrompts(classification.Category, classification.SelectedArchetypeIDs)

	names := make([]string, len(classification.SelectedArchetypeIDs))
	for i, id := range classification.SelectedArchetypeIDs {
		names[i] = c.memberName(id)
	}

	strategy := fmt.Sprintf("Classified as %s (confidence %.2f). %s Convening %s.",
		classification.Category, classification.Confidence, classification.Reasoning,
		strings.Join(names, ", "))
	if chairmanID != "" {
		strategy += fmt.Sprintf(" %s presides.", c.memberName(chairmanID))
	}

	return &DispatchBrief{
		TaskCategory:         classification.Category,
		Confidence:           classification.Confidence,
		DispatchStrategy:     strategy,
		SelectedArchetypeIDs: classification.SelectedArchetypeIDs,
		Assignments:          assignments,
	}
}

func (c *Council) memberName(id string) string {
	if m, ok := c.Roster.GetCouncilMember(id); ok {
		return m.Name
	}
	return id
}

// participants resolves who answers in stage 1: the brief's archetypes, or
// the full roster without a brief.
func (c *Council) participants(brief *DispatchBrief) []participant {
	if brief == nil {
		members := c.Roster.Members()
		out := make([]participant, len(members))
		for i, m := range members {
			out[i] = participant{member: m}
		}
		return out
	}

	out := make([]participant, 0, len(brief.SelectedArchetypeIDs))
	for _, id := range brief.SelectedArchetypeIDs {
		m, ok := c.Roster.GetCouncilMember(id)
		if !ok {
			log.Printf("Dispatch selected unknown archetype %q, skipping", id)
			continue
		}
		out = append(out, participant{member: m, instruction: brief.Assignments[id]})
	}
	return out
}

func (c *Council) voters(brief *DispatchBrief) []string {
	if c.RankingScope == RankCouncil {
		return c.Roster.Models()
	}
	ps := c.participants(brief)
	models := make([]string, len(ps))
	for i, p := range ps {
		models[i] = p.member.Model
	}
	return models
}

func (c *Council) resolveChairman(chairmanID string) chairmanSeat {
	if chairmanID != "" {
		if m, ok := c.Roster.GetCouncilMember(chairmanID); ok {
			return chairmanSeat{model: m.Model, name: m.Name, lens: m.ChairmanLens}
		}
		log.Printf("Unknown chairman archetype %q, using %s", chairmanID, c.ChairmanModel)
	}
	return chairmanSeat{model: c.ChairmanModel}
}

func buildStage1Messages(p participant, userQuery string) []OpenRouterMessage {
	var system strings.Builder
	fmt.Fprintf(&system, "You are %s, a member of an LLM council answering a user's question.\n\n%s",
		p.member.Name, p.member.Bias)
	if p.instruction != "" {
		fmt.Fprintf(&system, "\n\n---\nSpecial Brief for this task:\n%s\n---", p.instruction)
	}

	return []OpenRouterMessage{
		{Role: "system", Content: system.String()},
		{Role: "user", Content: userQuery},
	}
}

// Stage1CollectResponses asks every participant for an independent answer
// and waits for all of them. Failed participants are left out; results keep
// participant order.
func (c *Council) Stage1CollectResponses(ctx context.Context, userQuery string, brief *DispatchBrief) []Stage1Result {
	participants := c.participants(brief)

	calls := make([]ModelCall, len(participants))
	for i, p := range participants {
		calls[i] = ModelCall{Model: p.member.Model, Messages: buildStage1Messages(p, userQuery)}
	}

	responses := QueryModelsParallel(ctx, c.Client, calls, QueryOptions{
		Timeout:   ModelQueryTimeout,
		MaxTokens: DeliberationMaxTokens,
		Priority:  PriorityDeliberation,
	})

	// Format results - only include successful responses
	stage1Results := make([]Stage1Result, 0, len(participants))
	for _, p := range participants {
		response := responses[p.member.Model]
		if response == nil {
			continue
		}
		stage1Results = append(stage1Results, Stage1Result{
			Model:             p.member.Model,
			ArchetypeID:       p.member.ID,
			ArchetypeName:     p.member.Name,
			Response:          response.Content,
			SecretInstruction: p.instruction,
		})
	}

	log.Printf("Stage 1: %d/%d council members responded", len(stage1Results), len(participants))
	return stage1Results
}

// ResponseLabel returns the anonymized label of the i-th stage 1 result.
func ResponseLabel(i int) string {
	return fmt.Sprintf("Response %c", rune('A'+i))
}

// BuildLabelIndex labels stage 1 results A, B, C... in slice order.
func BuildLabelIndex(stage1Results []Stage1Result) LabelIndex {
	index := make(LabelIndex, len(stage1Results))
	for i, result := range stage1Results {
		index[ResponseLabel(i)] = result.Model
	}
	return index
}

func buildRankingPrompt(userQuery string, stage1Results []Stage1Result) string {
	var responsesText strings.Builder
	for i, result := range stage1Results {
		fmt.Fprintf(&responsesText, "%s:\n%s\n\n", ResponseLabel(i), result.Response)
	}

	return fmt.Sprintf(`You are evaluating different responses to the following question:

Question: %s

Here are the responses from different models (anonymized):

%s

Your task:
1. First, evaluate each response individually. For each response, explain what it does well and what it does poorly.
2. Then, at the very end of your response, provide a final ranking.

IMPORTANT: Your final ranking MUST be formatted EXACTLY as follows:
- Start with the line "FINAL RANKING:" (all caps, with colon)
- Then list the responses from best to worst as a numbered list
- Each line should be: number, period, space, then ONLY the response label (e.g., "1. Response A")
- Do not add any other text or explanations in the ranking section

Example of the correct format for your ENTIRE response:

Response A provides good detail on X but misses Y...
Response B is accurate but lacks depth on Z...
Response C offers the most comprehensive answer...

FINAL RANKING:
1. Response C
2. Response A
3. Response B

Now provide your evaluation and ranking:`, userQuery, responsesText.String())
}

// Stage2CollectRankings sends the anonymized stage 1 answers to every voter
// and parses each returned ranking. Voters that fail are left out.
func (c *Council) Stage2CollectRankings(ctx context.Context, userQuery string, stage1Results []Stage1Result, voters []string) ([]Stage2Result, LabelIndex) {
	labelToModel := BuildLabelIndex(stage1Results)

	messages := []OpenRouterMessage{
		{Role: "user", Content: buildRankingPrompt(userQuery, stage1Results)},
	}

	responses := QueryModelsSame(ctx, c.Client, voters, messages, QueryOptions{
		Timeout:   ModelQueryTimeout,
		MaxTokens: DeliberationMaxTokens,
		Priority:  PriorityDeliberation,
	})

	stage2Results := make([]Stage2Result, 0, len(voters))
	for _, model := range voters {
		response := responses[model]
		if response == nil {
			continue
		}
		stage2Results = append(stage2Results, Stage2Result{
			Model:         model,
			Ranking:       response.Content,
			ParsedRanking: ParseRankingFromText(response.Content),
		})
	}

	log.Printf("Stage 2: %d/%d rankings collected", len(stage2Results), len(voters))
	return stage2Results, labelToModel
}

// CalculateAggregateRankings averages the 1-based position each model's
// label received across all rankings. Unknown labels are ignored, repeated
// labels count every time, and models nobody ranked are left out. Sorted by
// average rank (lower is better), then model name.
func CalculateAggregateRankings(stage2Results []Stage2Result, labelToModel LabelIndex) []AggregateRanking {
	modelPositions := make(map[string][]int)

	for _, ranking := range stage2Results {
		for position, label := range ranking.ParsedRanking {
			if modelName, ok := labelToModel[label]; ok {
				modelPositions[modelName] = append(modelPositions[modelName], position+1)
			}
		}
	}

	aggregate := make([]AggregateRanking, 0, len(modelPositions))
	for model, positions := range modelPositions {
		sum := 0
		for _, pos := range positions {
			sum += pos
		}
		avgRank := float64(sum) / float64(len(positions))

		aggregate = append(aggregate, AggregateRanking{
			Model:         model,
			AverageRank:   math.Round(avgRank*100) / 100,
			RankingsCount: len(positions),
		})
	}

	sort.Slice(aggregate, func(i, j int) bool {
		if aggregate[i].AverageRank != aggregate[j].AverageRank {
			return aggregate[i].AverageRank < aggregate[j].AverageRank
		}
		return aggregate[i].Model < aggregate[j].Model
	})

	return aggregate
}

const verdictInstructions = `

Respond with ONLY a JSON object of this exact shape:
{
  "conflict_level": "Low" or "High",
  "primary_conflict": "the main point the council disagreed on",
  "evolution_logic": "how the council's position evolved from the answers through the rankings",
  "final_verdict_markdown": "your final answer to the user, in markdown",
  "weighing_of_souls": {"<member name>": "how much weight you gave this member and why"}
}`

func buildChairmanPrompt(userQuery string, stage1Results []Stage1Result, stage2Results []Stage2Result, chairman chairmanSeat, structured bool) string {
	var stage1Text strings.Builder
	for _, result := range stage1Results {
		if result.ArchetypeName != "" {
			fmt.Fprintf(&stage1Text, "Model: %s (%s)\nResponse: %s\n\n", result.Model, result.ArchetypeName, result.Response)
		} else {
			fmt.Fprintf(&stage1Text, "Model: %s\nResponse: %s\n\n", result.Model, result.Response)
		}
	}

	var stage2Text strings.Builder
	for _, result := range stage2Results {
		fmt.Fprintf(&stage2Text, "Model: %s\nRanking: %s\n\n", result.Model, result.Ranking)
	}

	role := "the Chairman"
	if chairman.name != "" {
		role = fmt.Sprintf("%s, acting as Chairman", chairman.name)
	}

	var prompt strings.Builder
	fmt.Fprintf(&prompt, `You are %s of an LLM Council. Multiple AI models have provided responses to a user's question, and then ranked each other's responses.

Original Question: %s

STAGE 1 - Individual Responses:
%s

STAGE 2 - Peer Rankings:
%s

Your task as Chairman is to synthesize all of this information into a single, comprehensive, accurate answer to the user's original question. Consider:
- The individual responses and their insights
- The peer rankings and what they reveal about response quality
- Any patterns of agreement or disagreement`, role, userQuery, stage1Text.String(), stage2Text.String())

	if chairman.lens != "" {
		fmt.Fprintf(&prompt, "\n\nYour lens as Chairman: %s", chairman.lens)
	}

	if structured {
		prompt.WriteString(verdictInstructions)
	} else {
		prompt.WriteString("\n\nProvide a clear, well-reasoned final answer that represents the council's collective wisdom:")
	}
	return prompt.String()
}

// Stage3SynthesizeFinal asks the default chairman model for the final answer.
func (c *Council) Stage3SynthesizeFinal(ctx context.Context, userQuery string, stage1Results []Stage1Result, stage2Results []Stage2Result) Stage3Result {
	return c.stage3(ctx, userQuery, stage1Results, stage2Results, chairmanSeat{model: c.ChairmanModel})
}

// stage3 makes the single chairman call. A failed call yields the error
// sentinel instead of an error.
func (c *Council) stage3(ctx context.Context, userQuery string, stage1Results []Stage1Result, stage2Results []Stage2Result, chairman chairmanSeat) Stage3Result {
	messages := []OpenRouterMessage{
		{Role: "user", Content: buildChairmanPrompt(userQuery, stage1Results, stage2Results, chairman, c.StructuredVerdict)},
	}

	response, err := c.Client.QueryModel(ctx, chairman.model, messages, QueryOptions{
		Timeout:   ModelQueryTimeout,
		MaxTokens: DeliberationMaxTokens,
		Priority:  PriorityChairman,
	})
	if err != nil {
		log.Printf("Chairman model %s failed: %v", chairman.model, err)
		return Stage3Result{
			Model:    chairman.model,
			Response: Stage3ErrorResponse,
		}
	}

	result := Stage3Result{
		Model:    chairman.model,
		Response: response.Content,
	}
	if c.StructuredVerdict {
		if verdict := ParseVerdictJSON(response.Content); verdict != nil {
			result.Verdict = verdict
			result.Response = verdict.FinalVerdictMarkdown
		} else {
			log.Printf("Chairman %s returned no parsable verdict, keeping raw text", chairman.model)
		}
	}
	return result
}

// GenerateConversationTitle asks a fast model for a 3-5 word title. It never
// fails: any problem yields DefaultTitle.
func (c *Council) GenerateConversationTitle(ctx context.Context, userQuery string) string {
	titlePrompt := fmt.Sprintf(`Generate a very short title (3-5 words maximum) that summarizes the following question.
The title should be concise and descriptive. Do not use quotes or punctuation in the title.

Question: %s

Title:`, userQuery)

	messages := []OpenRouterMessage{
		{Role: "user", Content: titlePrompt},
	}

	response, err := c.Client.QueryModel(ctx, c.TitleModel, messages, QueryOptions{
		Timeout:   TitleGenTimeout,
		MaxTokens: TitleMaxTokens,
		Priority:  PriorityTitle,
	})
	if err != nil {
		log.Printf("Title generation failed: %v", err)
		return DefaultTitle
	}

	title := strings.Trim(strings.TrimSpace(response.Content), "\"'")
	if title == "" {
		return DefaultTitle
	}
	return truncateTitle(title, 50)
}

func truncateTitle(title string, max int) string {
	if utf8.RuneCountInString(title) <= max {
		return title
	}
	runes := []rune(title)
	return string(runes[:max-3]) + "..."
}

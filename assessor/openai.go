package assessor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"github.com/agora-sim/agora/core"
)

// LLMConfig holds configuration for LLM interactions.
type LLMConfig struct {
	Model       string
	MaxTokens   int
	Temperature float32
}

// DefaultLLMConfig returns standard LLM configuration.
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Model:       openai.GPT4TurboPreview,
		MaxTokens:   300,
		Temperature: 0.7,
	}
}

// OpenAIAssessor backs the Assessor capability with OpenAI chat
// completions. One instance serves all agents; style differences are
// carried entirely through the prompts.
type OpenAIAssessor struct {
	client     *openai.Client
	cfg        LLMConfig
	researcher *Researcher // optional, enriches critiques with web context
}

// NewOpenAIAssessor creates an assessor from OPENAI_API_KEY.
func NewOpenAIAssessor(cfg LLMConfig) (*OpenAIAssessor, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	a := &OpenAIAssessor{client: openai.NewClient(apiKey), cfg: cfg}
	if os.Getenv("SERP_API_KEY") != "" {
		a.researcher = NewResearcher(a)
	} else {
		log.Println("Warning: SERP_API_KEY not set, web research disabled")
	}
	return a, nil
}

func (o *OpenAIAssessor) query(ctx context.Context, system, prompt string, maxTokens int) (string, int, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: o.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		MaxTokens:   maxTokens,
		Temperature: o.cfg.Temperature,
	})
	if err != nil {
		return "", 0, err
	}
	return resp.Choices[0].Message.Content, resp.Usage.TotalTokens, nil
}

func styleSystemPrompt(p core.AgentProfile) string {
	return fmt.Sprintf("You are %s, an ethicist with a %s communication style taking part in a group deliberation.", p.Name, p.Style)
}

func formatOptions(options []string) string {
	var b strings.Builder
	for i, opt := range options {
		fmt.Fprintf(&b, "%d. %s\n", i+1, opt)
	}
	return b.String()
}

// Assess privately evaluates the vignette for one agent.
func (o *OpenAIAssessor) Assess(ctx context.Context, v core.Vignette, p core.AgentProfile) (core.Assessment, error) {
	prompt := fmt.Sprintf(`Read this dilemma carefully and choose the most ethically sound option.

SCENARIO:
%s

OPTIONS:
%s
Your response MUST be valid JSON with exactly these fields:
{
    "option": "one of the exact options above",
    "rationale": "brief justification (2-3 sentences)",
    "confidence": 0.0 to 1.0
}`, v.Scenario, formatOptions(v.Options))

	response, _, err := o.query(ctx, styleSystemPrompt(p), prompt, o.cfg.MaxTokens)
	if err != nil {
		return core.Assessment{}, err
	}

	var parsed struct {
		Option     string  `json:"option"`
		Rationale  string  `json:"rationale"`
		Confidence float64 `json:"confidence"`
	}
	if err := json.Unmarshal([]byte(extractJSON(response)), &parsed); err != nil {
		return core.Assessment{}, fmt.Errorf("unparseable assessment: %w", err)
	}
	if parsed.Confidence < 0 {
		parsed.Confidence = 0
	}
	if parsed.Confidence > 1 {
		parsed.Confidence = 1
	}
	return core.Assessment{
		AgentID:    p.ID,
		VignetteID: v.ID,
		Option:     matchOption(parsed.Option, v.Options),
		Confidence: parsed.Confidence,
		Rationale:  parsed.Rationale,
	}, nil
}

// Propose crafts the public statement for the proposer's option.
func (o *OpenAIAssessor) Propose(ctx context.Context, v core.Vignette, p core.AgentProfile, a core.Assessment) (Message, error) {
	prompt := fmt.Sprintf(`You are presenting your assessment to a panel of ethicists.

SCENARIO:
%s

YOUR CHOICE: %s

YOUR REASONING: %s

Write a brief, compelling 2-3 sentence statement to convince the panel of your choice. Focus on the key ethical principles.`,
		v.Scenario, a.Option, a.Rationale)

	text, tokens, err := o.query(ctx, styleSystemPrompt(p), prompt, 100)
	if err != nil {
		return Message{}, err
	}
	return Message{Text: strings.TrimSpace(text), Tokens: tokens}, nil
}

// Critique optionally responds to the current proposal. Agents decline
// below their style's confidence threshold, mirroring how timid agents
// hold back and assertive ones speak up.
func (o *OpenAIAssessor) Critique(ctx context.Context, v core.Vignette, p core.AgentProfile, proposal string, a core.Assessment) (*Critique, error) {
	if a.Confidence < p.Style.InterventionThreshold() {
		return nil, nil
	}

	prompt := fmt.Sprintf(`You are critiquing a proposal in a group deliberation.

SCENARIO:
%s

THE PROPOSAL JUST MADE:
"%s"

YOUR PRIVATE ASSESSMENT:
- Choice: %s
- Reasoning: %s

Write a brief 1-2 sentence critique or refinement of the proposal. Be constructive but direct. Only write the critique itself, nothing else.`,
		v.Scenario, proposal, a.Option, a.Rationale)

	if o.researcher != nil {
		if findings := o.researcher.Findings(ctx, v.Category, p); findings != "" {
			prompt = findings + "\n\n" + prompt
		}
	}

	text, tokens, err := o.query(ctx, styleSystemPrompt(p), prompt, 80)
	if err != nil {
		return nil, err
	}

	c := &Critique{Text: strings.TrimSpace(text), Tokens: tokens}
	// An agent that disagrees with the proposal puts its own option on
	// the table as an alternative candidate.
	if a.Option != "" {
		c.Alternative = a.Option
	}
	return c, nil
}

// Vote picks one option from the round's candidate set.
func (o *OpenAIAssessor) Vote(ctx context.Context, v core.Vignette, p core.AgentProfile, candidates []string, a core.Assessment) (string, error) {
	// Vote own assessment when it survived to the candidate set;
	// otherwise ask for a pick among what is actually on the table.
	for _, c := range candidates {
		if c == a.Option {
			return a.Option, nil
		}
	}

	prompt := fmt.Sprintf(`The deliberation has narrowed the dilemma below to these candidates.

SCENARIO:
%s

CANDIDATES:
%s
Respond with the exact text of the single candidate you vote for, nothing else.`,
		v.Scenario, formatOptions(candidates))

	text, _, err := o.query(ctx, styleSystemPrompt(p), prompt, 60)
	if err != nil {
		return "", err
	}
	return matchOption(text, candidates), nil
}

// extractJSON pulls the first {...} object out of an LLM response that
// may carry prose around it.
func extractJSON(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return s
	}
	return s[start : end+1]
}

// matchOption normalizes an LLM's echo of an option back onto the
// canonical option text. Falls back to the raw reply trimmed.
func matchOption(reply string, options []string) string {
	cleaned := strings.TrimSpace(strings.Trim(strings.TrimSpace(reply), `"`))
	for _, opt := range options {
		if strings.EqualFold(cleaned, opt) {
			return opt
		}
	}
	for _, opt := range options {
		if strings.Contains(strings.ToLower(cleaned), strings.ToLower(opt)) {
			return opt
		}
	}
	return cleaned
}

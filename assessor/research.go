package assessor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/ericgreene/go-serp"

	"github.com/agora-sim/agora/core"
)

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Snippet string `json:"snippet"`
	Link    string `json:"link"`
}

// researchDecision is the LLM's call on whether web context would help.
type researchDecision struct {
	NeedsResearch bool     `json:"needs_research"`
	SearchQueries []string `json:"search_queries"`
	Reasoning     string   `json:"reasoning"`
}

// SearchConfig holds configuration for web search.
type SearchConfig struct {
	MaxResults int
	SafeSearch bool
}

// DefaultSearchConfig returns standard search configuration.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{MaxResults: 5, SafeSearch: true}
}

// Researcher lets an agent pull in web findings before critiquing. The
// LLM first decides whether research is warranted for the vignette's
// topic, then the queries run through SerpAPI.
type Researcher struct {
	llm *OpenAIAssessor
	cfg SearchConfig
}

func NewResearcher(llm *OpenAIAssessor) *Researcher {
	return &Researcher{llm: llm, cfg: DefaultSearchConfig()}
}

// Findings returns a research preamble for the critique prompt, or ""
// when research is declined or fails. Research failures never block a
// critique.
func (r *Researcher) Findings(ctx context.Context, topic string, p core.AgentProfile) string {
	decision, err := r.decide(ctx, topic, p)
	if err != nil || !decision.NeedsResearch {
		return ""
	}

	var b strings.Builder
	b.WriteString("Relevant research findings:\n")
	found := false
	for _, query := range decision.SearchQueries {
		results, err := r.search(query)
		if err != nil {
			log.Printf("web search failed for %q: %v", query, err)
			continue
		}
		for _, res := range results {
			fmt.Fprintf(&b, "- %s\n  %s\n", res.Title, res.Snippet)
			found = true
		}
	}
	if !found {
		return ""
	}
	return b.String()
}

func (r *Researcher) decide(ctx context.Context, topic string, p core.AgentProfile) (*researchDecision, error) {
	prompt := fmt.Sprintf(`You are deliberating a dilemma in the area: "%s"

Decide if you need web research to contribute meaningfully.
Consider:
1. Is this within your area of expertise?
2. Would recent information help your analysis?
3. Are there specific facts you need to verify?

Return a JSON object with:
{
	"needs_research": boolean,
	"search_queries": ["query1", "query2"],
	"reasoning": "why you do or don't need research"
}`, topic)

	response, _, err := r.llm.query(ctx, styleSystemPrompt(p), prompt, 200)
	if err != nil {
		return nil, err
	}
	var decision researchDecision
	if err := json.Unmarshal([]byte(extractJSON(response)), &decision); err != nil {
		return nil, err
	}
	if len(decision.SearchQueries) > 3 {
		decision.SearchQueries = decision.SearchQueries[:3]
	}
	return &decision, nil
}

func (r *Researcher) search(query string) ([]SearchResult, error) {
	apiKey := os.Getenv("SERP_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("SERP_API_KEY not set")
	}

	parameter := map[string]string{
		"q":   query,
		"key": apiKey,
		"num": strconv.Itoa(r.cfg.MaxResults),
	}
	if r.cfg.SafeSearch {
		parameter["safe"] = "active"
	}

	queryResponse := serp.NewGoogleSearch(parameter)
	results, err := queryResponse.GetJSON()
	if err != nil {
		return nil, err
	}

	var out []SearchResult
	for _, result := range results.OrganicResults {
		out = append(out, SearchResult{
			Title:   result.Title,
			Snippet: result.Snippet,
			Link:    result.Link,
		})
	}
	return out, nil
}

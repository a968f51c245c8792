package builtin

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/openagentsinc/agentcore/internal/tooldispatch"
	"github.com/openagentsinc/agentcore/pkg/protocol"
)

// WebSearchTool queries the DuckDuckGo Instant Answer API, grounded on the
// teacher's websearch.WebSearchTool.searchDuckDuckGo, trimmed to a single
// backend (no SearXNG/Brave, no content-extraction or caching layer —
// those are separable concerns the Tool Dispatcher's spec doesn't call
// for beyond a bounded read-only web search).
type WebSearchTool struct {
	httpClient *http.Client
	maxResults int
}

func NewWebSearchTool() *WebSearchTool {
	return &WebSearchTool{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		maxResults: 10,
	}
}

func (t *WebSearchTool) Definition() tooldispatch.ToolDefinition {
	return tooldispatch.ToolDefinition{
		Name:        "web_search",
		Description: "Search the web for a query and return titles, URLs, and snippets.",
		Schema: mustSchema(map[string]interface{}{
			"type": "object",
			"properties": map[string]interface{}{
				"query":        map[string]interface{}{"type": "string"},
				"result_count": map[string]interface{}{"type": "integer", "minimum": 1, "maximum": 20},
			},
			"required": []string{"query"},
		}),
	}
}

type webSearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

func (t *WebSearchTool) Execute(ctx context.Context, args json.RawMessage, turn protocol.TurnContext) (tooldispatch.ToolOutput, error) {
	var input struct {
		Query       string `json:"query"`
		ResultCount int    `json:"result_count"`
	}
	if err := json.Unmarshal(args, &input); err != nil {
		return failureOutput(fmt.Sprintf("invalid parameters: %v", err)), nil
	}
	if strings.TrimSpace(input.Query) == "" {
		return failureOutput("query is required"), nil
	}
	limit := input.ResultCount
	if limit <= 0 {
		limit = 5
	}
	if limit > t.maxResults {
		limit = t.maxResults
	}

	instantURL := fmt.Sprintf("https://api.duckduckgo.com/?q=%s&format=json&no_html=1", url.QueryEscape(input.Query))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, instantURL, nil)
	if err != nil {
		return failureOutput(fmt.Sprintf("build request: %v", err)), nil
	}
	req.Header.Set("User-Agent", "Mozilla/5.0 (compatible; AgentcoreBot/1.0)")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return failureOutput(fmt.Sprintf("search request failed: %v", err)), nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return failureOutput(fmt.Sprintf("search backend returned status %d", resp.StatusCode)), nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return failureOutput(fmt.Sprintf("read response: %v", err)), nil
	}

	var ddg struct {
		AbstractText  string `json:"AbstractText"`
		AbstractURL   string `json:"AbstractURL"`
		Heading       string `json:"Heading"`
		RelatedTopics []struct {
			FirstURL string `json:"FirstURL"`
			Text     string `json:"Text"`
		} `json:"RelatedTopics"`
	}
	if err := json.Unmarshal(body, &ddg); err != nil {
		return failureOutput(fmt.Sprintf("parse response: %v", err)), nil
	}

	results := make([]webSearchResult, 0, limit)
	if ddg.AbstractText != "" && ddg.AbstractURL != "" {
		results = append(results, webSearchResult{Title: ddg.Heading, URL: ddg.AbstractURL, Snippet: ddg.AbstractText})
	}
	for _, topic := range ddg.RelatedTopics {
		if len(results) >= limit {
			break
		}
		if topic.FirstURL == "" || topic.Text == "" {
			continue
		}
		title := topic.Text
		if len(title) > 100 {
			title = title[:100]
		}
		results = append(results, webSearchResult{Title: title, URL: topic.FirstURL, Snippet: topic.Text})
	}

	payload, _ := json.MarshalIndent(map[string]interface{}{
		"query":   input.Query,
		"results": results,
	}, "", "  ")
	return successOutput(string(payload)), nil
}

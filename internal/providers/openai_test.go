package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func completionResponse(content string) string {
	escaped := strings.ReplaceAll(content, `"`, `\"`)
	escaped = strings.ReplaceAll(escaped, "\n", `\n`)
	return fmt.Sprintf(`{
		"id": "chatcmpl-test",
		"object": "chat.completion",
		"choices": [{"index": 0, "message": {"role": "assistant", "content": "%s"}, "finish_reason": "stop"}]
	}`, escaped)
}

func TestAnalyzeWithoutKey(t *testing.T) {
	analyzer := NewOpenAIAnalyzer("", "", "gpt-4")
	analysis := analyzer.Analyze(context.Background(), "ocean acidification")

	if analysis.Summary == "" {
		t.Error("fallback analysis must carry a summary")
	}
	if !strings.Contains(analysis.Summary, "ocean acidification") {
		t.Errorf("fallback summary should mention the query: %q", analysis.Summary)
	}
	if len(analysis.Insights) == 0 || len(analysis.Trends) == 0 {
		t.Error("fallback analysis must carry insights and trends")
	}
}

func TestAnalyzeStructuredReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/chat/completions" {
			t.Errorf("unexpected path: %q", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionResponse(`{"summary": "Carbon capture is maturing fast.", "insights": ["Costs are falling"], "trends": ["Direct air capture pilots"]}`))
	}))
	defer server.Close()

	analyzer := NewOpenAIAnalyzer("sk-test", server.URL, "gpt-4")
	analysis := analyzer.Analyze(context.Background(), "carbon capture")

	if analysis.Summary != "Carbon capture is maturing fast." {
		t.Errorf("unexpected summary: %q", analysis.Summary)
	}
	if len(analysis.Insights) != 1 || analysis.Insights[0] != "Costs are falling" {
		t.Errorf("unexpected insights: %v", analysis.Insights)
	}
	if len(analysis.Trends) != 1 {
		t.Errorf("unexpected trends: %v", analysis.Trends)
	}
}

func TestAnalyzeProseReply(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, completionResponse("Plain prose answer without any JSON structure."))
	}))
	defer server.Close()

	analyzer := NewOpenAIAnalyzer("sk-test", server.URL, "gpt-4")
	analysis := analyzer.Analyze(context.Background(), "prose reply probe")

	if analysis.Summary != "Plain prose answer without any JSON structure." {
		t.Errorf("prose reply should become the summary: %q", analysis.Summary)
	}
	if len(analysis.Insights) == 0 || len(analysis.Trends) == 0 {
		t.Error("prose reply must still carry canned insights and trends")
	}
}

func TestAnalyzeServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	analyzer := NewOpenAIAnalyzer("sk-test", server.URL, "gpt-4")
	analysis := analyzer.Analyze(context.Background(), "server error probe")

	if analysis.Summary == "" {
		t.Error("analysis must degrade to fallback on server error")
	}
}

func TestParseAnalysisFillsMissingStructure(t *testing.T) {
	analysis := parseAnalysis(`{"summary": "Only a summary here."}`)
	if analysis.Summary != "Only a summary here." {
		t.Errorf("unexpected summary: %q", analysis.Summary)
	}
	if len(analysis.Insights) == 0 {
		t.Error("missing insights should be backfilled")
	}
	if len(analysis.Trends) == 0 {
		t.Error("missing trends should be backfilled")
	}
}

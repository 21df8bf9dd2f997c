package providers

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"deepresearch/internal/models"
)

const summaryCharBudget = 200

var (
	arxivTitleRe   = regexp.MustCompile(`(?s)<title>(.*?)</title>`)
	arxivSummaryRe = regexp.MustCompile(`(?s)<summary>(.*?)</summary>`)
	arxivIDRe      = regexp.MustCompile(`<id>(.*?)</id>`)
	whitespaceRe   = regexp.MustCompile(`\n\s+`)
)

// ArxivProvider queries the arXiv Atom export API for academic papers.
type ArxivProvider struct {
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
	cacheTTL time.Duration
}

// NewArxivProvider creates the academic search adapter.
func NewArxivProvider(baseURL string, timeout, cacheTTL time.Duration) *ArxivProvider {
	return &ArxivProvider{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client:   newHTTPClient(timeout),
		limiter:  rate.NewLimiter(rate.Limit(1), 2), // arXiv asks for no more than 1 req/s
		cacheTTL: cacheTTL,
	}
}

func (p *ArxivProvider) Name() string     { return "arXiv" }
func (p *ArxivProvider) Category() string { return models.SourceTypeAcademic }

// FetchSources returns up to maxResults normalized paper records.
// All failures degrade to an empty result.
func (p *ArxivProvider) FetchSources(ctx context.Context, query string, maxResults int) []models.SourceRecord {
	if cached, found := cachedSources(p.Name(), query); found {
		return cached
	}

	papers, err := p.fetch(ctx, query, maxResults)
	if err != nil {
		log.Printf("❌ [ARXIV] Fetch failed for '%s': %v", query, err)
		return nil
	}

	if len(papers) > 0 {
		cacheSources(p.Name(), query, papers, p.cacheTTL)
	}
	log.Printf("📚 [ARXIV] Found %d papers for '%s'", len(papers), query)
	return papers
}

func (p *ArxivProvider) fetch(ctx context.Context, query string, maxResults int) ([]models.SourceRecord, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqURL := fmt.Sprintf("%s/api/query?search_query=all:%s&start=0&max_results=%d",
		p.baseURL, url.QueryEscape(query), maxResults)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("arxiv returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	return parseArxivFeed(string(body), maxResults), nil
}

// parseArxivFeed extracts paper records from an Atom document with tolerant
// pattern matching. Entries missing a title or summary are dropped silently;
// embedded newline runs are collapsed to single spaces and summaries are
// truncated to a fixed character budget.
func parseArxivFeed(feed string, maxResults int) []models.SourceRecord {
	var papers []models.SourceRecord

	entries := strings.Split(feed, "<entry>")
	if len(entries) < 2 {
		return nil
	}

	for _, entry := range entries[1:] {
		if len(papers) >= maxResults {
			break
		}

		titleMatch := arxivTitleRe.FindStringSubmatch(entry)
		summaryMatch := arxivSummaryRe.FindStringSubmatch(entry)
		if titleMatch == nil || summaryMatch == nil {
			continue
		}

		link := "#"
		if idMatch := arxivIDRe.FindStringSubmatch(entry); idMatch != nil {
			link = strings.TrimSpace(idMatch[1])
		}

		papers = append(papers, models.SourceRecord{
			Title:   collapseWhitespace(titleMatch[1]),
			Summary: truncateSummary(collapseWhitespace(summaryMatch[1]), summaryCharBudget),
			URL:     link,
			Source:  "arXiv",
			Type:    models.SourceTypeAcademic,
		})
	}

	return papers
}

func collapseWhitespace(s string) string {
	return whitespaceRe.ReplaceAllString(strings.TrimSpace(s), " ")
}

func truncateSummary(s string, budget int) string {
	if len(s) <= budget {
		return s + "..."
	}
	return s[:budget] + "..."
}

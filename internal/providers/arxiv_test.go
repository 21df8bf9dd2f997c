package providers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const sampleArxivFeed = `<?xml version="1.0" encoding="UTF-8"?>
<feed xmlns="http://www.w3.org/2005/Atom">
  <title>ArXiv Query Results</title>
  <entry>
    <id>http://arxiv.org/abs/2301.00001v1</id>
    <title>Quantum Error
      Correction at Scale</title>
    <summary>We present a new approach to quantum error correction
      that scales to thousands of qubits with modest overhead.</summary>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2301.00002v1</id>
    <title>Surface Codes Revisited</title>
    <summary>A survey of surface code decoders.</summary>
  </entry>
</feed>`

func TestParseArxivFeed(t *testing.T) {
	papers := parseArxivFeed(sampleArxivFeed, 5)

	if len(papers) != 2 {
		t.Fatalf("expected 2 papers, got %d", len(papers))
	}

	first := papers[0]
	if first.Title != "Quantum Error Correction at Scale" {
		t.Errorf("newline run not collapsed in title: %q", first.Title)
	}
	if !strings.HasSuffix(first.Summary, "...") {
		t.Errorf("summary missing ellipsis: %q", first.Summary)
	}
	if strings.Contains(first.Summary, "\n") {
		t.Errorf("summary contains raw newline: %q", first.Summary)
	}
	if first.URL != "http://arxiv.org/abs/2301.00001v1" {
		t.Errorf("unexpected URL: %q", first.URL)
	}
	if first.Source != "arXiv" || first.Type != "academic" {
		t.Errorf("unexpected attribution: source=%q type=%q", first.Source, first.Type)
	}
}

func TestParseArxivFeedRespectsMaxResults(t *testing.T) {
	papers := parseArxivFeed(sampleArxivFeed, 1)
	if len(papers) != 1 {
		t.Fatalf("expected 1 paper, got %d", len(papers))
	}
}

func TestParseArxivFeedSkipsIncompleteEntries(t *testing.T) {
	feed := `<feed>
  <entry>
    <id>http://arxiv.org/abs/1</id>
    <title>Only A Title</title>
  </entry>
  <entry>
    <id>http://arxiv.org/abs/2</id>
    <title>Complete Entry</title>
    <summary>Has everything.</summary>
  </entry>
</feed>`

	papers := parseArxivFeed(feed, 5)
	if len(papers) != 1 {
		t.Fatalf("expected 1 paper, got %d", len(papers))
	}
	if papers[0].Title != "Complete Entry" {
		t.Errorf("wrong entry kept: %q", papers[0].Title)
	}
}

func TestParseArxivFeedMissingID(t *testing.T) {
	feed := `<feed><entry><title>No Link</title><summary>Still usable.</summary></entry></feed>`

	papers := parseArxivFeed(feed, 5)
	if len(papers) != 1 {
		t.Fatalf("expected 1 paper, got %d", len(papers))
	}
	if papers[0].URL != "#" {
		t.Errorf("expected placeholder link, got %q", papers[0].URL)
	}
}

func TestParseArxivFeedEmptyDocument(t *testing.T) {
	if papers := parseArxivFeed("", 5); papers != nil {
		t.Errorf("expected nil for empty feed, got %v", papers)
	}
	if papers := parseArxivFeed("<html>not a feed</html>", 5); papers != nil {
		t.Errorf("expected nil for non-Atom payload, got %v", papers)
	}
}

func TestTruncateSummary(t *testing.T) {
	long := strings.Repeat("a", 300)
	got := truncateSummary(long, 200)
	if len(got) != 203 {
		t.Errorf("expected 203 chars, got %d", len(got))
	}

	short := truncateSummary("brief", 200)
	if short != "brief..." {
		t.Errorf("expected ellipsis on short summary, got %q", short)
	}
}

func TestArxivFetchSources(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("search_query"); got != "all:quantum computing hardware" {
			t.Errorf("unexpected search_query: %q", got)
		}
		w.Write([]byte(sampleArxivFeed))
	}))
	defer server.Close()

	provider := NewArxivProvider(server.URL, 5*time.Second, time.Minute)
	papers := provider.FetchSources(context.Background(), "quantum computing hardware", 5)

	if len(papers) != 2 {
		t.Fatalf("expected 2 papers, got %d", len(papers))
	}
}

func TestArxivFetchSourcesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	provider := NewArxivProvider(server.URL, 5*time.Second, time.Minute)
	papers := provider.FetchSources(context.Background(), "arxiv 500 path", 5)

	if papers != nil {
		t.Errorf("expected nil on server error, got %v", papers)
	}
}

func TestArxivFetchSourcesUnreachable(t *testing.T) {
	provider := NewArxivProvider("http://127.0.0.1:1", time.Second, time.Minute)
	papers := provider.FetchSources(context.Background(), "arxiv unreachable path", 5)

	if papers != nil {
		t.Errorf("expected nil on connection failure, got %v", papers)
	}
}

func TestArxivFetchSourcesCachesResults(t *testing.T) {
	calls := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Write([]byte(sampleArxivFeed))
	}))
	defer server.Close()

	provider := NewArxivProvider(server.URL, 5*time.Second, time.Minute)
	provider.FetchSources(context.Background(), "arxiv cache probe", 5)
	provider.FetchSources(context.Background(), "arxiv cache probe", 5)

	if calls != 1 {
		t.Errorf("expected 1 upstream call, got %d", calls)
	}
}

package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"deepresearch/internal/models"
	"deepresearch/internal/providers"
	"deepresearch/internal/services"
)

type fixedAnalyzer struct{}

func (fixedAnalyzer) Name() string { return "fixed-analyzer" }
func (fixedAnalyzer) Analyze(ctx context.Context, query string) models.Analysis {
	return models.Analysis{Summary: "handler test analysis", Insights: []string{"one"}, Trends: []string{"two"}}
}

type fixedSource struct {
	name     string
	category string
	titles   []string
}

func (s fixedSource) Name() string     { return s.name }
func (s fixedSource) Category() string { return s.category }
func (s fixedSource) FetchSources(ctx context.Context, query string, maxResults int) []models.SourceRecord {
	records := make([]models.SourceRecord, 0, len(s.titles))
	for _, title := range s.titles {
		records = append(records, models.SourceRecord{Title: title, Source: s.name, Type: s.category})
	}
	return records
}

func newTestApp(t *testing.T) (*fiber.App, *services.ResearchService, *services.ResearchTracker) {
	t.Helper()

	engine := services.NewEngine(
		fixedAnalyzer{},
		fixedSource{name: "academic", category: models.SourceTypeAcademic, titles: []string{"paper"}},
		fixedSource{name: "news", category: models.SourceTypeNews, titles: []string{"article"}},
		fixedSource{name: "reference", category: models.SourceTypeReference, titles: []string{"summary"}},
		[]providers.ImageProvider{},
		nil,
		5, 2,
	)
	store := services.NewMemorySessionStore()
	tracker := services.NewResearchTracker()
	research := services.NewResearchService(store, engine, tracker, 5*time.Second)

	app := fiber.New()
	handler := NewResearchHandler(research)
	app.Post("/api/research", handler.Create)
	app.Get("/api/research", handler.List)
	app.Get("/api/research/:sessionId", handler.Get)

	return app, research, tracker
}

func decodeBody(t *testing.T, resp *http.Response) map[string]interface{} {
	t.Helper()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read body: %v", err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("failed to decode body %q: %v", body, err)
	}
	return decoded
}

func TestCreateResearchSession(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/research",
		strings.NewReader(`{"query": "solid state batteries"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusAccepted {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusAccepted)
	}

	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Error("expected success envelope")
	}
	data, ok := body["data"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing data envelope: %v", body)
	}
	if data["sessionId"] == "" || data["sessionId"] == nil {
		t.Error("response must carry a session ID")
	}
	if data["status"] != "running" {
		t.Errorf("status = %v, want running", data["status"])
	}
}

func TestCreateResearchSessionEmptyQuery(t *testing.T) {
	app, _, _ := newTestApp(t)

	for _, payload := range []string{`{"query": ""}`, `{"query": "   "}`, `{}`} {
		req := httptest.NewRequest(http.MethodPost, "/api/research", strings.NewReader(payload))
		req.Header.Set("Content-Type", "application/json")

		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusBadRequest {
			t.Errorf("payload %s: status = %d, want %d", payload, resp.StatusCode, fiber.StatusBadRequest)
		}

		body := decodeBody(t, resp)
		if body["success"] != false {
			t.Errorf("payload %s: expected failure envelope", payload)
		}
	}
}

func TestGetResearchSessionNotFound(t *testing.T) {
	app, _, _ := newTestApp(t)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/research/does-not-exist", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusNotFound {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusNotFound)
	}

	body := decodeBody(t, resp)
	errEnvelope, ok := body["error"].(map[string]interface{})
	if !ok {
		t.Fatalf("missing error envelope: %v", body)
	}
	if errEnvelope["message"] != "Research session not found" {
		t.Errorf("unexpected message: %v", errEnvelope["message"])
	}
}

func TestPollResearchSessionUntilComplete(t *testing.T) {
	app, _, _ := newTestApp(t)

	req := httptest.NewRequest(http.MethodPost, "/api/research",
		strings.NewReader(`{"query": "polling lifecycle"}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	data := decodeBody(t, resp)["data"].(map[string]interface{})
	sessionID := data["sessionId"].(string)

	var session map[string]interface{}
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/research/"+sessionID, nil))
		if err != nil {
			t.Fatalf("poll failed: %v", err)
		}
		if resp.StatusCode != fiber.StatusOK {
			t.Fatalf("poll status = %d, want %d", resp.StatusCode, fiber.StatusOK)
		}
		session = decodeBody(t, resp)["data"].(map[string]interface{})
		if session["status"] == "completed" || session["status"] == "failed" {
			break
		}
		time.Sleep(20 * time.Millisecond)
	}

	if session["status"] != "completed" {
		t.Fatalf("final status = %v, want completed", session["status"])
	}
	result, ok := session["result"].(map[string]interface{})
	if !ok {
		t.Fatal("completed session must carry its result")
	}
	if result["summary"] != "handler test analysis" {
		t.Errorf("unexpected summary: %v", result["summary"])
	}
	sources, ok := result["sources"].([]interface{})
	if !ok || len(sources) != 3 {
		t.Errorf("expected 3 merged sources, got %v", result["sources"])
	}

	// Polling a terminal session again returns the identical state.
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/api/research/"+sessionID, nil))
	if err != nil {
		t.Fatalf("repoll failed: %v", err)
	}
	again := decodeBody(t, resp)["data"].(map[string]interface{})
	if again["status"] != "completed" {
		t.Errorf("terminal status must be stable, got %v", again["status"])
	}
}

func TestListResearchSessions(t *testing.T) {
	app, research, _ := newTestApp(t)

	if _, err := research.StartResearch("list entry one", nil); err != nil {
		t.Fatalf("StartResearch failed: %v", err)
	}
	if _, err := research.StartResearch("list entry two", nil); err != nil {
		t.Fatalf("StartResearch failed: %v", err)
	}

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/research", nil))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusOK {
		t.Fatalf("status = %d, want %d", resp.StatusCode, fiber.StatusOK)
	}

	body := decodeBody(t, resp)
	sessions, ok := body["data"].([]interface{})
	if !ok {
		t.Fatalf("missing data list: %v", body)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected 2 sessions, got %d", len(sessions))
	}
	for _, raw := range sessions {
		entry := raw.(map[string]interface{})
		if _, hasResult := entry["result"]; hasResult {
			t.Error("list entries must not carry result payloads")
		}
		if entry["query"] == "" {
			t.Error("list entries must carry the query")
		}
	}
}

func TestCreateResearchSessionWhileDraining(t *testing.T) {
	app, _, tracker := newTestApp(t)

	tracker.Drain(100 * time.Millisecond)

	req := httptest.NewRequest(http.MethodPost, "/api/research",
		strings.NewReader(`{"query": "too late"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	if resp.StatusCode != fiber.StatusServiceUnavailable {
		t.Errorf("status = %d, want %d", resp.StatusCode, fiber.StatusServiceUnavailable)
	}
}

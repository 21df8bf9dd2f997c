package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"deepresearch/internal/models"
)

// Stable Diffusion version pinned for research diagram generation.
const stableDiffusionVersion = "db21e45d3f7023abc2a46ee38a23973f6dce16bb082a930b0c49861f96d1e5bf"

const replicatePollInterval = time.Second

// ReplicateProvider generates one conceptual diagram image per research run
// through the Replicate predictions API.
type ReplicateProvider struct {
	apiToken string
	baseURL  string
	client   *http.Client
	limiter  *rate.Limiter
}

// NewReplicateProvider creates the AI image generation adapter.
// An empty apiToken disables the adapter without any network activity.
func NewReplicateProvider(apiToken, baseURL string, timeout time.Duration) *ReplicateProvider {
	return &ReplicateProvider{
		apiToken: apiToken,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client:   newHTTPClient(timeout),
		limiter:  rate.NewLimiter(rate.Limit(1), 1),
	}
}

func (p *ReplicateProvider) Name() string { return "Replicate AI" }

// Visualize submits a templated diagram prompt and polls the prediction until
// it settles. Returns nil on any failure or missing credential.
func (p *ReplicateProvider) Visualize(ctx context.Context, topic string) *models.ImageRecord {
	if p.apiToken == "" {
		slog.Debug("replicate adapter skipped: REPLICATE_API_TOKEN not set")
		return nil
	}

	record, err := p.generate(ctx, topic)
	if err != nil {
		log.Printf("❌ [REPLICATE] Generation failed for '%s': %v", topic, err)
		return nil
	}
	log.Printf("🎨 [REPLICATE] Generated visualization for '%s'", topic)
	return record
}

type replicatePrediction struct {
	ID     string   `json:"id"`
	Status string   `json:"status"`
	Output []string `json:"output"`
	Error  string   `json:"error"`
	URLs   struct {
		Get string `json:"get"`
	} `json:"urls"`
}

func (p *ReplicateProvider) generate(ctx context.Context, topic string) (*models.ImageRecord, error) {
	if err := p.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	reqBody := map[string]interface{}{
		"version": stableDiffusionVersion,
		"input": map[string]interface{}{
			"prompt":              fmt.Sprintf("Professional research diagram about %s, clean infographic style, educational, scientific illustration, high quality", topic),
			"negative_prompt":     "text, words, letters, low quality, blurry",
			"width":               768,
			"height":              512,
			"num_inference_steps": 20,
			"guidance_scale":      7.5,
		},
	}
	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.baseURL+"/v1/predictions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.apiToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("replicate returned status %d", resp.StatusCode)
	}

	prediction, err := decodePrediction(resp.Body)
	if err != nil {
		return nil, err
	}

	// Poll until the prediction settles or the context expires.
	for !predictionSettled(prediction.Status) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(replicatePollInterval):
		}

		prediction, err = p.poll(ctx, prediction.ID)
		if err != nil {
			return nil, err
		}
	}

	if prediction.Status != "succeeded" {
		return nil, fmt.Errorf("prediction %s: %s", prediction.Status, prediction.Error)
	}
	if len(prediction.Output) == 0 {
		return nil, fmt.Errorf("prediction succeeded with no output")
	}

	return &models.ImageRecord{
		URL:         prediction.Output[0],
		Description: fmt.Sprintf("AI-generated research visualization for %s", topic),
		Source:      "Replicate AI",
		Type:        models.ImageTypeAIGenerated,
	}, nil
}

func (p *ReplicateProvider) poll(ctx context.Context, id string) (*replicatePrediction, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.baseURL+"/v1/predictions/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create poll request: %w", err)
	}
	req.Header.Set("Authorization", "Token "+p.apiToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("poll request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("replicate poll returned status %d", resp.StatusCode)
	}

	return decodePrediction(resp.Body)
}

func decodePrediction(r io.Reader) (*replicatePrediction, error) {
	var prediction replicatePrediction
	if err := json.NewDecoder(r).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("failed to parse prediction: %w", err)
	}
	return &prediction, nil
}

func predictionSettled(status string) bool {
	switch status {
	case "succeeded", "failed", "canceled":
		return true
	}
	return false
}

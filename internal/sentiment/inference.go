package sentiment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"ytanalyzer/internal/emotionstore"
	"ytanalyzer/internal/retry"
	"ytanalyzer/internal/services"
)

const (
	defaultInferenceURL   = "https://api-inference.huggingface.co/models"
	defaultSentimentModel = "cardiffnlp/twitter-xlm-roberta-base-sentiment"
	defaultInferenceWait  = 30 * time.Second
)

// InferenceConfig captures the hosted text-classification endpoint.
type InferenceConfig struct {
	BaseURL        string
	Model          string
	Token          string
	TimeoutSeconds int
}

// InferenceModel calls a Hugging Face compatible text-classification API.
type InferenceModel struct {
	cfg        InferenceConfig
	httpClient *http.Client
	retry      retry.Policy
}

// InferenceOption customizes the model client.
type InferenceOption func(*InferenceModel)

// WithInferenceHTTPClient overrides the default HTTP client.
func WithInferenceHTTPClient(client *http.Client) InferenceOption {
	return func(m *InferenceModel) {
		if client != nil {
			m.httpClient = client
		}
	}
}

// WithInferenceRetry overrides the retry policy.
func WithInferenceRetry(policy retry.Policy) InferenceOption {
	return func(m *InferenceModel) {
		m.retry = policy
	}
}

// NewInferenceModel constructs the endpoint client.
func NewInferenceModel(cfg InferenceConfig, opts ...InferenceOption) *InferenceModel {
	timeout := defaultInferenceWait
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultInferenceURL
	}
	cfg.Model = strings.Trim(strings.TrimSpace(cfg.Model), "/")
	if cfg.Model == "" {
		cfg.Model = defaultSentimentModel
	}
	cfg.Token = strings.TrimSpace(cfg.Token)
	m := &InferenceModel{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		retry:      retry.Policy{Attempts: 3, BaseDelay: time.Second, MaxDelay: 20 * time.Second},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *InferenceModel) Name() string { return m.cfg.Model }

type inferenceRequest struct {
	Inputs  []string         `json:"inputs"`
	Options inferenceOptions `json:"options"`
}

type inferenceOptions struct {
	WaitForModel bool `json:"wait_for_model"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// Predict sends texts in one request and keeps the top label of each.
func (m *InferenceModel) Predict(ctx context.Context, texts []string) ([]Prediction, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	payload, err := json.Marshal(inferenceRequest{Inputs: texts, Options: inferenceOptions{WaitForModel: true}})
	if err != nil {
		return nil, fmt.Errorf("inference: encode body: %w", err)
	}
	var scores [][]labelScore
	err = m.retry.Do(ctx, "inference "+m.cfg.Model, func(ctx context.Context) error {
		var err error
		scores, err = m.send(ctx, payload, len(texts))
		return err
	})
	if err != nil {
		return nil, services.Wrap(services.ErrModelUnavailable, "analyzer", "predict", m.cfg.Model, err)
	}
	out := make([]Prediction, len(scores))
	for i, candidates := range scores {
		best := labelScore{Score: -1}
		for _, c := range candidates {
			if c.Score > best.Score {
				best = c
			}
		}
		emotion, ok := mapLabel(best.Label)
		if !ok {
			return nil, fmt.Errorf("inference: unknown label %q", best.Label)
		}
		out[i] = Prediction{Emotion: emotion, Confidence: best.Score}
	}
	return out, nil
}

func (m *InferenceModel) send(ctx context.Context, payload []byte, want int) ([][]labelScore, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.cfg.BaseURL+"/"+m.cfg.Model, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("inference: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if m.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+m.cfg.Token)
	}
	resp, err := m.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference: http error: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("inference: read body: %w", err)
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return nil, retry.NewStatusError("inference", resp, body, "")
	}
	return decodeScores(body, want)
}

// decodeScores accepts the batched [[...], ...] shape and, for a single
// input, the flat [...] shape.
func decodeScores(body []byte, want int) ([][]labelScore, error) {
	var batched [][]labelScore
	if err := json.Unmarshal(body, &batched); err == nil && len(batched) == want {
		return batched, nil
	}
	if want == 1 {
		var flat []labelScore
		if err := json.Unmarshal(body, &flat); err == nil && len(flat) > 0 {
			return [][]labelScore{flat}, nil
		}
	}
	if len(batched) > 0 && len(batched) != want {
		return nil, fmt.Errorf("inference: got %d results for %d inputs", len(batched), want)
	}
	return nil, errors.New("inference: unexpected response shape")
}

func mapLabel(label string) (emotionstore.EmotionType, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "label_0", "negative":
		return emotionstore.EmotionNegative, true
	case "label_1", "neutral":
		return emotionstore.EmotionNeutral, true
	case "label_2", "positive":
		return emotionstore.EmotionPositive, true
	}
	return "", false
}

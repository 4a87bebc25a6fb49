// Package predictor implements the learned-classifier side of the
// handover decision (spec C6): a stateless callable mapping a feature
// vector to a candidate target antenna and a confidence. Model loading,
// warm-up, caching, and version switching are collaborators' concerns —
// this package only defines the contract and an HTTP client for it.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nephio-oran-claude-agents/internal/domain"
)

// Prediction is the predictor's answer for one feature vector.
type Prediction struct {
	TargetAntenna string   `json:"target_antenna"`
	Confidence    float64  `json:"confidence"`
	QoSCompliance *float64 `json:"qos_compliance,omitempty"`
}

// Predictor maps a feature vector to a Prediction. Implementations must be
// safe for concurrent use by multiple UE workers.
type Predictor interface {
	Predict(ctx context.Context, fv domain.FeatureVector) (Prediction, error)
}

// HTTPPredictor calls a remote model-serving endpoint over HTTP, retrying
// once through an exponential backoff policy before the caller is expected
// to fall back to A3.
type HTTPPredictor struct {
	Endpoint   string
	HTTPClient *http.Client
	Logger     *slog.Logger
	MaxElapsed time.Duration
}

// NewHTTPPredictor constructs an HTTPPredictor with sensible retry bounds.
func NewHTTPPredictor(endpoint string, client *http.Client, logger *slog.Logger) *HTTPPredictor {
	if client == nil {
		client = &http.Client{Timeout: 2 * time.Second}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPPredictor{Endpoint: endpoint, HTTPClient: client, Logger: logger, MaxElapsed: 3 * time.Second}
}

// Predict posts fv to the configured endpoint and decodes a Prediction,
// retrying transient failures (network errors, 5xx) once via exponential
// backoff. A non-retryable 4xx response returns immediately.
func (p *HTTPPredictor) Predict(ctx context.Context, fv domain.FeatureVector) (Prediction, error) {
	body, err := json.Marshal(fv)
	if err != nil {
		return Prediction{}, fmt.Errorf("marshal feature vector: %w", err)
	}

	var out Prediction
	attempt := 0
	expBackoff := backoff.NewExponentialBackOff()
	expBackoff.InitialInterval = 200 * time.Millisecond
	expBackoff.MaxInterval = 1 * time.Second
	expBackoff.MaxElapsedTime = p.MaxElapsed

	retryErr := backoff.Retry(func() error {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := p.HTTPClient.Do(req)
		if err != nil {
			p.Logger.WarnContext(ctx, "predictor request failed", slog.Int("attempt", attempt), slog.String("error", err.Error()))
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 500 {
			return fmt.Errorf("predictor returned status %d", resp.StatusCode)
		}
		if resp.StatusCode >= 400 {
			raw, _ := io.ReadAll(resp.Body)
			return backoff.Permanent(fmt.Errorf("predictor rejected request: %d: %s", resp.StatusCode, string(raw)))
		}

		return json.NewDecoder(resp.Body).Decode(&out)
	}, backoff.WithMaxRetries(expBackoff, 1))

	if retryErr != nil {
		return Prediction{}, retryErr
	}
	return out, nil
}

// LocalFallback is a deterministic, dependency-free predictor used when no
// remote model endpoint is configured (e.g. local development, or as the
// engine's own fallback target before it reverts to A3). It proposes the
// strongest-RSRP neighbor other than the serving cell, at a fixed
// confidence; with no other neighbor it proposes the serving cell at
// confidence 1.0.
type LocalFallback struct {
	Confidence float64
}

// NewLocalFallback constructs a LocalFallback with a default confidence of
// 0.5 (deliberately below most adaptive thresholds, so it rarely overrides
// ping-pong suppression).
func NewLocalFallback() *LocalFallback {
	return &LocalFallback{Confidence: 0.5}
}

func (f *LocalFallback) Predict(_ context.Context, fv domain.FeatureVector) (Prediction, error) {
	best := ""
	bestRSRP := -1e18
	for _, m := range fv.NeighborRSRPDBm {
		if m.AntennaID == fv.ConnectedTo {
			continue
		}
		if m.ValueDB > bestRSRP {
			bestRSRP = m.ValueDB
			best = m.AntennaID
		}
	}
	if best == "" {
		return Prediction{TargetAntenna: fv.ConnectedTo, Confidence: 1.0}, nil
	}
	return Prediction{TargetAntenna: best, Confidence: f.Confidence}, nil
}

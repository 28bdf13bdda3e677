// Package nlp is the thin boundary to the external deep-analysis
// service. The service is treated as slow and unreliable: every call is
// timeout-bounded and failures degrade features instead of sessions.
package nlp

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/meetsense/coachd/internal/models"
)

// ErrUnavailable is returned for any transport, timeout or decode
// failure. Callers surface the feature as absent, never as fatal.
var ErrUnavailable = errors.New("nlp: service unavailable")

type Client struct {
	baseURL string
	c       *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{baseURL: baseURL, c: &http.Client{Timeout: timeout}}
}

type sentimentReq struct {
	Text string `json:"text"`
}

type sentimentResp struct {
	OverallSentiment string  `json:"overall_sentiment"`
	SentimentScore   float64 `json:"sentiment_score"`
	Confidence       float64 `json:"confidence"`
}

// AnalyzeSentiment scores one stretch of transcript text. Score is in
// [-1, 1], negative to positive.
func (cl *Client) AnalyzeSentiment(ctx context.Context, text string) (*models.SentimentResult, error) {
	if cl.baseURL == "" {
		return nil, ErrUnavailable
	}
	body, _ := json.Marshal(sentimentReq{Text: text})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cl.baseURL+"/api/v1/sentiment", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := cl.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %s", ErrUnavailable, resp.Status)
	}

	var out sentimentResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	return &models.SentimentResult{
		Score:      out.SentimentScore,
		Label:      out.OverallSentiment,
		Confidence: out.Confidence,
	}, nil
}

type suggestReq struct {
	SessionID string   `json:"sessionId"`
	Context   []string `json:"context"`
}

type suggestResp struct {
	Questions []string `json:"questions"`
}

// SuggestQuestions returns up to three follow-up questions derived from
// recent conversation context.
func (cl *Client) SuggestQuestions(ctx context.Context, sessionID string, recent []string) ([]string, error) {
	if cl.baseURL == "" {
		return nil, ErrUnavailable
	}
	body, _ := json.Marshal(suggestReq{SessionID: sessionID, Context: recent})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cl.baseURL+"/api/v1/suggestions", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := cl.c.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: status %s", ErrUnavailable, resp.Status)
	}

	var out suggestResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", ErrUnavailable, err)
	}
	if len(out.Questions) > 3 {
		out.Questions = out.Questions[:3]
	}
	return out.Questions, nil
}

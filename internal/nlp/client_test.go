package nlp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestAnalyzeSentiment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/sentiment" {
			t.Errorf("path = %s", r.URL.Path)
		}
		var req sentimentReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Text != "this is great" {
			t.Errorf("text = %q", req.Text)
		}
		json.NewEncoder(w).Encode(sentimentResp{
			OverallSentiment: "positive",
			SentimentScore:   0.8,
			Confidence:       0.9,
		})
	}))
	defer srv.Close()

	cl := NewClient(srv.URL, time.Second)
	res, err := cl.AnalyzeSentiment(context.Background(), "this is great")
	if err != nil {
		t.Fatalf("AnalyzeSentiment: %v", err)
	}
	if res.Label != "positive" || res.Score != 0.8 {
		t.Errorf("result = %+v", res)
	}
}

func TestAnalyzeSentiment_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cl := NewClient(srv.URL, time.Second)
	_, err := cl.AnalyzeSentiment(context.Background(), "text")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestAnalyzeSentiment_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	cl := NewClient(srv.URL, 20*time.Millisecond)
	_, err := cl.AnalyzeSentiment(context.Background(), "text")
	if !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestAnalyzeSentiment_NoBaseURL(t *testing.T) {
	cl := NewClient("", time.Second)
	if _, err := cl.AnalyzeSentiment(context.Background(), "text"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("err = %v, want ErrUnavailable", err)
	}
}

func TestSuggestQuestions_CapsAtThree(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v1/suggestions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(suggestResp{Questions: []string{"a?", "b?", "c?", "d?"}})
	}))
	defer srv.Close()

	cl := NewClient(srv.URL, time.Second)
	qs, err := cl.SuggestQuestions(context.Background(), "sess-1", []string{"recent line"})
	if err != nil {
		t.Fatalf("SuggestQuestions: %v", err)
	}
	if len(qs) != 3 {
		t.Errorf("len = %d, want 3", len(qs))
	}
}

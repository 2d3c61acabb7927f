package biz

import (
	"context"
	"sync"

	"github.com/kart-io/sentinel-rag/internal/rag/store"
	"github.com/kart-io/sentinel-rag/pkg/llm"
)

// recordingGenerator 记录收到的提示词, 返回固定答案。
type recordingGenerator struct {
	mu      sync.Mutex
	prompts []string
	answer  string
	usage   *llm.TokenUsage
	err     error
}

func (g *recordingGenerator) Name() string { return "recording" }

func (g *recordingGenerator) Generate(_ context.Context, prompt, _ string) (*llm.GenerateResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.prompts = append(g.prompts, prompt)
	if g.err != nil {
		return nil, g.err
	}
	return &llm.GenerateResponse{Content: g.answer, TokenUsage: g.usage}, nil
}

func (g *recordingGenerator) calls() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.prompts...)
}

// stubStore 返回预设结果的 DocumentStore。
type stubStore struct {
	matches []store.Match
	err     error
	calls   int
}

func (s *stubStore) Insert(context.Context, string, string) (string, error) {
	return "", nil
}

func (s *stubStore) NearestNeighbor(context.Context, string, int) ([]store.Match, error) {
	s.calls++
	return s.matches, s.err
}

func (s *stubStore) Count(context.Context) (int64, error) {
	return int64(len(s.matches)), s.err
}

func (s *stubStore) Close(context.Context) error { return nil }

func match(id, text string, score float32) store.Match {
	return store.Match{Document: store.Document{ID: id, Text: text}, Score: score}
}

package workflow

import (
	"context"
	"fmt"
	"sync"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// --- Mocks ---

type mockDecomposer struct {
	calls       int
	decomposeFn func(ctx context.Context, story string, panelCount int) ([]string, error)
}

func (m *mockDecomposer) Decompose(ctx context.Context, story string, panelCount int) ([]string, error) {
	m.calls++
	return m.decomposeFn(ctx, story, panelCount)
}

type mockSynthesizer struct {
	mu     sync.Mutex
	calls  []string
	failOn int // 1 始まり。0 なら失敗しない
}

func (m *mockSynthesizer) Synthesize(_ context.Context, description string, _ []domain.Character) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, description)
	if m.failOn > 0 && len(m.calls) == m.failOn {
		return "", fmt.Errorf("model refused panel %q", description)
	}
	return fmt.Sprintf("data:image/png;base64,%s", description), nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	states []domain.State
}

func (r *recordingPublisher) Publish(st domain.State) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.states = append(r.states, st)
}

func (r *recordingPublisher) Snapshots() []domain.State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]domain.State(nil), r.states...)
}

func fixedPanels(descs ...string) func(context.Context, string, int) ([]string, error) {
	return func(context.Context, string, int) ([]string, error) {
		return descs, nil
	}
}

package workflow

import (
	"context"
	"io"
	"testing"

	"github.com/shouni/go-comic-kit/pkg/config"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

type stubContentGenerator struct{}

func (stubContentGenerator) GenerateContent(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return &genai.GenerateContentResponse{}, nil
}

type stubPartsGenerator struct{}

func (stubPartsGenerator) GenerateWithParts(context.Context, string, []*genai.Part, gemini.GenerateOptions) (*gemini.Response, error) {
	return &gemini.Response{}, nil
}

// discardWriter は remoteio.OutputWriter のうち Write だけを実装するのだ。
type discardWriter struct {
	remoteio.OutputWriter
}

func (discardWriter) Write(_ context.Context, _ string, r io.Reader, _ string) error {
	_, err := io.Copy(io.Discard, r)
	return err
}

func TestNewWithClient(t *testing.T) {
	t.Run("クライアントなしはエラー", func(t *testing.T) {
		_, err := NewWithClient(config.DefaultConfig(), nil, stubPartsGenerator{})
		assert.Error(t, err)
		_, err = NewWithClient(config.DefaultConfig(), stubContentGenerator{}, nil)
		assert.Error(t, err)
	})

	t.Run("Orchestrator と PublishRunner を構築できる", func(t *testing.T) {
		m, err := NewWithClient(config.DefaultConfig(), stubContentGenerator{}, stubPartsGenerator{})
		require.NoError(t, err)

		orch, err := m.BuildOrchestrator()
		require.NoError(t, err)
		assert.NotNil(t, orch)

		pr, err := m.BuildPublishRunner(discardWriter{})
		require.NoError(t, err)
		assert.NotNil(t, pr)

		_, err = m.BuildPublishRunner(nil)
		assert.Error(t, err)
	})
}

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(context.Background(), config.NewConfig(""))
	assert.ErrorContains(t, err, "GEMINI_API_KEY")
}

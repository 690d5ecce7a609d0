package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/shouni/go-comic-kit/pkg/config"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/prompts"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newTestDecomposer(t *testing.T, ai ContentGenerator) *StoryDecomposer {
	t.Helper()
	pb, err := prompts.NewTextPromptBuilder()
	require.NoError(t, err)
	d, err := NewStoryDecomposer(config.DefaultConfig(), pb, ai)
	require.NoError(t, err)
	return d
}

func TestNewStoryDecomposer_RequiresDependencies(t *testing.T) {
	pb, err := prompts.NewTextPromptBuilder()
	require.NoError(t, err)

	_, err = NewStoryDecomposer(config.DefaultConfig(), nil, &mockContentGenerator{})
	assert.Error(t, err)
	_, err = NewStoryDecomposer(config.DefaultConfig(), pb, nil)
	assert.Error(t, err)
}

func TestStoryDecomposer_Decompose(t *testing.T) {
	ctx := context.Background()

	t.Run("正常系: JSON 応答をパースしてリクエスト内容を組み立てる", func(t *testing.T) {
		ai := &mockContentGenerator{generateFn: respondWith(textResponse(`{"panels":["a","b","c","d"]}`), nil)}
		d := newTestDecomposer(t, ai)

		panels, err := d.Decompose(ctx, "A cat finds a hat.", 4)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b", "c", "d"}, panels)

		require.Len(t, ai.calls, 1)
		call := ai.calls[0]
		assert.Equal(t, config.DefaultGeminiModel, call.model)
		require.Len(t, call.contents, 1)
		assert.Contains(t, call.contents[0].Parts[0].Text, `Story: "A cat finds a hat."`)
		assert.Equal(t, "application/json", call.config.ResponseMIMEType)
		require.NotNil(t, call.config.ResponseSchema)
		assert.Equal(t, genai.TypeArray, call.config.ResponseSchema.Properties["panels"].Type)
		assert.Equal(t, prompts.StorySystemInstruction, call.config.SystemInstruction.Parts[0].Text)
	})

	t.Run("コードフェンス付きの応答も受け付ける", func(t *testing.T) {
		ai := &mockContentGenerator{generateFn: respondWith(textResponse("```json\n{\"panels\": [\"x\", \"y\"]}\n```"), nil)}
		panels, err := newTestDecomposer(t, ai).Decompose(ctx, "story", 4)
		require.NoError(t, err)
		assert.Equal(t, []string{"x", "y"}, panels, "件数の不一致はそのまま採用する")
	})

	t.Run("0 以下のパネル数はデフォルトに読み替える", func(t *testing.T) {
		ai := &mockContentGenerator{generateFn: respondWith(textResponse(`{"panels":["a"]}`), nil)}
		_, err := newTestDecomposer(t, ai).Decompose(ctx, "story", 0)
		require.NoError(t, err)
		assert.Contains(t, ai.calls[0].contents[0].Parts[0].Text, "divide it into 4 concise")
	})

	failures := []struct {
		name string
		resp *genai.GenerateContentResponse
		err  error
	}{
		{"API エラー", nil, errors.New("network down")},
		{"空の応答", &genai.GenerateContentResponse{}, nil},
		{"不正な JSON", textResponse("not json at all"), nil},
		{"panels が空", textResponse(`{"panels":[]}`), nil},
		{"panels がない", textResponse(`{"items":["a"]}`), nil},
	}
	for _, tc := range failures {
		t.Run("異常系: "+tc.name, func(t *testing.T) {
			ai := &mockContentGenerator{generateFn: respondWith(tc.resp, tc.err)}
			_, err := newTestDecomposer(t, ai).Decompose(ctx, "story", 4)

			var de *domain.DecompositionError
			require.ErrorAs(t, err, &de)
			assert.Len(t, ai.calls, 1, "リトライしないこと")
		})
	}
}

func TestParsePanels_Fallbacks(t *testing.T) {
	panels, err := parsePanels(`Sure! Here you go: {"panels": ["one", "  ", "two"]} Enjoy.`)
	require.NoError(t, err)
	assert.Equal(t, []string{"one", "two"}, panels)
}

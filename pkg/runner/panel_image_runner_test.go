package runner

import (
	"context"
	"errors"
	"testing"

	"github.com/shouni/go-comic-kit/pkg/config"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/prompts"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func newTestSynthesizer(t *testing.T, ai PartsGenerator) *PanelImageSynthesizer {
	t.Helper()
	pb, err := prompts.NewTextPromptBuilder()
	require.NoError(t, err)
	s, err := NewPanelImageSynthesizer(config.DefaultConfig(), pb, ai)
	require.NoError(t, err)
	return s
}

func imageResponse(mimeType string, data []byte) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "Here is your panel"},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: data}},
				{InlineData: &genai.Blob{MIMEType: "image/jpeg", Data: []byte("second")}},
			}},
			FinishReason: genai.FinishReasonStop,
		}},
	}
}

func TestNewPanelImageSynthesizer_RequiresClient(t *testing.T) {
	pb, err := prompts.NewTextPromptBuilder()
	require.NoError(t, err)
	_, err = NewPanelImageSynthesizer(config.DefaultConfig(), pb, nil)
	assert.Error(t, err)
}

func TestPanelImageSynthesizer_Synthesize(t *testing.T) {
	ctx := context.Background()
	chars := []domain.Character{
		{ID: "1", Name: "Astro", Image: &domain.CharacterImage{Data: []byte("astro"), Base64: "YXN0cm8=", MIMEType: "image/png"}},
		{ID: "2", Name: "Ghost"},
		{ID: "3", Name: "Nova", Image: &domain.CharacterImage{Base64: "bm92YQ==", MIMEType: "image/webp"}},
	}

	t.Run("正常系: 参照画像とテキストを順に送り最初の画像を返す", func(t *testing.T) {
		ai := &mockPartsGenerator{generateFn: rawResponse(imageResponse("image/png", []byte("fake")), nil)}
		s := newTestSynthesizer(t, ai)

		uri, err := s.Synthesize(ctx, "They fly over the city", chars)
		require.NoError(t, err)
		assert.Equal(t, "data:image/png;base64,ZmFrZQ==", uri)

		require.Len(t, ai.calls, 1)
		call := ai.calls[0]
		assert.Equal(t, config.DefaultImageModel, call.model)

		parts := call.parts
		require.Len(t, parts, 3, "画像なしのキャラクターは除外される")
		assert.Equal(t, []byte("astro"), parts[0].InlineData.Data)
		assert.Equal(t, "image/webp", parts[1].InlineData.MIMEType)
		assert.Equal(t, []byte("nova"), parts[1].InlineData.Data)
		assert.Equal(t,
			`Create a vibrant comic book style image for a panel. Use the provided character(s), named Astro and Nova, in the scene. Panel Description: "They fly over the city"`,
			parts[2].Text)
	})

	failures := []struct {
		name string
		fn   func(context.Context, string, []*genai.Part, gemini.GenerateOptions) (*gemini.Response, error)
	}{
		{"API エラー", rawResponse(nil, errors.New("quota"))},
		{"応答なし", func(context.Context, string, []*genai.Part, gemini.GenerateOptions) (*gemini.Response, error) { return nil, nil }},
		{"RawResponse なし", rawResponse(nil, nil)},
		{"候補なし", rawResponse(&genai.GenerateContentResponse{}, nil)},
		{"テキストのみ", rawResponse(textResponse("I cannot draw that"), nil)},
		{"安全性ブロック", rawResponse(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}}, nil)},
	}
	for _, tc := range failures {
		t.Run("異常系: "+tc.name, func(t *testing.T) {
			ai := &mockPartsGenerator{generateFn: tc.fn}
			_, err := newTestSynthesizer(t, ai).Synthesize(ctx, "desc", chars)

			var se *domain.SynthesisError
			require.ErrorAs(t, err, &se)
		})
	}
}

func TestFirstImage_FinishReason(t *testing.T) {
	_, err := firstImage(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: genai.FinishReasonSafety}}})
	require.ErrorIs(t, err, errNoImage)
	assert.Contains(t, err.Error(), "SAFETY")

	for _, reason := range []genai.FinishReason{"", genai.FinishReasonUnspecified, genai.FinishReasonStop} {
		_, err := firstImage(&genai.GenerateContentResponse{Candidates: []*genai.Candidate{{FinishReason: reason}}})
		require.ErrorIs(t, err, errNoImage)
		assert.NotContains(t, err.Error(), "FinishReason", "理由 %q は付記しないのだ", reason)
	}
}

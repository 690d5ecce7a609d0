package runner

import (
	"context"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// --- Mocks ---

type generateCall struct {
	model    string
	contents []*genai.Content
	config   *genai.GenerateContentConfig
}

type mockContentGenerator struct {
	calls      []generateCall
	generateFn func(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

func (m *mockContentGenerator) GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	m.calls = append(m.calls, generateCall{model: model, contents: contents, config: config})
	if m.generateFn != nil {
		return m.generateFn(ctx, model, contents, config)
	}
	return nil, nil
}

func textResponse(text string) *genai.GenerateContentResponse {
	return &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{{Text: text}}},
		}},
	}
}

func respondWith(resp *genai.GenerateContentResponse, err error) func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	return func(context.Context, string, []*genai.Content, *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
		return resp, err
	}
}

type partsCall struct {
	model string
	parts []*genai.Part
	opts  gemini.GenerateOptions
}

type mockPartsGenerator struct {
	calls      []partsCall
	generateFn func(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
}

func (m *mockPartsGenerator) GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error) {
	m.calls = append(m.calls, partsCall{model: model, parts: parts, opts: opts})
	if m.generateFn != nil {
		return m.generateFn(ctx, model, parts, opts)
	}
	return nil, nil
}

// rawResponse は genai の応答を gemini.Response に包んで返す generateFn を作るのだ。
func rawResponse(resp *genai.GenerateContentResponse, err error) func(context.Context, string, []*genai.Part, gemini.GenerateOptions) (*gemini.Response, error) {
	return func(context.Context, string, []*genai.Part, gemini.GenerateOptions) (*gemini.Response, error) {
		if err != nil {
			return nil, err
		}
		return &gemini.Response{RawResponse: resp}, nil
	}
}

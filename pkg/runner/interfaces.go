package runner

import (
	"context"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

// ContentGenerator は Gemini の GenerateContent 呼び出しの契約です。
// *genai.Models（genai.Client.Models）がそのまま満たします。
// パネル分割は ResponseSchema と SystemInstruction を使うため genai を直接呼ぶのだ。
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

// PartsGenerator は参照画像とテキストのパーツ列から画像を生成する契約なのだ。
// go-gemini-client の gemini.GenerativeModel が満たします。
type PartsGenerator interface {
	GenerateWithParts(ctx context.Context, model string, parts []*genai.Part, opts gemini.GenerateOptions) (*gemini.Response, error)
}

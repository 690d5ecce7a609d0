package runner

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/shouni/go-comic-kit/pkg/config"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/encoder"
	"github.com/shouni/go-comic-kit/pkg/prompts"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"google.golang.org/genai"
)

var errNoImage = errors.New("no image returned by model")

// PanelImageSynthesizer は1コマ分の説明とキャラクターの参照画像から画像を生成します。
type PanelImageSynthesizer struct {
	cfg           config.Config
	promptBuilder *prompts.TextPromptBuilder
	aiClient      PartsGenerator
}

// NewPanelImageSynthesizer は依存関係を注入して初期化します。
func NewPanelImageSynthesizer(cfg config.Config, pb *prompts.TextPromptBuilder, ai PartsGenerator) (*PanelImageSynthesizer, error) {
	if pb == nil {
		return nil, fmt.Errorf("prompt builder is required")
	}
	if ai == nil {
		return nil, fmt.Errorf("ai client is required")
	}
	return &PanelImageSynthesizer{
		cfg:           cfg,
		promptBuilder: pb,
		aiClient:      ai,
	}, nil
}

// Synthesize は参照画像（ロスター順）と指示テキストを1回のリクエストで送り、
// 応答に含まれる最初の画像を data URI で返すのだ。
func (s *PanelImageSynthesizer) Synthesize(ctx context.Context, description string, characters []domain.Character) (string, error) {
	withImages := domain.WithImages(characters)

	instruction, err := s.promptBuilder.BuildPanel(domain.JoinNames(withImages), description)
	if err != nil {
		return "", &domain.SynthesisError{Err: fmt.Errorf("プロンプト生成に失敗: %w", err)}
	}

	parts := make([]*genai.Part, 0, len(withImages)+1)
	for _, c := range withImages {
		parts = append(parts, toPart(*c.Image))
	}
	parts = append(parts, genai.NewPartFromText(instruction))

	start := time.Now()
	resp, err := s.aiClient.GenerateWithParts(ctx, s.cfg.ImageModel, parts, gemini.GenerateOptions{})
	if err != nil {
		return "", &domain.SynthesisError{Err: fmt.Errorf("Gemini API の呼び出しに失敗: %w", err)}
	}
	if resp == nil {
		return "", &domain.SynthesisError{Err: fmt.Errorf("invalid response: empty")}
	}

	blob, err := firstImage(resp.RawResponse)
	if err != nil {
		return "", &domain.SynthesisError{Err: err}
	}

	slog.DebugContext(ctx, "PanelImageSynthesizer: 画像を受信したのだ",
		"model", s.cfg.ImageModel,
		"references", len(withImages),
		"mime_type", blob.MIMEType,
		"bytes", len(blob.Data),
		"duration", time.Since(start).Round(time.Millisecond))

	return encoder.DataURI(blob.MIMEType, base64.StdEncoding.EncodeToString(blob.Data)), nil
}

// toPart は参照画像を InlineData パートに変換します。
func toPart(img domain.CharacterImage) *genai.Part {
	data := img.Data
	if len(data) == 0 && img.Base64 != "" {
		if decoded, err := base64.StdEncoding.DecodeString(img.Base64); err == nil {
			data = decoded
		}
	}
	return &genai.Part{InlineData: &genai.Blob{MIMEType: img.MIMEType, Data: data}}
}

// firstImage は最初の候補から画像データを持つ最初のパートを探すのだ。
func firstImage(resp *genai.GenerateContentResponse) (*genai.Blob, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return nil, fmt.Errorf("invalid response: no candidates")
	}
	candidate := resp.Candidates[0]
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && part.InlineData != nil && len(part.InlineData.Data) > 0 {
				blob := *part.InlineData
				if blob.MIMEType == "" {
					blob.MIMEType = encoder.DetectMIMEType(blob.Data)
				}
				return &blob, nil
			}
		}
	}
	switch candidate.FinishReason {
	case "", genai.FinishReasonUnspecified, genai.FinishReasonStop:
	default:
		return nil, fmt.Errorf("%w (FinishReason: %s)", errNoImage, candidate.FinishReason)
	}
	return nil, errNoImage
}

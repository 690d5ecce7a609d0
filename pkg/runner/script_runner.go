package runner

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/shouni/go-comic-kit/pkg/config"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/prompts"

	"google.golang.org/genai"
)

var jsonBlockRegex = regexp.MustCompile("(?s)```(?:json)?\\s*(.*\\S)\\s*```")

// panelsResponse はパネル分割の応答 JSON の形なのだ。
type panelsResponse struct {
	Panels []string `json:"panels"`
}

// StoryDecomposer は物語テキストを指定数のパネル説明に分割します。
type StoryDecomposer struct {
	cfg           config.Config
	promptBuilder *prompts.TextPromptBuilder
	aiClient      ContentGenerator
}

// NewStoryDecomposer は依存関係を注入して初期化します。
func NewStoryDecomposer(cfg config.Config, pb *prompts.TextPromptBuilder, ai ContentGenerator) (*StoryDecomposer, error) {
	if pb == nil {
		return nil, fmt.Errorf("prompt builder is required")
	}
	if ai == nil {
		return nil, fmt.Errorf("ai client is required")
	}
	return &StoryDecomposer{
		cfg:           cfg,
		promptBuilder: pb,
		aiClient:      ai,
	}, nil
}

// Decompose は物語を panelCount 個の短い視覚的な説明に分割するのだ。
// 失敗はすべて *domain.DecompositionError で返し、リトライはしません。
func (d *StoryDecomposer) Decompose(ctx context.Context, story string, panelCount int) ([]string, error) {
	if panelCount <= 0 {
		panelCount = config.DefaultPanelCount
	}

	userPrompt, err := d.promptBuilder.BuildStory(story, panelCount)
	if err != nil {
		return nil, &domain.DecompositionError{Err: fmt.Errorf("プロンプト生成に失敗: %w", err)}
	}

	slog.InfoContext(ctx, "StoryDecomposer: Calling Gemini API", "model", d.cfg.GeminiModel, "panel_count", panelCount)
	start := time.Now()

	resp, err := d.aiClient.GenerateContent(ctx, d.cfg.GeminiModel, genai.Text(userPrompt), d.generateConfig(panelCount))
	if err != nil {
		return nil, &domain.DecompositionError{Err: fmt.Errorf("Gemini API の呼び出しに失敗: %w", err)}
	}

	panels, err := parsePanels(responseText(resp))
	if err != nil {
		return nil, &domain.DecompositionError{Err: err}
	}

	if len(panels) != panelCount {
		slog.WarnContext(ctx, "要求したパネル数と応答のパネル数が一致しないのだ。応答をそのまま採用します",
			"requested", panelCount, "returned", len(panels))
	}

	slog.InfoContext(ctx, "StoryDecomposer: パネル分割が完了したのだ",
		"count", len(panels),
		"duration", time.Since(start).Round(time.Millisecond))
	return panels, nil
}

func (d *StoryDecomposer) generateConfig(panelCount int) *genai.GenerateContentConfig {
	return &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: prompts.StorySystemInstruction}}},
		ResponseMIMEType:  "application/json",
		ResponseSchema: &genai.Schema{
			Type: genai.TypeObject,
			Properties: map[string]*genai.Schema{
				"panels": {
					Type:        genai.TypeArray,
					Description: fmt.Sprintf("An array of %d strings, each describing a comic panel.", panelCount),
					Items:       &genai.Schema{Type: genai.TypeString},
				},
			},
			Required: []string{"panels"},
		},
	}
}

// parsePanels は応答テキストから JSON を取り出してパネル説明の配列に変換するのだ。
func parsePanels(raw string) ([]string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errors.New("AIからの応答が空です")
	}

	var rawJSON string
	matches := jsonBlockRegex.FindStringSubmatch(raw)
	if len(matches) > 1 {
		rawJSON = matches[1]
	} else {
		// Fallback 1: Find the outermost JSON object.
		firstBracket := strings.Index(raw, "{")
		lastBracket := strings.LastIndex(raw, "}")
		if firstBracket != -1 && lastBracket != -1 && lastBracket > firstBracket {
			rawJSON = raw[firstBracket : lastBracket+1]
		} else {
			// Fallback 2: Assume the entire response is JSON.
			rawJSON = raw
		}
	}

	var parsed panelsResponse
	if err := json.Unmarshal([]byte(rawJSON), &parsed); err != nil {
		return nil, fmt.Errorf("AIからの応答に含まれるJSONの解析に失敗しました (応答抜粋: %q): %w", truncateString(raw, 200), err)
	}

	panels := make([]string, 0, len(parsed.Panels))
	for _, p := range parsed.Panels {
		if s := strings.TrimSpace(p); s != "" {
			panels = append(panels, s)
		}
	}
	if len(panels) == 0 {
		return nil, fmt.Errorf("応答に panels 配列が含まれていないか空です (応答抜粋: %q)", truncateString(raw, 200))
	}
	return panels, nil
}

// responseText は最初の候補のテキストパートを連結して返します。
func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return ""
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if part == nil || part.Thought {
			continue
		}
		sb.WriteString(part.Text)
	}
	return sb.String()
}

func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

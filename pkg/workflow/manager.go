package workflow

import (
	"context"
	"fmt"

	"github.com/shouni/go-comic-kit/pkg/config"
	"github.com/shouni/go-comic-kit/pkg/prompts"
	"github.com/shouni/go-comic-kit/pkg/publisher"
	"github.com/shouni/go-comic-kit/pkg/runner"

	"github.com/shouni/go-gemini-client/pkg/gemini"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"google.golang.org/genai"
)

// defaultGeminiTemperature は画像生成クライアントの温度なのだ。
const defaultGeminiTemperature = float32(0.4)

// Manager は、ワークフローの各工程を担う Runner 群を構築・管理します。
type Manager struct {
	cfg           config.Config
	textClient    runner.ContentGenerator
	imageClient   runner.PartsGenerator
	promptBuilder *prompts.TextPromptBuilder
}

// New は、設定から Gemini クライアントを初期化して新しい Manager を返します。
// パネル分割は genai を直接、画像生成は go-gemini-client を通して呼び出すのだ。
func New(ctx context.Context, cfg config.Config) (*Manager, error) {
	textClient, err := initializeTextClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, err
	}
	imageClient, err := initializeImageClient(ctx, cfg.GeminiAPIKey)
	if err != nil {
		return nil, err
	}
	return NewWithClient(cfg, textClient, imageClient)
}

// NewWithClient は、用意済みのクライアントで Manager を初期化します。テストでモックを差し込むときに使うのだ。
func NewWithClient(cfg config.Config, textClient runner.ContentGenerator, imageClient runner.PartsGenerator) (*Manager, error) {
	if textClient == nil {
		return nil, fmt.Errorf("text client is required")
	}
	if imageClient == nil {
		return nil, fmt.Errorf("image client is required")
	}
	pb, err := prompts.NewTextPromptBuilder()
	if err != nil {
		return nil, fmt.Errorf("プロンプトビルダーの初期化に失敗しました: %w", err)
	}
	return &Manager{
		cfg:           cfg,
		textClient:    textClient,
		imageClient:   imageClient,
		promptBuilder: pb,
	}, nil
}

// BuildOrchestrator は分割と画像生成の Runner をつないだ Orchestrator を構築するのだ。
func (m *Manager) BuildOrchestrator() (*Orchestrator, error) {
	decomposer, err := runner.NewStoryDecomposer(m.cfg, m.promptBuilder, m.textClient)
	if err != nil {
		return nil, fmt.Errorf("StoryDecomposer の構築に失敗しました: %w", err)
	}
	synthesizer, err := runner.NewPanelImageSynthesizer(m.cfg, m.promptBuilder, m.imageClient)
	if err != nil {
		return nil, fmt.Errorf("PanelImageSynthesizer の構築に失敗しました: %w", err)
	}
	return NewOrchestrator(m.cfg, decomposer, synthesizer)
}

// BuildPublishRunner はコンテンツ保存と変換を行う Runner を構築します。
func (m *Manager) BuildPublishRunner(writer remoteio.OutputWriter) (*runner.DefaultPublisherRunner, error) {
	pub, err := publisher.NewComicPublisher(writer)
	if err != nil {
		return nil, fmt.Errorf("ComicPublisher の構築に失敗しました: %w", err)
	}
	return runner.NewDefaultPublisherRunner(pub)
}

// initializeTextClient は Gemini API バックエンドの genai クライアントを初期化します。
// JSON スキーマ付きの応答指定が必要なので、パネル分割はこちらを使うのだ。
func initializeTextClient(ctx context.Context, apiKey string) (runner.ContentGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("AIクライアントの初期化に失敗しました: %w", err)
	}
	return client.Models, nil
}

// initializeImageClient は画像生成用の gemini クライアントを初期化します。
func initializeImageClient(ctx context.Context, apiKey string) (runner.PartsGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY is required")
	}
	clientConfig := gemini.Config{
		APIKey:      apiKey,
		Temperature: genai.Ptr(defaultGeminiTemperature),
	}
	aiClient, err := gemini.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("画像生成クライアントの初期化に失敗しました: %w", err)
	}
	return aiClient, nil
}

package runner

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/publisher"
)

// DefaultPublisherRunner は pkg/publisher を利用した標準実装なのだ。
type DefaultPublisherRunner struct {
	publisher *publisher.ComicPublisher
}

// NewDefaultPublisherRunner は依存関係を注入して初期化します。
func NewDefaultPublisherRunner(pub *publisher.ComicPublisher) (*DefaultPublisherRunner, error) {
	if pub == nil {
		return nil, fmt.Errorf("publisher is required")
	}
	return &DefaultPublisherRunner{publisher: pub}, nil
}

// Run はセッションの最終状態を outputDir に書き出すのだ。
// 途中で失敗したコミックでも、生成済みのパネルはそのまま書き出します。
func (pr *DefaultPublisherRunner) Run(ctx context.Context, state domain.State, outputDir, title string) (publisher.PublishResult, error) {
	opts := publisher.Options{
		OutputDir: outputDir,
		Title:     title,
	}

	res, err := pr.publisher.Publish(ctx, state, opts)
	if err != nil {
		return res, fmt.Errorf("公開処理に失敗したのだ: %w", err)
	}

	slog.InfoContext(ctx, "コミックを書き出したのだ",
		"markdown", res.MarkdownPath,
		"html", res.HTMLPath,
		"images", len(res.ImagePaths))
	return res, nil
}

package builder

import (
	"fmt"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/internal/server"
	"github.com/shouni/go-comic-kit/pkg/runner"
	"github.com/shouni/go-comic-kit/pkg/workflow"
)

// BuildOrchestrator はパネル分割と画像生成をつないだ Orchestrator を構築します。
func BuildOrchestrator(appCtx *AppContext) (*workflow.Orchestrator, error) {
	orch, err := appCtx.Manager.BuildOrchestrator()
	if err != nil {
		return nil, fmt.Errorf("Orchestrator の構築に失敗しました: %w", err)
	}
	return orch, nil
}

// BuildPublishRunner は AppContext の Writer へ書き出す PublishRunner を構築します。
func BuildPublishRunner(appCtx *AppContext) (*runner.DefaultPublisherRunner, error) {
	pr, err := appCtx.Manager.BuildPublishRunner(appCtx.Writer)
	if err != nil {
		return nil, fmt.Errorf("PublishRunner の構築に失敗しました: %w", err)
	}
	return pr, nil
}

// BuildServer はブラウザ UI のサーバーを構築するのだ。
func BuildServer(appCtx *AppContext) (*server.Server, error) {
	orch, err := BuildOrchestrator(appCtx)
	if err != nil {
		return nil, err
	}

	opts := appCtx.Options
	addr := opts.Addr
	if addr == "" {
		addr = appCtx.Config.ServerAddr
	}
	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = config.DefaultMaxUploadBytes
	}

	srv, err := server.New(orch, server.Options{
		Addr:            addr,
		SessionTTL:      opts.SessionTTL,
		SessionCleanup:  config.DefaultSessionCleanup,
		MaxUploadBytes:  maxUpload,
		ShutdownTimeout: config.DefaultShutdownTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("サーバーの初期化に失敗しました: %w", err)
	}
	return srv, nil
}

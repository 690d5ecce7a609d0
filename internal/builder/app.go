package builder

import (
	"context"
	"fmt"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/pkg/workflow"

	"github.com/shouni/go-http-kit/pkg/httpkit"
	"github.com/shouni/go-remote-io/pkg/gcsfactory"
	"github.com/shouni/go-remote-io/pkg/remoteio"
)

// AppContext は、アプリケーション実行に必要な共通コンテキストを保持する
// これを各Build関数に渡すことで、依存関係の注入を簡素化します。
type AppContext struct {
	Config     *config.Config          // Configは、環境変数から読み込まれたグローバルな設定です（APIキー、モデル名など）。
	Options    config.GenerateOptions  // Optionsは、コマンドラインから渡された実行時の設定です。
	Manager    *workflow.Manager       // Managerは、Gemini クライアントと各 Runner の構築を担います。
	HTTPClient httpkit.ClientInterface // HTTPClient は参照画像の URL 取得に使う共通クライアント
	Reader     remoteio.InputReader    // Readerは、物語ファイルの読み込み元です（ローカル / gs://）。
	Writer     remoteio.OutputWriter   // Writerは、成果物の保存先です（ローカル / gs://）。
}

// NewAppContext は AppContext の新しいインスタンスを生成する
func NewAppContext(
	cfg *config.Config,
	manager *workflow.Manager,
	httpClient httpkit.ClientInterface,
	reader remoteio.InputReader,
	writer remoteio.OutputWriter,
) AppContext {
	return AppContext{
		Config:     cfg,
		Options:    cfg.Options,
		Manager:    manager,
		HTTPClient: httpClient,
		Reader:     reader,
		Writer:     writer,
	}
}

// SetupAppContext は、設定から Gemini クライアント、HTTP クライアント、入出力を初期化して AppContext を返すのだ。
func SetupAppContext(ctx context.Context, cfg *config.Config) (*AppContext, error) {
	timeout := cfg.Options.HTTPTimeout
	if timeout <= 0 {
		timeout = config.DefaultHTTPTimeout
	}
	httpClient := httpkit.New(timeout)

	manager, err := workflow.New(ctx, cfg.Library())
	if err != nil {
		return nil, fmt.Errorf("ワークフローの初期化に失敗したのだ: %w", err)
	}

	gcsFactory, err := gcsfactory.NewGCSClientFactory(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCS client factory: %w", err)
	}
	reader, err := gcsFactory.NewInputReader()
	if err != nil {
		return nil, fmt.Errorf("入力リーダーの作成に失敗したのだ: %w", err)
	}
	writer, err := gcsFactory.NewOutputWriter()
	if err != nil {
		return nil, fmt.Errorf("出力ライターの作成に失敗したのだ: %w", err)
	}

	appCtx := NewAppContext(cfg, manager, httpClient, reader, writer)
	return &appCtx, nil
}

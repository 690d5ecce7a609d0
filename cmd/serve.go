package cmd

import (
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shouni/go-comic-kit/internal/builder"
	"github.com/shouni/go-comic-kit/internal/config"

	"github.com/spf13/cobra"
)

// serveCmd は、ブラウザからキャラクターと物語を編集できる UI サーバーを起動するのだ。
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "ブラウザ UI のサーバーを起動するのだ。",
	Long: `キャラクターの登録、物語の入力、パネル生成の進み具合をブラウザで確認できるのだ。
状態の変化は WebSocket で即座に画面へ届くのだよ。`,
	Example: "  comic-kit serve --addr :8080 --session-ttl 1h",
	RunE:    serveCommand,
}

func init() {
	serveCmd.Flags().StringVar(&opts.Addr, "addr", "", "待ち受けアドレスなのだ（未指定なら SERVER_ADDR か "+config.DefaultServerAddr+"）。")
	serveCmd.Flags().DurationVar(&opts.SessionTTL, "session-ttl", config.DefaultSessionTTL, "操作のないセッションを破棄するまでの時間なのだ。")
	serveCmd.Flags().Int64Var(&opts.MaxUploadBytes, "max-upload-bytes", config.DefaultMaxUploadBytes, "キャラクター画像のアップロード上限（バイト）なのだ。")
}

func serveCommand(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := loadConfig(cmd)
	appCtx, err := builder.SetupAppContext(ctx, cfg)
	if err != nil {
		return fmt.Errorf("アプリケーションの初期化に失敗したのだ: %w", err)
	}

	srv, err := builder.BuildServer(appCtx)
	if err != nil {
		return err
	}

	slog.Info("UI サーバーを起動するのだ！",
		"text_model", cfg.GeminiModel,
		"image_model", cfg.GeminiImageModel,
		"panel_count", cfg.PanelCount)

	if err := srv.Run(ctx); err != nil {
		return err
	}
	slog.Info("UI サーバーを停止したのだ。")
	return nil
}

package cmd

import (
	"fmt"
	"os"

	"github.com/shouni/go-comic-kit/internal/config"

	clibase "github.com/shouni/go-cli-base"
	"github.com/spf13/cobra"
)

// opts はフラグの値を受け取る実行時オプションなのだ。
var opts config.GenerateOptions

// addAppFlags は、すべてのサブコマンドに共通するグローバルフラグを定義するのだ。
func addAppFlags(rootCmd *cobra.Command) {
	// --- AIモデル・挙動設定 ---
	rootCmd.PersistentFlags().StringVar(&opts.AIModel, "model", config.DefaultModel, "パネル分割に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().StringVar(&opts.ImageModel, "image-model", config.DefaultImageModel, "パネル画像の生成に使う Gemini モデル名なのだ。")
	rootCmd.PersistentFlags().IntVarP(&opts.PanelCount, "panel-count", "p", config.DefaultPanelCount, "物語を分割するパネル数なのだ。")
	rootCmd.PersistentFlags().DurationVar(&opts.HTTPTimeout, "http-timeout", config.DefaultHTTPTimeout, "参照画像を URL から取得するときのタイムアウトなのだ。")
}

// preRunAppE は、コマンド実行前に環境変数などの必須チェックを行うのだ。
func preRunAppE(cmd *cobra.Command, args []string) error {
	// APIキーがなければ何も生成できないので、ここで止めるのだ。
	if os.Getenv("GEMINI_API_KEY") == "" {
		return fmt.Errorf("エラー: 環境変数 GEMINI_API_KEY が設定されていません。Gemini APIの利用には必須なのだ")
	}
	if opts.PanelCount <= 0 {
		return fmt.Errorf("--panel-count は1以上を指定してほしいのだ: %d", opts.PanelCount)
	}
	return nil
}

// loadConfig は環境変数の設定にフラグの値を重ねるのだ。
// 明示されたフラグだけが環境変数より優先されます。
func loadConfig(cmd *cobra.Command) *config.Config {
	cfg := config.LoadConfig()
	flags := cmd.Flags()
	if flags.Changed("model") || cfg.GeminiModel == "" {
		cfg.GeminiModel = opts.AIModel
	}
	if flags.Changed("image-model") || cfg.GeminiImageModel == "" {
		cfg.GeminiImageModel = opts.ImageModel
	}
	if flags.Changed("panel-count") || cfg.PanelCount <= 0 {
		cfg.PanelCount = opts.PanelCount
	}
	cfg.Options = opts
	return cfg
}

// Execute は、アプリケーションのメインエントリポイントなのだ。
// main.go から呼び出されて、cobra のコマンドライン解析を開始するのだよ。
func Execute() {
	clibase.Execute(
		"comic-kit",
		addAppFlags,
		preRunAppE,
		generateCmd,
		serveCmd,
	)
}

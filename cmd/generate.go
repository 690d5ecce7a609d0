package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/internal/pipeline"

	"github.com/spf13/cobra"
)

// generateCmd は、物語とキャラクター画像から1本のコミックを生成して書き出すのだ。
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "物語とキャラクター画像からコミックを生成するのだ。",
	Long: `物語をパネルに分割し、キャラクターの参照画像を使ってパネルごとに画像を生成するのだ。
結果は画像ファイルと comic.md、comic.html として出力ディレクトリに保存されるのだよ。`,
	Example: `  comic-kit generate -s "Two friends find a mysterious map" -c Astro=astro.png -c Nova=https://example.com/nova.png
  cat story.txt | comic-kit generate -f - -c Astro=astro.png -o out`,
	RunE: generateCommand,
}

func init() {
	generateCmd.Flags().StringVarP(&opts.Story, "story", "s", "", "物語のテキストなのだ。")
	generateCmd.Flags().StringVarP(&opts.StoryFile, "story-file", "f", "", "物語を読み込むファイルのパス（'-'で標準入力なのだ）。")
	generateCmd.Flags().StringArrayVarP(&opts.Characters, "character", "c", nil, "キャラクターを name=path|url の形式で指定するのだ（最大5人、指定順に並ぶ）。")
	generateCmd.Flags().StringVarP(&opts.OutputDir, "output-dir", "o", config.DefaultOutputDir, "成果物を保存するディレクトリなのだ。")
	generateCmd.Flags().StringVar(&opts.Title, "title", config.DefaultComicTitle, "書き出すコミックのタイトルなのだ。")
}

func generateCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	// 1. 必須チェック
	if opts.Story == "" && opts.StoryFile == "" {
		if !isStdin() {
			return fmt.Errorf("物語（--story または --story-file）を指定してほしいのだ")
		}
		opts.StoryFile = "-"
	}

	// 2. 環境変数等から基本設定をロードするのだ
	cfg := loadConfig(cmd)

	slog.Info("コミック生成パイプラインを起動するのだ！",
		"text_model", cfg.GeminiModel,
		"image_model", cfg.GeminiImageModel,
		"panel_count", cfg.PanelCount,
		"characters", len(opts.Characters),
		"output", opts.OutputDir)

	// 3. 実行
	if err := pipeline.ExecuteGenerate(ctx, cfg); err != nil {
		return fmt.Errorf("コミック生成中にエラーが発生したのだ: %w", err)
	}

	slog.Info("すべての生成工程が完了したのだ！", "output", opts.OutputDir)
	return nil
}

func isStdin() bool {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (stat.Mode() & os.ModeCharDevice) == 0
}

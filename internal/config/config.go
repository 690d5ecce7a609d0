package config

import (
	"strconv"
	"time"

	libconfig "github.com/shouni/go-comic-kit/pkg/config"

	"github.com/shouni/go-utils/envutil"
)

// デフォルト値の定義なのだ
const (
	DefaultModel           = libconfig.DefaultGeminiModel
	DefaultImageModel      = libconfig.DefaultImageModel
	DefaultPanelCount      = libconfig.DefaultPanelCount
	DefaultHTTPTimeout     = 30 * time.Second
	DefaultServerAddr      = ":8080"
	DefaultSessionTTL      = 2 * time.Hour
	DefaultSessionCleanup  = 10 * time.Minute
	DefaultMaxUploadBytes  = 10 << 20
	DefaultShutdownTimeout = 10 * time.Second
	DefaultOutputDir       = "output" // パブリッシャーで使用するデフォルト保存先なのだ
	DefaultComicTitle      = "Comic Strip AI"
)

// Config はアプリケーション全体の環境設定（APIキーやモデル名）を保持する構造体なのだ。
type Config struct {
	GeminiAPIKey     string
	GeminiModel      string
	GeminiImageModel string
	PanelCount       int
	ServerAddr       string

	Options GenerateOptions
}

// LoadConfig は環境変数から設定を読み込み、構造体を返すのだ！
func LoadConfig() *Config {
	cfg := &Config{
		GeminiAPIKey:     envutil.GetEnv("GEMINI_API_KEY", ""),
		GeminiModel:      envutil.GetEnv("GEMINI_MODEL", DefaultModel),
		GeminiImageModel: envutil.GetEnv("IMAGE_GEMINI_MODEL", DefaultImageModel),
		PanelCount:       parseInt(envutil.GetEnv("COMIC_PANEL_COUNT", ""), DefaultPanelCount),
		ServerAddr:       envutil.GetEnv("SERVER_ADDR", DefaultServerAddr),
	}
	return cfg
}

// Library は pkg 側の Runner 向け設定に変換します。
func (c *Config) Library() libconfig.Config {
	lc := libconfig.NewConfig(c.GeminiAPIKey)
	if c.GeminiModel != "" {
		lc.GeminiModel = c.GeminiModel
	}
	if c.GeminiImageModel != "" {
		lc.ImageModel = c.GeminiImageModel
	}
	if c.PanelCount > 0 {
		lc.PanelCount = c.PanelCount
	}
	return lc
}

func parseInt(s string, def int) int {
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

// GenerateOptions は CLI フラグから渡される実行時のパラメータなのだ。
type GenerateOptions struct {
	// AI挙動設定
	AIModel    string // --model: テキスト生成用のGeminiモデル
	ImageModel string // --image-model: 画像生成用のGeminiモデル
	PanelCount int    // --panel-count

	// generate コマンド
	Story      string   // --story
	StoryFile  string   // --story-file ('-' で標準入力)
	Characters []string // --character name=path|url
	OutputDir  string   // --output-dir
	Title      string   // --title

	// serve コマンド
	Addr           string        // --addr
	SessionTTL     time.Duration // --session-ttl
	MaxUploadBytes int64         // --max-upload-bytes

	// 実行制御
	HTTPTimeout time.Duration // --http-timeout
}

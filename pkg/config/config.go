package config

// デフォルト値の定義
const (
	DefaultGeminiModel = "gemini-2.5-flash"
	DefaultImageModel  = "gemini-2.5-flash-image-preview"
	DefaultPanelCount  = 4
)

// Config は Go Comic Kit の各 Runner とワークフローを動作させるための基本設定です。
type Config struct {
	// --- Google AI (Gemini API) Settings ---
	GeminiAPIKey string

	// --- AI Model Settings ---
	GeminiModel string // パネル分割（テキスト生成）用
	ImageModel  string // パネル画像生成用

	// --- Generation Settings ---
	PanelCount int
}

// NewConfig はデフォルト値で初期化された Config に API キーをセットして返すのだ。
func NewConfig(apiKey string) Config {
	cfg := DefaultConfig()
	cfg.GeminiAPIKey = apiKey
	return cfg
}

// DefaultConfig は推奨されるデフォルト設定を返すヘルパー関数です。
func DefaultConfig() Config {
	return Config{
		GeminiModel: DefaultGeminiModel,
		ImageModel:  DefaultImageModel,
		PanelCount:  DefaultPanelCount,
	}
}

// PanelCountOrDefault は 0 以下の指定をデフォルト値に読み替えるのだ。
func (c Config) PanelCountOrDefault() int {
	if c.PanelCount <= 0 {
		return DefaultPanelCount
	}
	return c.PanelCount
}

package publisher

import (
	"fmt"
	"path"
	"strings"

	"github.com/shouni/go-utils/urlpath"
)

// ResolveOutputPath は、ベースとなるディレクトリパスとファイル名から、
// GCS/ローカルを考慮した最終的な出力パスを生成します。
// ファイル名にディレクトリを遡る要素が含まれている場合はエラーにするのだ。
func ResolveOutputPath(baseDir, fileName string) (string, error) {
	if fileName == "" {
		return "", fmt.Errorf("ファイル名が空なのだ")
	}
	cleaned := path.Clean(strings.ReplaceAll(fileName, `\`, "/"))
	if path.IsAbs(cleaned) || cleaned == ".." || strings.HasPrefix(cleaned, "../") || strings.Contains(cleaned, "://") {
		return "", fmt.Errorf("出力先の外を指すファイル名は使えないのだ: %q", fileName)
	}
	return urlpath.ResolveOutputPath(baseDir, cleaned)
}

// extensionFor はメディアタイプから画像ファイルの拡張子を決めるのだ。
func extensionFor(mimeType string) string {
	switch strings.ToLower(mimeType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".png"
	}
}

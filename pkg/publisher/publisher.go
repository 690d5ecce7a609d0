package publisher

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"log/slog"
	"path"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/encoder"

	"github.com/russross/blackfriday"
	"github.com/shouni/go-remote-io/pkg/remoteio"
	"github.com/shouni/go-utils/urlpath"
)

// Options はパブリッシュ動作を制御する設定項目です。
type Options struct {
	OutputDir string
	Title     string
}

// PublishResult はパブリッシュ処理の結果として生成されたファイルの情報を保持します。
type PublishResult struct {
	MarkdownPath string   // 生成された comic.md のパス
	HTMLPath     string   // 生成された HTML のパス
	ImagePaths   []string // 保存された全画像のパスリスト
}

const (
	defaultComicName    = "comic.md"
	defaultImageDirName = "images"
	panelFileBase       = "panel" // panel_1.png のように連番が付くのだ
	defaultTitle        = "Comic Strip AI"
	pendingPanelText    = "_(image not generated)_"
	htmlHead            = "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>%s</title>\n<style>body{font-family:sans-serif;max-width:960px;margin:2em auto;background:#0f172a;color:#e2e8f0}img{max-width:100%%;border:4px solid #000;border-radius:8px}blockquote{color:#94a3b8}</style>\n</head>\n<body>\n"
	htmlTail            = "</body>\n</html>\n"
)

// ComicPublisher はセッションの成果物（パネル画像、Markdown、HTML）の書き出しを担います。
// 書き出し先はローカルでも gs:// でも構いません。
type ComicPublisher struct {
	writer remoteio.OutputWriter
}

// NewComicPublisher creates a ComicPublisher that writes through writer.
func NewComicPublisher(writer remoteio.OutputWriter) (*ComicPublisher, error) {
	if writer == nil {
		return nil, fmt.Errorf("output writer is required")
	}
	return &ComicPublisher{writer: writer}, nil
}

// Publish は画像の保存、Markdownの構築、HTML変換を一括して実行し、生成されたファイル情報を返却するのだ！
func (p *ComicPublisher) Publish(ctx context.Context, state domain.State, opts Options) (PublishResult, error) {
	result := PublishResult{}
	title := opts.Title
	if title == "" {
		title = defaultTitle
	}

	markdownPath, err := ResolveOutputPath(opts.OutputDir, defaultComicName)
	if err != nil {
		return result, err
	}
	result.MarkdownPath = markdownPath

	imgDir, err := ResolveOutputPath(opts.OutputDir, defaultImageDirName)
	if err != nil {
		return result, err
	}

	// 1. 画像の保存（画像のないパネルは空文字で位置を保つ）
	relativePaths := make([]string, len(state.Panels))
	for i, panel := range state.Panels {
		if !panel.HasImage() {
			continue
		}
		mimeType, data, err := encoder.DecodeDataURI(panel.ImageURL)
		if err != nil {
			return result, fmt.Errorf("パネル %d の画像のデコードに失敗しました: %w", i+1, err)
		}
		name, err := urlpath.GenerateIndexedPath(panelFileBase+extensionFor(mimeType), i+1)
		if err != nil {
			return result, fmt.Errorf("パネル %d のファイル名の生成に失敗しました: %w", i+1, err)
		}
		fullPath, err := ResolveOutputPath(imgDir, name)
		if err != nil {
			return result, fmt.Errorf("出力パスの解決に失敗しました: %w", err)
		}
		if err := p.writer.Write(ctx, fullPath, bytes.NewReader(data), mimeType); err != nil {
			return result, fmt.Errorf("画像の書き込みに失敗しました %s: %w", fullPath, err)
		}
		result.ImagePaths = append(result.ImagePaths, fullPath)
		relativePaths[i] = path.Join(defaultImageDirName, name)
	}

	// 2. Markdownの構築と書き出し
	content := BuildMarkdown(title, state, relativePaths)
	if err := p.writer.Write(ctx, markdownPath, strings.NewReader(content), "text/markdown; charset=utf-8"); err != nil {
		return result, fmt.Errorf("markdownファイルの書き込みに失敗しました: %w", err)
	}

	// 3. HTML変換と保存
	slog.InfoContext(ctx, "Converting to HTML", "title", title)
	htmlPath := strings.TrimSuffix(markdownPath, path.Ext(markdownPath)) + ".html"
	if err := p.writer.Write(ctx, htmlPath, bytes.NewReader(RenderHTML(title, content)), "text/html; charset=utf-8"); err != nil {
		return result, fmt.Errorf("HTMLファイルの書き込みに失敗しました: %w", err)
	}
	result.HTMLPath = htmlPath

	return result, nil
}

// BuildMarkdown はパネルの並び順どおりに Markdown を組み立てるのだ。
// imagePaths[i] が空のパネルは未生成として扱います。
func BuildMarkdown(title string, state domain.State, imagePaths []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s\n\n", title))
	if story := strings.TrimSpace(state.Story); story != "" {
		for _, line := range strings.Split(story, "\n") {
			sb.WriteString("> " + line + "\n")
		}
		sb.WriteString("\n")
	}
	if names := domain.JoinNames(domain.WithImages(state.Characters)); names != "" {
		sb.WriteString(fmt.Sprintf("**Cast:** %s\n\n", names))
	}

	for i, panel := range state.Panels {
		sb.WriteString(fmt.Sprintf("## Panel %d\n\n", i+1))
		sb.WriteString(panel.Description + "\n\n")
		if i < len(imagePaths) && imagePaths[i] != "" {
			sb.WriteString(fmt.Sprintf("![Panel %d](%s)\n\n", i+1, imagePaths[i]))
		} else {
			sb.WriteString(pendingPanelText + "\n\n")
		}
	}
	return sb.String()
}

// RenderHTML は Markdown を blackfriday で HTML に変換し、1枚のページとして包みます。
func RenderHTML(title, markdown string) []byte {
	var buf bytes.Buffer
	buf.WriteString(fmt.Sprintf(htmlHead, html.EscapeString(title)))
	buf.Write(blackfriday.MarkdownCommon([]byte(markdown)))
	buf.WriteString(htmlTail)
	return buf.Bytes()
}

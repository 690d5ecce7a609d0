package server

import (
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/encoder"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexTemplate = template.Must(template.ParseFS(templateFS, "templates/index.html"))

// indexData は初期表示用のテンプレートデータなのだ。以降の更新は /ws 経由で JS が描画します。
type indexData struct {
	State         StateResponse
	MaxCharacters int
	Accept        string
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	data := indexData{
		State:         newStateResponse(sess.Snapshot()),
		MaxCharacters: domain.MaxCharacters,
		Accept:        strings.Join(encoder.AcceptedMIMETypes, ","),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := indexTemplate.Execute(w, data); err != nil {
		slog.Error("画面の描画に失敗したのだ", "error", err)
	}
}

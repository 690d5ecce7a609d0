// Package server はブラウザ向けの UI と JSON API を提供します。
//
// Endpoints:
//   - GET    /                              - コミック作成画面
//   - GET    /api/state                     - セッション状態
//   - POST   /api/characters                - キャラクター枠の追加
//   - PATCH  /api/characters/{id}           - 名前の変更
//   - PUT    /api/characters/{id}/image     - 参照画像のアップロード (multipart "image")
//   - DELETE /api/characters/{id}           - キャラクター枠の削除
//   - PUT    /api/story                     - 物語テキストの更新
//   - POST   /api/generate                  - コミック生成の開始
//   - GET    /ws                            - 状態のライブ配信 (WebSocket)
package server

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shouni/go-comic-kit/pkg/workflow"
)

const (
	sessionCookieName = "comic_session"
	readHeaderTimeout = 10 * time.Second
)

// Generator はセッションに対してコミック生成を開始する契約です。*workflow.Orchestrator が満たします。
// Start は呼び出し元で実行中フラグを確保し、実行中なら workflow.ErrGenerationInProgress を返すのだ。
type Generator interface {
	Start(s *workflow.Session) (func(ctx context.Context) error, error)
}

// Options はサーバーの動作設定です。
type Options struct {
	Addr            string
	SessionTTL      time.Duration
	SessionCleanup  time.Duration
	MaxUploadBytes  int64
	ShutdownTimeout time.Duration
}

// Server はコミック作成 UI の HTTP サーバーなのだ。
type Server struct {
	opts      Options
	generator Generator
	sessions  *SessionStore
	router    *http.ServeMux
	upgrader  websocket.Upgrader

	// baseCtx は生成処理に渡すコンテキスト。リクエストが終わっても生成は続くのだ。
	baseCtx context.Context
	running sync.WaitGroup
}

// New は依存関係を注入してサーバーを初期化します。
func New(gen Generator, opts Options) (*Server, error) {
	if gen == nil {
		return nil, fmt.Errorf("generator is required")
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = 2 * time.Hour
	}
	if opts.SessionCleanup <= 0 {
		opts.SessionCleanup = 10 * time.Minute
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 10 << 20
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}

	s := &Server{
		opts:      opts,
		generator: gen,
		sessions:  NewSessionStore(opts.SessionTTL, opts.SessionCleanup),
		router:    http.NewServeMux(),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 64 * 1024,
		},
		baseCtx: context.Background(),
	}
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.HandleFunc("GET /{$}", s.handleIndex)
	s.router.HandleFunc("GET /api/state", s.handleState)
	s.router.HandleFunc("POST /api/characters", s.handleAddCharacter)
	s.router.HandleFunc("PATCH /api/characters/{id}", s.handleRenameCharacter)
	s.router.HandleFunc("PUT /api/characters/{id}/image", s.handleUploadImage)
	s.router.HandleFunc("DELETE /api/characters/{id}", s.handleRemoveCharacter)
	s.router.HandleFunc("PUT /api/story", s.handleSetStory)
	s.router.HandleFunc("POST /api/generate", s.handleGenerate)
	s.router.HandleFunc("GET /ws", s.handleWebSocket)
}

// Handler はミドルウェア込みの http.Handler を返します。
func (s *Server) Handler() http.Handler {
	return logRequests(s.router)
}

// Run は ctx が終了するまでリッスンし、終了したら進行中のリクエストを待ってから停止するのだ。
func (s *Server) Run(ctx context.Context) error {
	s.baseCtx = ctx
	srv := &http.Server{
		Addr:              s.opts.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("HTTPサーバーを起動するのだ", "addr", s.opts.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("HTTPサーバーの起動に失敗しました: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("HTTPサーバーを停止するのだ...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTPサーバーの停止に失敗しました: %w", err)
	}
	s.Wait()
	return nil
}

// Wait は進行中の生成処理がすべて終わるまで待ちます。
func (s *Server) Wait() {
	s.running.Wait()
}

// session はクッキーに対応するセッションを返すのだ。なければ作成してクッキーを発行します。
func (s *Server) session(w http.ResponseWriter, r *http.Request) *workflow.Session {
	if c, err := r.Cookie(sessionCookieName); err == nil {
		if sess, ok := s.sessions.Get(c.Value); ok {
			return sess
		}
	}
	sess := s.sessions.Create()
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sess.ID(),
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	slog.Info("新しいセッションを作成したのだ", "session_id", sess.ID())
	return sess
}

// statusRecorder はレスポンスのステータスコードを記録します。
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// Hijack は WebSocket のアップグレードのために元の ResponseWriter へ委譲するのだ。
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	h, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	r.status = http.StatusSwitchingProtocols
	return h.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		slog.Debug("HTTP request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start).Round(time.Millisecond))
	})
}

package server

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shouni/go-comic-kit/pkg/domain"
)

const wsWriteTimeout = 10 * time.Second

// latestState は未送信の状態を最新の1件だけ保持する workflow.Publisher なのだ。
// 送信が詰まっても古い状態を捨てるだけなので、最後の遷移（Done / Error）は必ず残ります。
type latestState struct {
	mu sync.Mutex
	ch chan domain.State
}

func newLatestState() *latestState {
	return &latestState{ch: make(chan domain.State, 1)}
}

// Publish は古い未送信の状態を置き換えるのだ。ブロックしません。
func (l *latestState) Publish(st domain.State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	select {
	case <-l.ch:
	default:
	}
	l.ch <- st
}

func (l *latestState) C() <-chan domain.State {
	return l.ch
}

// handleWebSocket はセッション状態の変化を JSON でプッシュし続けるのだ。
// 接続直後に現在の状態を1回送り、その後は遷移ごとに送ります。
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	conn, err := s.upgrader.Upgrade(w, r, w.Header())
	if err != nil {
		slog.Warn("WebSocket へのアップグレードに失敗したのだ", "error", err)
		return
	}
	defer conn.Close()

	// 状態は毎回全体を送るので、途中の遷移は最新で上書きしてよいのだ
	updates := newLatestState()
	initial, unsubscribe := sess.Subscribe(updates)
	defer unsubscribe()

	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	if err := writeState(conn, initial); err != nil {
		return
	}
	for {
		select {
		case st := <-updates.C():
			if err := writeState(conn, st); err != nil {
				slog.Debug("WebSocket の送信に失敗したのだ", "session_id", sess.ID(), "error", err)
				return
			}
		case <-closed:
			return
		case <-r.Context().Done():
			return
		}
	}
}

func writeState(conn *websocket.Conn, st domain.State) error {
	if err := conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return err
	}
	return conn.WriteJSON(newStateResponse(st))
}

package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// ErrorResponse is the JSON body returned for failed API calls.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StateResponse はセッション状態に画面表示用の情報を加えたものなのだ。
type StateResponse struct {
	domain.State
	Message    string `json:"message"`
	Generating bool   `json:"generating"`
	CanAdd     bool   `json:"can_add"`
}

func newStateResponse(st domain.State) StateResponse {
	return StateResponse{
		State:      st,
		Message:    st.LoadingMessage(),
		Generating: st.Phase.IsGenerating(),
		CanAdd:     len(st.Characters) < domain.MaxCharacters,
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("レスポンスの書き込みに失敗したのだ", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

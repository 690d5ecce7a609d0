package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/encoder"
	"github.com/shouni/go-comic-kit/pkg/workflow"
)

const maxJSONBodyBytes = 64 << 10

type renameRequest struct {
	Name string `json:"name"`
}

type storyRequest struct {
	Story string `json:"story"`
}

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	writeJSON(w, http.StatusOK, newStateResponse(sess.Snapshot()))
}

func (s *Server) handleAddCharacter(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if _, err := sess.AddCharacter(); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newStateResponse(sess.Snapshot()))
}

func (s *Server) handleRenameCharacter(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var req renameRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの形式が正しくないのだ")
		return
	}
	if err := sess.RenameCharacter(r.PathValue("id"), req.Name); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(sess.Snapshot()))
}

func (s *Server) handleUploadImage(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	r.Body = http.MaxBytesReader(w, r.Body, s.opts.MaxUploadBytes)
	if err := r.ParseMultipartForm(s.opts.MaxUploadBytes); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeError(w, http.StatusRequestEntityTooLarge, "画像ファイルが大きすぎるのだ")
			return
		}
		writeError(w, http.StatusBadRequest, "multipart フォームの解析に失敗したのだ")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image フィールドが必要なのだ")
		return
	}
	defer file.Close()

	img, err := encoder.Encode(file, header.Header.Get("Content-Type"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	// 申告されたメディアタイプが使えない場合は中身から判定し直すのだ
	if encoder.ValidateMIMEType(img.MIMEType) != nil {
		img.MIMEType = encoder.DetectMIMEType(img.Data)
	}
	if err := encoder.ValidateMIMEType(img.MIMEType); err != nil {
		writeError(w, http.StatusUnsupportedMediaType, "PNG / JPEG / WEBP の画像を選んでほしいのだ")
		return
	}

	if err := sess.SetCharacterImage(r.PathValue("id"), img); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(sess.Snapshot()))
}

func (s *Server) handleRemoveCharacter(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	if err := sess.RemoveCharacter(r.PathValue("id")); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newStateResponse(sess.Snapshot()))
}

func (s *Server) handleSetStory(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	var req storyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "リクエストの形式が正しくないのだ")
		return
	}
	sess.SetStory(req.Story)
	writeJSON(w, http.StatusOK, newStateResponse(sess.Snapshot()))
}

// handleGenerate は生成をバックグラウンドで開始してすぐに 202 を返すのだ。
// 実行中フラグはこのハンドラ内で確保するので、重なったリクエストは 409 になります。
// 進捗と結果は /api/state と /ws で確認します。
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	sess := s.session(w, r)
	run, err := s.generator.Start(sess)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.running.Add(1)
	go func() {
		defer s.running.Done()
		if err := run(s.baseCtx); err != nil {
			slog.Warn("コミック生成が完了しなかったのだ", "session_id", sess.ID(), "error", err)
		}
	}()

	writeJSON(w, http.StatusAccepted, newStateResponse(sess.Snapshot()))
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// writeDomainError はドメインエラーを HTTP ステータスに対応づけて返します。
func writeDomainError(w http.ResponseWriter, err error) {
	var ee *domain.EncodingError
	switch {
	case errors.Is(err, domain.ErrRosterFull), errors.Is(err, domain.ErrRosterMinimum),
		errors.Is(err, workflow.ErrGenerationInProgress):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrCharacterNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, encoder.ErrUnsupportedMIMEType):
		writeError(w, http.StatusUnsupportedMediaType, err.Error())
	case errors.As(err, &ee):
		writeError(w, http.StatusBadRequest, domain.UserMessage(err))
	default:
		slog.Error("想定外のエラーなのだ", "error", err)
		writeError(w, http.StatusInternalServerError, domain.MsgUnknown)
	}
}

package domain

import (
	"errors"
	"fmt"
)

const (
	MsgStoryRequired      = "Please enter a story prompt."
	MsgCharactersRequired = "Please provide a name and image for each character."
	MsgDecompositionFail  = "Could not generate panel descriptions. Please try refining your story."
	MsgSynthesisFail      = "Could not generate the comic panel image."
	MsgEncodingFail       = "Could not read the character image."
	MsgUnknown            = "An unknown error occurred."
)

// ValidationError はネットワーク呼び出し前の入力チェックで弾かれたことを表すのだ。
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string {
	return "入力エラー: " + e.Message
}

// DecompositionError は物語のパネル分割に失敗したことを表します。
type DecompositionError struct {
	Err error
}

func (e *DecompositionError) Error() string {
	return fmt.Sprintf("パネル分割に失敗しました: %v", e.Err)
}

func (e *DecompositionError) Unwrap() error { return e.Err }

// SynthesisError は1コマ分の画像生成に失敗したことを表します。
type SynthesisError struct {
	PanelID string
	Err     error
}

func (e *SynthesisError) Error() string {
	if e.PanelID == "" {
		return fmt.Sprintf("パネル画像の生成に失敗しました: %v", e.Err)
	}
	return fmt.Sprintf("パネル画像の生成に失敗しました (panel: %s): %v", e.PanelID, e.Err)
}

func (e *SynthesisError) Unwrap() error { return e.Err }

// EncodingError は参照画像の読み込みに失敗したことを表します。
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("画像のエンコードに失敗しました: %v", e.Err)
}

func (e *EncodingError) Unwrap() error { return e.Err }

// UserMessage はエラーを画面に表示する1行のメッセージへ変換するのだ。
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var (
		ve *ValidationError
		de *DecompositionError
		se *SynthesisError
		ee *EncodingError
	)
	switch {
	case errors.As(err, &ve):
		return ve.Message
	case errors.As(err, &de):
		return MsgDecompositionFail
	case errors.As(err, &se):
		return MsgSynthesisFail
	case errors.As(err, &ee):
		return MsgEncodingFail
	default:
		return MsgUnknown
	}
}

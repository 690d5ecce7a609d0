package encoder

import (
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// AcceptedMIMETypes はキャラクター画像として受け付けるメディアタイプなのだ。
var AcceptedMIMETypes = []string{"image/png", "image/jpeg", "image/webp"}

var ErrUnsupportedMIMEType = errors.New("サポートされていない画像形式なのだ")

// Encode は r を最後まで読み込み、base64 文字列と渡されたメディアタイプを
// そのまま保持した CharacterImage を返します。
func Encode(r io.Reader, mimeType string) (domain.CharacterImage, error) {
	if r == nil {
		return domain.CharacterImage{}, &domain.EncodingError{Err: errors.New("reader is required")}
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return domain.CharacterImage{}, &domain.EncodingError{Err: err}
	}
	return domain.CharacterImage{
		Data:     data,
		Base64:   base64.StdEncoding.EncodeToString(data),
		MIMEType: mimeType,
	}, nil
}

// EncodeFile はローカルファイルを読み込み、内容からメディアタイプを判定してエンコードするのだ。
func EncodeFile(path string) (domain.CharacterImage, error) {
	f, err := os.Open(path)
	if err != nil {
		return domain.CharacterImage{}, &domain.EncodingError{Err: err}
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return domain.CharacterImage{}, &domain.EncodingError{Err: err}
	}
	return EncodeBytes(data)
}

// EncodeBytes はバイト列の先頭からメディアタイプを判定し、画像でなければエラーにします。
func EncodeBytes(data []byte) (domain.CharacterImage, error) {
	mimeType := DetectMIMEType(data)
	if err := ValidateMIMEType(mimeType); err != nil {
		return domain.CharacterImage{}, &domain.EncodingError{Err: err}
	}
	return domain.CharacterImage{
		Data:     data,
		Base64:   base64.StdEncoding.EncodeToString(data),
		MIMEType: mimeType,
	}, nil
}

// DetectMIMEType は http.DetectContentType の結果からパラメータ部分を取り除いて返すのだ。
func DetectMIMEType(data []byte) string {
	mimeType := http.DetectContentType(data)
	if i := strings.Index(mimeType, ";"); i >= 0 {
		mimeType = mimeType[:i]
	}
	return strings.TrimSpace(mimeType)
}

// ValidateMIMEType は受け付け可能な画像形式かどうかを確認します。
func ValidateMIMEType(mimeType string) error {
	for _, m := range AcceptedMIMETypes {
		if strings.EqualFold(m, mimeType) {
			return nil
		}
	}
	return fmt.Errorf("%w: %q", ErrUnsupportedMIMEType, mimeType)
}

// DataURI は data:<mime>;base64,<data> 形式の文字列を組み立てるのだ。
func DataURI(mimeType, b64 string) string {
	return "data:" + mimeType + ";base64," + b64
}

// DecodeDataURI は DataURI で組み立てた文字列をメディアタイプとバイト列に戻します。
func DecodeDataURI(uri string) (string, []byte, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", nil, fmt.Errorf("data URI ではないのだ: %q", truncate(uri, 32))
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return "", nil, fmt.Errorf("data URI にデータ部がないのだ")
	}
	mimeType, ok := strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", nil, fmt.Errorf("base64 以外の data URI には対応していないのだ")
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return "", nil, fmt.Errorf("data URI のデコードに失敗しました: %w", err)
	}
	return mimeType, data, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

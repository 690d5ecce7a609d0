package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	// MinCharacters はロスターに常に残るキャラクター枠の最小数なのだ。
	MinCharacters = 1
	// MaxCharacters はロスターに追加できるキャラクター枠の最大数なのだ。
	MaxCharacters = 5
)

var (
	ErrRosterFull        = errors.New("キャラクターは最大5人までなのだ")
	ErrRosterMinimum     = errors.New("キャラクターは最低1人必要なのだ")
	ErrCharacterNotFound = errors.New("指定されたキャラクターが見つからないのだ")
)

// CharacterImage はユーザーが選択した1枚の参照画像をエンコードしたものです。
// 一度作成したら変更しません。
type CharacterImage struct {
	Data     []byte `json:"-"`
	Base64   string `json:"base64"`
	MIMEType string `json:"mime_type"`
}

// Character は名前と参照画像を持つ登場人物なのだ。Image が nil のときは画像未設定。
type Character struct {
	ID    string          `json:"id"`
	Name  string          `json:"name"`
	Image *CharacterImage `json:"image,omitempty"`
}

// NewCharacter は新しいIDを持つ空のキャラクター枠を生成します。
func NewCharacter() Character {
	return Character{ID: uuid.NewString()}
}

// IsComplete は名前と画像の両方がそろっているかを返すのだ。
func (c Character) IsComplete() bool {
	return strings.TrimSpace(c.Name) != "" && c.Image != nil
}

// String はキャラクターの情報を文字列で返すのだ。
func (c Character) String() string {
	return fmt.Sprintf("%s (%s)", c.Name, c.ID)
}

// Roster は 1〜5 人のキャラクター枠を順序付きで保持します。
type Roster struct {
	characters []Character
}

// NewRoster は空の枠を1つ持つロスターを返すのだ。
func NewRoster() *Roster {
	return &Roster{characters: []Character{NewCharacter()}}
}

// Len は現在の枠数です。
func (r *Roster) Len() int {
	return len(r.characters)
}

// Characters はロスターのコピーを返します。
func (r *Roster) Characters() []Character {
	return CloneCharacters(r.characters)
}

// Add は空の枠を末尾に追加するのだ。上限に達していたら何もせず ErrRosterFull を返すのだ。
func (r *Roster) Add() (Character, error) {
	if len(r.characters) >= MaxCharacters {
		return Character{}, ErrRosterFull
	}
	c := NewCharacter()
	r.characters = append(r.characters, c)
	return c, nil
}

// Remove は指定IDの枠を削除します。最後の1枠は削除できません。
func (r *Roster) Remove(id string) error {
	idx := r.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrCharacterNotFound, id)
	}
	if len(r.characters) <= MinCharacters {
		return ErrRosterMinimum
	}
	r.characters = append(r.characters[:idx:idx], r.characters[idx+1:]...)
	return nil
}

// Rename は指定IDのキャラクター名を更新します。
func (r *Roster) Rename(id, name string) error {
	idx := r.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrCharacterNotFound, id)
	}
	r.characters[idx].Name = name
	return nil
}

// SetImage は指定IDのキャラクターに参照画像を設定します。
func (r *Roster) SetImage(id string, img CharacterImage) error {
	idx := r.indexOf(id)
	if idx < 0 {
		return fmt.Errorf("%w: %s", ErrCharacterNotFound, id)
	}
	r.characters[idx].Image = &img
	return nil
}

func (r *Roster) indexOf(id string) int {
	for i, c := range r.characters {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// WithImages は画像が設定されているキャラクターだけを順序を保って返すのだ。
func WithImages(chars []Character) []Character {
	var out []Character
	for _, c := range chars {
		if c.Image != nil {
			out = append(out, c)
		}
	}
	return out
}

// JoinNames はキャラクター名を " and " でつないだ文字列を返します。
func JoinNames(chars []Character) string {
	names := make([]string, 0, len(chars))
	for _, c := range chars {
		names = append(names, c.Name)
	}
	return strings.Join(names, " and ")
}

// CloneCharacters はスライスと画像ポインタの防御的コピーを行う内部ヘルパーなのだ。
func CloneCharacters(src []Character) []Character {
	if src == nil {
		return nil
	}
	out := make([]Character, len(src))
	for i, c := range src {
		out[i] = c
		if c.Image != nil {
			img := *c.Image
			out[i].Image = &img
		}
	}
	return out
}

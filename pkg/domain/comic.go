package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// Panel はコミックの1コマです。ImageURL が空のときは画像未生成なのだ。
type Panel struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	ImageURL    string `json:"image_url,omitempty"`
}

// NewPanels は説明文の順序どおりに、画像なしのパネルを一括生成するのだ。
func NewPanels(descriptions []string) []Panel {
	panels := make([]Panel, 0, len(descriptions))
	for _, d := range descriptions {
		panels = append(panels, Panel{ID: uuid.NewString(), Description: d})
	}
	return panels
}

// HasImage reports whether the panel image has been synthesized.
func (p Panel) HasImage() bool {
	return p.ImageURL != ""
}

// Phase は生成ワークフローの現在の段階です。
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseGeneratingStory
	PhaseGeneratingPanels
	PhaseDone
	PhaseError
)

var phaseNames = map[Phase]string{
	PhaseIdle:             "idle",
	PhaseGeneratingStory:  "generating_story",
	PhaseGeneratingPanels: "generating_panels",
	PhaseDone:             "done",
	PhaseError:            "error",
}

func (p Phase) String() string {
	if s, ok := phaseNames[p]; ok {
		return s
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// IsGenerating は生成処理が進行中の段階かどうかを返すのだ。
func (p Phase) IsGenerating() bool {
	return p == PhaseGeneratingStory || p == PhaseGeneratingPanels
}

func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *Phase) UnmarshalText(b []byte) error {
	for k, v := range phaseNames {
		if v == string(b) {
			*p = k
			return nil
		}
	}
	return fmt.Errorf("不明なフェーズなのだ: %q", string(b))
}

const (
	loadingStoryMessage = "Breaking down your story into epic panels..."
	loadingPanelsFormat = "Bringing your comic to life... (Panel %d of %d)"
	loadingDoneMessage  = "Your comic is ready! POW!"
)

// State はセッション1つ分の画面状態（ロスター、物語、パネル、フェーズ、エラー）なのだ。
type State struct {
	Characters []Character `json:"characters"`
	Story      string      `json:"story"`
	Panels     []Panel     `json:"panels"`
	Phase      Phase       `json:"phase"`
	Error      string      `json:"error,omitempty"`
}

// Clone はスライスを含めたディープコピーを返します。
func (s State) Clone() State {
	out := s
	out.Characters = CloneCharacters(s.Characters)
	if s.Panels != nil {
		out.Panels = make([]Panel, len(s.Panels))
		copy(out.Panels, s.Panels)
	}
	return out
}

// CompletedPanels は画像生成が済んだパネル数です。
func (s State) CompletedPanels() int {
	n := 0
	for _, p := range s.Panels {
		if p.HasImage() {
			n++
		}
	}
	return n
}

// LoadingMessage はフェーズに応じたローディング表示の文言を返すのだ。
func (s State) LoadingMessage() string {
	switch s.Phase {
	case PhaseGeneratingStory:
		return loadingStoryMessage
	case PhaseGeneratingPanels:
		return fmt.Sprintf(loadingPanelsFormat, s.CompletedPanels()+1, len(s.Panels))
	case PhaseDone:
		return loadingDoneMessage
	default:
		return ""
	}
}

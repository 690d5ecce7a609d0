package workflow

import (
	"context"

	"github.com/shouni/go-comic-kit/pkg/domain"
)

// Decomposer は物語を順序付きのパネル説明に分割する責務を持ちます。
type Decomposer interface {
	Decompose(ctx context.Context, story string, panelCount int) ([]string, error)
}

// Synthesizer は1コマ分の説明とキャラクターから画像（data URI）を生成する責務を持ちます。
type Synthesizer interface {
	Synthesize(ctx context.Context, description string, characters []domain.Character) (string, error)
}

// Publisher はセッション状態のスナップショットを受け取る通知先です。
// 状態遷移と同じ順序で呼ばれるため、呼び出し中にブロックしすぎないこと。
type Publisher interface {
	Publish(state domain.State)
}

// PublisherFunc は関数を Publisher として扱うためのアダプターなのだ。
type PublisherFunc func(state domain.State)

func (f PublisherFunc) Publish(state domain.State) { f(state) }

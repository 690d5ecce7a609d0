package workflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/shouni/go-comic-kit/pkg/config"
	"github.com/shouni/go-comic-kit/pkg/domain"
)

// ErrGenerationInProgress は同じセッションで生成処理がすでに走っているときに返すのだ。
var ErrGenerationInProgress = errors.New("このセッションではすでにコミックを生成中なのだ")

// Orchestrator はパネル分割と画像生成を順番に呼び出し、セッション状態を遷移させるワークフローです。
type Orchestrator struct {
	cfg         config.Config
	decomposer  Decomposer
	synthesizer Synthesizer
}

// NewOrchestrator は依存関係を注入して初期化します。
func NewOrchestrator(cfg config.Config, decomposer Decomposer, synthesizer Synthesizer) (*Orchestrator, error) {
	if decomposer == nil {
		return nil, fmt.Errorf("decomposer is required")
	}
	if synthesizer == nil {
		return nil, fmt.Errorf("synthesizer is required")
	}
	return &Orchestrator{
		cfg:         cfg,
		decomposer:  decomposer,
		synthesizer: synthesizer,
	}, nil
}

// Generate はセッションの物語とキャラクターからコミックを生成するのだ。
//
// 入力チェックに失敗した場合はエラーメッセージだけを更新し、フェーズは変えません。
// 以降の失敗はフェーズを Error にして処理を止めます。いずれの場合も画面向けの
// メッセージはセッション状態に載り、戻り値には元の型付きエラーを返します。
// 同じセッションで実行中なら ErrGenerationInProgress を返し、状態には触れません。
func (o *Orchestrator) Generate(ctx context.Context, s *Session) error {
	run, err := o.Start(s)
	if err != nil {
		return err
	}
	return run(ctx)
}

// Start は呼び出し元のゴルーチンでセッションの実行中フラグを確保し、生成本体を返すのだ。
// 確保できなければ ErrGenerationInProgress を返します。
// 返された関数は必ず1回呼ぶこと。終了時にフラグを解放します。
func (o *Orchestrator) Start(s *Session) (func(ctx context.Context) error, error) {
	if !s.begin() {
		return nil, ErrGenerationInProgress
	}
	var once sync.Once
	return func(ctx context.Context) error {
		err := ErrGenerationInProgress
		once.Do(func() {
			defer s.end()
			err = o.run(ctx, s)
		})
		return err
	}, nil
}

func (o *Orchestrator) run(ctx context.Context, s *Session) error {
	snap := s.Snapshot()
	if err := validate(snap); err != nil {
		_ = s.update(func(st *domain.State) error {
			st.Error = domain.UserMessage(err)
			return nil
		})
		return err
	}
	story := snap.Story
	characters := snap.Characters

	logger := slog.With("session_id", s.ID())
	start := time.Now()

	// 1. 前回の結果をクリアして分割フェーズへ
	_ = s.update(func(st *domain.State) error {
		st.Error = ""
		st.Panels = nil
		st.Phase = domain.PhaseGeneratingStory
		return nil
	})

	// 2. パネル分割
	logger.InfoContext(ctx, "物語のパネル分割を開始するのだ", "characters", len(characters))
	descriptions, err := o.decomposer.Decompose(ctx, story, o.cfg.PanelCountOrDefault())
	if err != nil {
		var de *domain.DecompositionError
		if !errors.As(err, &de) {
			err = &domain.DecompositionError{Err: err}
		}
		return o.fail(ctx, logger, s, err)
	}

	// 3. 画像なしのパネルを一括生成
	panels := domain.NewPanels(descriptions)
	_ = s.update(func(st *domain.State) error {
		st.Panels = append([]domain.Panel(nil), panels...)
		st.Phase = domain.PhaseGeneratingPanels
		return nil
	})

	// 4. 1コマずつ順番に画像生成
	for i, panel := range panels {
		panelLogger := logger.With("panel_index", i+1, "panel_id", panel.ID)
		panelStart := time.Now()

		imageURL, err := o.synthesizer.Synthesize(ctx, panel.Description, characters)
		if err != nil {
			var se *domain.SynthesisError
			if errors.As(err, &se) {
				se.PanelID = panel.ID
			} else {
				err = &domain.SynthesisError{PanelID: panel.ID, Err: err}
			}
			return o.fail(ctx, panelLogger, s, err)
		}

		id := panel.ID
		_ = s.update(func(st *domain.State) error {
			for j := range st.Panels {
				if st.Panels[j].ID == id {
					st.Panels[j].ImageURL = imageURL
					break
				}
			}
			return nil
		})
		panelLogger.InfoContext(ctx, "パネル画像の生成が完了したのだ",
			"total", len(panels),
			"duration", time.Since(panelStart).Round(time.Millisecond))
	}

	// 5. 完了
	_ = s.update(func(st *domain.State) error {
		st.Phase = domain.PhaseDone
		return nil
	})
	logger.InfoContext(ctx, "コミックが完成したのだ！",
		"panels", len(panels),
		"duration", time.Since(start).Round(time.Millisecond))
	return nil
}

// fail はフェーズを Error にして画面向けメッセージを配信するのだ。
func (o *Orchestrator) fail(ctx context.Context, logger *slog.Logger, s *Session, err error) error {
	msg := domain.UserMessage(err)
	logger.ErrorContext(ctx, "コミック生成に失敗したのだ", "error", err)
	_ = s.update(func(st *domain.State) error {
		st.Phase = domain.PhaseError
		st.Error = msg
		return nil
	})
	return err
}

// validate はネットワーク呼び出し前の入力チェックです。
func validate(st domain.State) error {
	if strings.TrimSpace(st.Story) == "" {
		return &domain.ValidationError{Message: domain.MsgStoryRequired}
	}
	for _, c := range st.Characters {
		if !c.IsComplete() {
			return &domain.ValidationError{Message: domain.MsgCharactersRequired}
		}
	}
	return nil
}

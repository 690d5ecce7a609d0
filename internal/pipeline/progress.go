package pipeline

import (
	"log/slog"
	"sync"

	"github.com/shouni/go-comic-kit/pkg/domain"

	"github.com/schollz/progressbar/v3"
)

// progressReporter はセッションの遷移を端末のプログレスバーへ反映する Publisher なのだ。
// バーはパネル数が確定してから作ります。
type progressReporter struct {
	mu        sync.Mutex
	bar       *progressbar.ProgressBar
	lastPhase domain.Phase
	newBar    func(max int, description string) *progressbar.ProgressBar
}

func newProgressReporter() *progressReporter {
	return &progressReporter{
		lastPhase: domain.PhaseIdle,
		newBar: func(max int, description string) *progressbar.ProgressBar {
			return progressbar.Default(int64(max), description)
		},
	}
}

// Publish は workflow.Publisher を満たします。
func (p *progressReporter) Publish(st domain.State) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if st.Phase != p.lastPhase {
		p.lastPhase = st.Phase
		switch st.Phase {
		case domain.PhaseGeneratingStory, domain.PhaseDone:
			slog.Info(st.LoadingMessage())
		case domain.PhaseError:
			slog.Error("コミック生成に失敗したのだ", "error", st.Error)
		}
	}

	if st.Phase != domain.PhaseGeneratingPanels && st.Phase != domain.PhaseDone {
		return
	}
	if p.bar == nil {
		if len(st.Panels) == 0 {
			return
		}
		p.bar = p.newBar(len(st.Panels), "パネル生成")
	}
	if msg := st.LoadingMessage(); msg != "" && st.Phase == domain.PhaseGeneratingPanels {
		p.bar.Describe(msg)
	}
	_ = p.bar.Set(st.CompletedPanels())
}

// Finish は全パネルが揃ったときだけバーを完了表示にするのだ。
func (p *progressReporter) Finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar != nil && p.lastPhase == domain.PhaseDone {
		_ = p.bar.Finish()
	}
}

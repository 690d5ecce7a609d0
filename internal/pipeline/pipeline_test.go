package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/workflow"

	"github.com/schollz/progressbar/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01")

type mockFetcher struct {
	fetchFn func(ctx context.Context, url string) ([]byte, error)
}

func (m *mockFetcher) FetchBytes(ctx context.Context, url string) ([]byte, error) {
	return m.fetchFn(ctx, url)
}

type mockOpener struct {
	opened []string
	openFn func(ctx context.Context, uri string) (io.ReadCloser, error)
}

func (m *mockOpener) Open(ctx context.Context, uri string) (io.ReadCloser, error) {
	m.opened = append(m.opened, uri)
	return m.openFn(ctx, uri)
}

func TestLoadStory(t *testing.T) {
	files := map[string]string{"gs://stories/story.txt": "ファイルの物語"}
	newOpener := func() *mockOpener {
		return &mockOpener{openFn: func(_ context.Context, uri string) (io.ReadCloser, error) {
			body, ok := files[uri]
			if !ok {
				return nil, errors.New("object not found")
			}
			return io.NopCloser(strings.NewReader(body)), nil
		}}
	}

	tests := []struct {
		name       string
		opts       config.GenerateOptions
		stdin      string
		want       string
		wantOpened []string
		wantErr    bool
	}{
		{name: "フラグ優先", opts: config.GenerateOptions{Story: "直接の物語", StoryFile: "gs://stories/story.txt"}, want: "直接の物語"},
		{name: "ファイルはリーダー経由", opts: config.GenerateOptions{StoryFile: "gs://stories/story.txt"}, want: "ファイルの物語", wantOpened: []string{"gs://stories/story.txt"}},
		{name: "標準入力", opts: config.GenerateOptions{StoryFile: "-"}, stdin: "標準入力の物語", want: "標準入力の物語"},
		{name: "未指定", opts: config.GenerateOptions{}, wantErr: true},
		{name: "存在しないファイル", opts: config.GenerateOptions{StoryFile: "gs://stories/missing.txt"}, wantOpened: []string{"gs://stories/missing.txt"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opener := newOpener()
			got, err := loadStory(context.Background(), tt.opts, opener, strings.NewReader(tt.stdin))
			assert.Equal(t, tt.wantOpened, opener.opened)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	t.Run("リーダー未設定", func(t *testing.T) {
		_, err := loadStory(context.Background(), config.GenerateOptions{StoryFile: "story.txt"}, nil, strings.NewReader(""))
		assert.Error(t, err)
	})
}

func TestParseCharacterFlags(t *testing.T) {
	t.Run("正常系", func(t *testing.T) {
		got, err := parseCharacterFlags([]string{"Astro=astro.png", " Nova = https://example.com/nova.png "})
		require.NoError(t, err)
		assert.Equal(t, []characterSource{
			{Name: "Astro", Source: "astro.png"},
			{Name: "Nova", Source: "https://example.com/nova.png"},
		}, got)
	})

	t.Run("未指定は入力エラー", func(t *testing.T) {
		_, err := parseCharacterFlags(nil)
		var ve *domain.ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, domain.MsgCharactersRequired, ve.Message)
	})

	t.Run("不正な形式はまとめて報告", func(t *testing.T) {
		_, err := parseCharacterFlags([]string{"noequals", "=path.png", "Astro="})
		require.Error(t, err)
		for _, n := range []string{"#1", "#2", "#3"} {
			assert.Contains(t, err.Error(), n)
		}
	})

	t.Run("上限超過", func(t *testing.T) {
		flags := make([]string, domain.MaxCharacters+1)
		for i := range flags {
			flags[i] = "c=p.png"
		}
		_, err := parseCharacterFlags(flags)
		assert.Error(t, err)
	})
}

func TestLoadCharacterImages(t *testing.T) {
	dir := t.TempDir()
	local := filepath.Join(dir, "astro.png")
	require.NoError(t, os.WriteFile(local, pngBytes, 0o644))

	t.Run("ローカルとURLを指定順で読み込む", func(t *testing.T) {
		fetcher := &mockFetcher{fetchFn: func(_ context.Context, url string) ([]byte, error) {
			assert.Equal(t, "https://example.com/nova.png", url)
			return pngBytes, nil
		}}
		images, err := loadCharacterImages(context.Background(), fetcher, []characterSource{
			{Name: "Astro", Source: local},
			{Name: "Nova", Source: "https://example.com/nova.png"},
		})
		require.NoError(t, err)
		require.Len(t, images, 2)
		for _, img := range images {
			assert.Equal(t, "image/png", img.MIMEType)
			assert.NotEmpty(t, img.Base64)
		}
	})

	t.Run("取得失敗はエンコードエラー", func(t *testing.T) {
		fetcher := &mockFetcher{fetchFn: func(context.Context, string) ([]byte, error) {
			return nil, errors.New("404")
		}}
		_, err := loadCharacterImages(context.Background(), fetcher, []characterSource{
			{Name: "Nova", Source: "https://example.com/nova.png"},
		})
		var ee *domain.EncodingError
		assert.True(t, errors.As(err, &ee))
		assert.Contains(t, err.Error(), "Nova")
	})

	t.Run("画像以外は拒否", func(t *testing.T) {
		text := filepath.Join(dir, "note.txt")
		require.NoError(t, os.WriteFile(text, []byte("hello"), 0o644))
		_, err := loadCharacterImages(context.Background(), nil, []characterSource{{Name: "Memo", Source: text}})
		var ee *domain.EncodingError
		assert.True(t, errors.As(err, &ee))
	})
}

func TestPopulateSession(t *testing.T) {
	s := workflow.NewSession()
	img := domain.CharacterImage{Base64: "AA==", MIMEType: "image/png"}
	err := populateSession(s, []characterSource{
		{Name: "Astro", Source: "a.png"},
		{Name: "Nova", Source: "b.png"},
	}, []domain.CharacterImage{img, img}, "宇宙の冒険")
	require.NoError(t, err)

	st := s.Snapshot()
	require.Len(t, st.Characters, 2)
	assert.Equal(t, "Astro", st.Characters[0].Name)
	assert.Equal(t, "Nova", st.Characters[1].Name)
	assert.True(t, st.Characters[0].IsComplete())
	assert.True(t, st.Characters[1].IsComplete())
	assert.Equal(t, "宇宙の冒険", st.Story)
}

func TestProgressReporter(t *testing.T) {
	var created int
	p := newProgressReporter()
	p.newBar = func(max int, description string) *progressbar.ProgressBar {
		created++
		assert.Equal(t, 2, max)
		return progressbar.NewOptions(max, progressbar.OptionSetWriter(io.Discard))
	}

	panels := []domain.Panel{{ID: "1", Description: "a"}, {ID: "2", Description: "b"}}
	p.Publish(domain.State{Phase: domain.PhaseGeneratingStory})
	assert.Nil(t, p.bar, "パネル数が決まるまでバーは作らないのだ")

	p.Publish(domain.State{Phase: domain.PhaseGeneratingPanels, Panels: panels})
	panels[0].ImageURL = "data:image/png;base64,AA=="
	p.Publish(domain.State{Phase: domain.PhaseGeneratingPanels, Panels: panels})
	panels[1].ImageURL = "data:image/png;base64,AA=="
	p.Publish(domain.State{Phase: domain.PhaseDone, Panels: panels})
	p.Finish()

	assert.Equal(t, 1, created)
	require.NotNil(t, p.bar)
	assert.Equal(t, domain.PhaseDone, p.lastPhase)
}

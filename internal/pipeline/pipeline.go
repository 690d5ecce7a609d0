package pipeline

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/shouni/go-comic-kit/internal/builder"
	"github.com/shouni/go-comic-kit/internal/config"
	"github.com/shouni/go-comic-kit/pkg/domain"
	"github.com/shouni/go-comic-kit/pkg/encoder"
	"github.com/shouni/go-comic-kit/pkg/workflow"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"
)

// stdinMarker は --story-file で標準入力を指定するための値なのだ。
const stdinMarker = "-"

// imageFetcher は URL 指定の参照画像を取得するための最小限の契約です。
type imageFetcher interface {
	FetchBytes(ctx context.Context, url string) ([]byte, error)
}

// storyOpener は --story-file の読み出し口なのだ。remoteio.InputReader が満たします。
type storyOpener interface {
	Open(ctx context.Context, uri string) (io.ReadCloser, error)
}

// characterSource は --character フラグ1つ分の解析結果なのだ。
type characterSource struct {
	Name   string
	Source string // ローカルパス、または http(s) の URL
}

// ExecuteGenerate は CLI から1回分のコミック生成を実行し、成果物を書き出すのだ。
// 生成に失敗しても、それまでに完成したパネルは書き出してからエラーを返します。
func ExecuteGenerate(ctx context.Context, cfg *config.Config) error {
	opts := cfg.Options

	sources, err := parseCharacterFlags(opts.Characters)
	if err != nil {
		return err
	}

	appCtx, err := builder.SetupAppContext(ctx, cfg)
	if err != nil {
		return fmt.Errorf("アプリケーションの初期化に失敗したのだ: %w", err)
	}

	story, err := loadStory(ctx, opts, appCtx.Reader, os.Stdin)
	if err != nil {
		return err
	}

	images, err := loadCharacterImages(ctx, appCtx.HTTPClient, sources)
	if err != nil {
		return err
	}

	session := workflow.NewSession()
	if err := populateSession(session, sources, images, story); err != nil {
		return err
	}

	orch, err := builder.BuildOrchestrator(appCtx)
	if err != nil {
		return err
	}

	progress := newProgressReporter()
	_, unsubscribe := session.Subscribe(progress)
	genErr := orch.Generate(ctx, session)
	unsubscribe()
	progress.Finish()

	final := session.Snapshot()
	if final.CompletedPanels() == 0 {
		return genErr
	}

	pubErr := publish(ctx, appCtx, final)
	if genErr == nil && pubErr == nil {
		return nil
	}
	var result *multierror.Error
	if genErr != nil {
		result = multierror.Append(result, genErr)
	}
	if pubErr != nil {
		result = multierror.Append(result, pubErr)
	}
	return result.ErrorOrNil()
}

func publish(ctx context.Context, appCtx *builder.AppContext, state domain.State) error {
	pr, err := builder.BuildPublishRunner(appCtx)
	if err != nil {
		return err
	}

	outputDir := appCtx.Options.OutputDir
	if outputDir == "" {
		outputDir = config.DefaultOutputDir
	}
	title := appCtx.Options.Title
	if title == "" {
		title = config.DefaultComicTitle
	}

	res, err := pr.Run(ctx, state, outputDir, title)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "成果物の保存が完了したのだ", "html", res.HTMLPath, "panels", state.CompletedPanels())
	return nil
}

// loadStory は --story、--story-file、標準入力の順に物語テキストを読み込むのだ。
// --story-file はローカルパスでも gs:// でも構いません。
func loadStory(ctx context.Context, opts config.GenerateOptions, opener storyOpener, stdin io.Reader) (string, error) {
	if opts.Story != "" {
		return opts.Story, nil
	}

	var (
		data []byte
		err  error
	)
	switch opts.StoryFile {
	case "":
		return "", &domain.ValidationError{Message: domain.MsgStoryRequired}
	case stdinMarker:
		data, err = io.ReadAll(stdin)
	default:
		data, err = readAll(ctx, opener, opts.StoryFile)
	}
	if err != nil {
		return "", fmt.Errorf("物語の読み込みに失敗したのだ: %w", err)
	}
	return string(data), nil
}

func readAll(ctx context.Context, opener storyOpener, uri string) ([]byte, error) {
	if opener == nil {
		return nil, fmt.Errorf("入力リーダーが未設定なのだ")
	}
	rc, err := opener.Open(ctx, uri)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// parseCharacterFlags は "name=path|url" 形式のフラグを解析します。
// 問題はまとめて報告するのだ。
func parseCharacterFlags(flags []string) ([]characterSource, error) {
	var errs *multierror.Error
	if len(flags) < domain.MinCharacters {
		errs = multierror.Append(errs, &domain.ValidationError{Message: domain.MsgCharactersRequired})
	}
	if len(flags) > domain.MaxCharacters {
		errs = multierror.Append(errs, fmt.Errorf("キャラクターは最大 %d 人までなのだ: %d 人指定されています", domain.MaxCharacters, len(flags)))
	}

	sources := make([]characterSource, 0, len(flags))
	for i, f := range flags {
		name, src, ok := strings.Cut(f, "=")
		name = strings.TrimSpace(name)
		src = strings.TrimSpace(src)
		if !ok || name == "" || src == "" {
			errs = multierror.Append(errs, fmt.Errorf("--character #%d の形式が不正なのだ (name=path|url): %q", i+1, f))
			continue
		}
		sources = append(sources, characterSource{Name: name, Source: src})
	}

	if err := errs.ErrorOrNil(); err != nil {
		return nil, err
	}
	return sources, nil
}

func isURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// loadCharacterImages は参照画像を並行して読み込み、指定順のまま返すのだ。
func loadCharacterImages(ctx context.Context, fetcher imageFetcher, sources []characterSource) ([]domain.CharacterImage, error) {
	images := make([]domain.CharacterImage, len(sources))
	eg, egCtx := errgroup.WithContext(ctx)

	for i, src := range sources {
		eg.Go(func() error {
			img, err := loadCharacterImage(egCtx, fetcher, src.Source)
			if err != nil {
				return fmt.Errorf("キャラクター %q の画像を読み込めなかったのだ: %w", src.Name, err)
			}
			images[i] = img
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return images, nil
}

func loadCharacterImage(ctx context.Context, fetcher imageFetcher, source string) (domain.CharacterImage, error) {
	if !isURL(source) {
		return encoder.EncodeFile(source)
	}
	if fetcher == nil {
		return domain.CharacterImage{}, &domain.EncodingError{Err: fmt.Errorf("HTTP クライアントが未設定なのだ")}
	}
	data, err := fetcher.FetchBytes(ctx, source)
	if err != nil {
		return domain.CharacterImage{}, &domain.EncodingError{Err: err}
	}
	return encoder.EncodeBytes(data)
}

// populateSession は初期枠を含むロスターへキャラクターを順に流し込むのだ。
func populateSession(s *workflow.Session, sources []characterSource, images []domain.CharacterImage, story string) error {
	for i, src := range sources {
		var id string
		if i == 0 {
			id = s.Snapshot().Characters[0].ID
		} else {
			c, err := s.AddCharacter()
			if err != nil {
				return err
			}
			id = c.ID
		}
		if err := s.RenameCharacter(id, src.Name); err != nil {
			return err
		}
		if err := s.SetCharacterImage(id, images[i]); err != nil {
			return err
		}
	}
	s.SetStory(story)
	return nil
}

package prompts

import (
	_ "embed"
)

const (
	ModeStory = "story"
	ModePanel = "panel"
)

// StorySystemInstruction はパネル分割を依頼するときのシステム指示なのだ。
const StorySystemInstruction = "You are a comic book writer. Your task is to break down a story into concise, visual descriptions for comic panels. Respond ONLY with the JSON array."

// TemplateData はプロンプトのテンプレートに渡すデータ構造です。
type TemplateData struct {
	Story       string
	PanelCount  int
	Names       string
	Description string
}

var (
	//go:embed story.md
	StoryPrompt string
	//go:embed panel.md
	PanelPrompt string
)

// allTemplates はモードとテンプレート文字列を紐づけるマップなのだ。
var allTemplates = map[string]string{
	ModeStory: StoryPrompt,
	ModePanel: PanelPrompt,
}

package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTextPromptBuilder(t *testing.T) {
	b, err := NewTextPromptBuilder()
	require.NoError(t, err)

	t.Run("パネル分割プロンプト", func(t *testing.T) {
		got, err := b.BuildStory("A cat finds a hat.", 4)
		require.NoError(t, err)
		assert.Equal(t,
			`Based on the following story, divide it into 4 concise descriptions for comic strip panels. Each description should be a single phrase describing the visual action. Story: "A cat finds a hat."`,
			got)
	})

	t.Run("パネル画像プロンプト", func(t *testing.T) {
		got, err := b.BuildPanel("Astro and Nova", "They fly over the city")
		require.NoError(t, err)
		assert.Equal(t,
			`Create a vibrant comic book style image for a panel. Use the provided character(s), named Astro and Nova, in the scene. Panel Description: "They fly over the city"`,
			got)
	})

	t.Run("不明なモードはエラー", func(t *testing.T) {
		_, err := b.Build("unknown", TemplateData{})
		assert.Error(t, err)
	})
}

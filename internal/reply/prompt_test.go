package reply

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/tinyship/reviewreply/internal/models"
)

func intPtr(v int) *int { return &v }

func TestBuildPrompt(t *testing.T) {
	t.Run("embeds review details", func(t *testing.T) {
		system, user := BuildPrompt(PromptInput{
			Tone:     models.ToneProfessional,
			Product:  "Ceramic Mug",
			Rating:   intPtr(4),
			Reviewer: "Jane",
			Review:   "Lovely glaze, arrived quickly.",
		})

		assert.Contains(t, system, "customer support replies")
		assert.Contains(t, user, "Write a professional public reply draft")
		assert.Contains(t, user, "Product: Ceramic Mug\n")
		assert.Contains(t, user, "Rating: 4/5\n")
		assert.Contains(t, user, "Reviewer: Jane\n")
		assert.Contains(t, user, "Review: Lovely glaze, arrived quickly.\n")
	})

	t.Run("rules are always present", func(t *testing.T) {
		_, user := BuildPrompt(PromptInput{Tone: models.ToneCasual})

		assert.Contains(t, user, "2 to 4 sentences")
		assert.Contains(t, user, "Sound human")
		assert.Contains(t, user, "Thank the reviewer by name")
		assert.Contains(t, user, "negative sentiment")
		assert.Contains(t, user, "support")
		assert.Contains(t, user, "Do not promise refunds or replacements")
	})

	t.Run("fallbacks", func(t *testing.T) {
		_, user := BuildPrompt(PromptInput{Tone: models.ToneFriendly, Product: "  "})
		assert.Contains(t, user, "Product: the product\n")
		assert.Contains(t, user, "Rating: unknown/5\n")
	})

	t.Run("zero rating is unknown", func(t *testing.T) {
		_, user := BuildPrompt(PromptInput{Tone: models.ToneFriendly, Rating: intPtr(0)})
		assert.Contains(t, user, "Rating: unknown/5\n")
	})

	t.Run("review markup is stripped", func(t *testing.T) {
		_, user := BuildPrompt(PromptInput{
			Tone:     models.ToneFriendly,
			Reviewer: "<b>Jane</b>",
			Review:   "<p>Broke after <em>two</em> days</p><script>x()</script>",
		})
		assert.Contains(t, user, "Reviewer: Jane\n")
		assert.Contains(t, user, "Review: Broke after two days\n")
		assert.False(t, strings.Contains(user, "<"), "no markup should reach the prompt")
	})
}

func TestRatingText(t *testing.T) {
	assert.Equal(t, "unknown", ratingText(nil))
	assert.Equal(t, "unknown", ratingText(intPtr(0)))
	assert.Equal(t, "1", ratingText(intPtr(1)))
	assert.Equal(t, "5", ratingText(intPtr(5)))
}

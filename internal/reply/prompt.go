package reply

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/tinyship/reviewreply/internal/models"
	"github.com/tinyship/reviewreply/internal/textutil"
)

const systemPrompt = "You write concise, human customer support replies for product reviews."

const (
	fallbackProduct = "the product"
	fallbackRating  = "unknown"
)

// PromptInput is everything the prompt embeds about one review.
type PromptInput struct {
	Tone     models.Tone
	Product  string
	Rating   *int
	Reviewer string
	Review   string
}

// ratingText renders a 1-5 rating. Absent and zero ratings are unknown.
func ratingText(r *int) string {
	if r == nil || *r == 0 {
		return fallbackRating
	}
	return strconv.Itoa(*r)
}

// BuildPrompt returns the system and user prompts for drafting a reply.
func BuildPrompt(in PromptInput) (system string, user string) {
	product := strings.TrimSpace(in.Product)
	if product == "" {
		product = fallbackProduct
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Write a %s public reply draft to this review.\n", in.Tone)
	fmt.Fprintf(&b, "Product: %s\n", product)
	fmt.Fprintf(&b, "Rating: %s/5\n", ratingText(in.Rating))
	fmt.Fprintf(&b, "Reviewer: %s\n", textutil.SanitizeField(in.Reviewer))
	fmt.Fprintf(&b, "Review: %s\n", strings.TrimSpace(textutil.StripTags(in.Review)))
	b.WriteString("\n")
	b.WriteString("Rules:\n")
	b.WriteString("- 2 to 4 sentences\n")
	b.WriteString("- Sound human, warm, and clear\n")
	b.WriteString("- Thank the reviewer by name if possible\n")
	b.WriteString("- If negative sentiment appears, acknowledge the issue and invite them to contact support\n")
	b.WriteString("- Do not promise refunds or replacements directly")

	return systemPrompt, b.String()
}

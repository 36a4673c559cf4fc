package cmd

import (
	"context"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tinyship/reviewreply/internal/models"
)

var (
	generateTone   string
	generatePost   bool
	generateAuthor string
)

var generateCmd = &cobra.Command{
	Use:     "generate <review-id>",
	Aliases: []string{"gen"},
	Short:   "Draft an AI reply to a review",
	Long: `Draft a public reply to a review with the configured model and print it.

The tone defaults to the one in the reply settings. With --post the draft
is stored as a reply under the review.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid review id %q", args[0])
		}
		return generateRun(id)
	},
}

func init() {
	generateCmd.Flags().StringVarP(&generateTone, "tone", "t", "", "Tone: professional, friendly, or casual")
	generateCmd.Flags().BoolVar(&generatePost, "post", false, "Store the draft as a reply to the review")
	generateCmd.Flags().StringVar(&generateAuthor, "author", "admin", "Author name for --post")
	rootCmd.AddCommand(generateCmd)
}

func generateRun(id int64) error {
	s, err := getStore()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), generateTimeout())
	defer cancel()

	ui.VerboseLog("Generating reply to review %d", id)
	text, err := newGenerator(s).Generate(ctx, id, generateTone)
	if err != nil {
		return err
	}

	fmt.Fprintln(ui.Out, text)

	if !generatePost {
		return nil
	}
	if dryRun {
		ui.DryRunMsg("Would post the draft as a reply to review %d", id)
		return nil
	}

	review, err := s.GetComment(ctx, id)
	if err != nil {
		return err
	}
	r := &models.Comment{
		ProductID: review.ProductID,
		ParentID:  review.ID,
		Author:    generateAuthor,
		Content:   text,
		Type:      models.CommentTypeComment,
	}
	if err := s.CreateComment(ctx, r); err != nil {
		return err
	}
	ui.Success("Posted reply %d", r.ID)
	return nil
}

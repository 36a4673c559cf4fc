package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/tinyship/reviewreply/internal/models"
	"github.com/tinyship/reviewreply/internal/output"
	"github.com/tinyship/reviewreply/internal/store"
	"github.com/tinyship/reviewreply/internal/textutil"
)

var (
	reviewProductID int64
	reviewAuthor    string
	reviewContent   string
	reviewRating    int
	reviewAsComment bool
	reviewParentID  int64

	reviewListAll   bool
	reviewListLimit int
)

var reviewCmd = &cobra.Command{
	Use:     "review",
	Aliases: []string{"r"},
	Short:   "Manage product reviews and comments",
}

var reviewAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a review (or a plain comment with --comment)",
	Example: `  reviewreply review add --product 1 --author Jane --rating 5 --content "Love it"
  reviewreply review add --product 1 --author Bob --comment --content "Is it dishwasher safe?"`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewAddRun()
	},
}

var reviewListCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List reviews, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		return reviewListRun()
	},
}

var reviewShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a review and the replies to it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid id %q", args[0])
		}
		return reviewShowRun(id)
	},
}

func init() {
	reviewAddCmd.Flags().Int64Var(&reviewProductID, "product", 0, "Product ID (required)")
	reviewAddCmd.Flags().StringVar(&reviewAuthor, "author", "", "Reviewer name (required)")
	reviewAddCmd.Flags().StringVar(&reviewContent, "content", "", "Review text (required)")
	reviewAddCmd.Flags().IntVar(&reviewRating, "rating", 0, "Star rating 1-5 (0 for none)")
	reviewAddCmd.Flags().BoolVar(&reviewAsComment, "comment", false, "Store as a plain comment instead of a review")
	reviewAddCmd.Flags().Int64Var(&reviewParentID, "parent", 0, "Reply to this comment ID")
	_ = reviewAddCmd.MarkFlagRequired("product")
	_ = reviewAddCmd.MarkFlagRequired("author")
	_ = reviewAddCmd.MarkFlagRequired("content")

	reviewListCmd.Flags().Int64Var(&reviewProductID, "product", 0, "Only this product")
	reviewListCmd.Flags().BoolVarP(&reviewListAll, "all", "a", false, "Include plain comments and replies")
	reviewListCmd.Flags().IntVar(&reviewListLimit, "limit", 50, "Maximum rows (0 for all)")

	reviewCmd.AddCommand(reviewAddCmd)
	reviewCmd.AddCommand(reviewListCmd)
	reviewCmd.AddCommand(reviewShowCmd)
	rootCmd.AddCommand(reviewCmd)
}

func reviewAddRun() error {
	if reviewRating < 0 || reviewRating > 5 {
		return fmt.Errorf("rating must be between 0 and 5")
	}

	c := &models.Comment{
		ProductID: reviewProductID,
		ParentID:  reviewParentID,
		Author:    textutil.SanitizeField(reviewAuthor),
		Content:   reviewContent,
		Type:      models.CommentTypeReview,
	}
	if reviewAsComment {
		c.Type = models.CommentTypeComment
	} else if reviewRating > 0 {
		rating := reviewRating
		c.Rating = &rating
	}

	if dryRun {
		ui.DryRunMsg("Would add %s by %s on product %d", c.Type, c.Author, c.ProductID)
		return nil
	}

	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if _, err := s.GetProduct(ctx, c.ProductID); errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("product %d does not exist", c.ProductID)
	} else if err != nil {
		return err
	}

	if err := s.CreateComment(ctx, c); err != nil {
		return err
	}
	ui.Success("Added %s %d", c.Type, c.ID)
	return nil
}

func reviewListRun() error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	filter := store.CommentListFilter{ProductID: reviewProductID, Limit: reviewListLimit}
	if !reviewListAll {
		filter.Type = models.CommentTypeReview
	}

	comments, err := s.ListComments(ctx, filter)
	if err != nil {
		return err
	}
	if len(comments) == 0 {
		ui.Info("No reviews found")
		return nil
	}

	titles := map[int64]string{}
	table := ui.Table([]string{"ID", "Type", "Product", "Author", "Rating", "Review"})
	for _, c := range comments {
		if _, ok := titles[c.ProductID]; !ok {
			titles[c.ProductID] = "-"
			if p, err := s.GetProduct(ctx, c.ProductID); err == nil {
				titles[c.ProductID] = output.Truncate(p.Title, 24)
			}
		}
		table.Append([]string{
			strconv.FormatInt(c.ID, 10),
			output.TypeColor(c.Type),
			titles[c.ProductID],
			c.Author,
			output.RatingColor(c.Rating),
			output.Truncate(textutil.StripTags(c.Content), 60),
		})
	}
	return table.Render()
}

func reviewShowRun(id int64) error {
	s, err := getStore()
	if err != nil {
		return err
	}
	ctx := context.Background()

	c, err := s.GetComment(ctx, id)
	if err != nil {
		return err
	}

	product := "-"
	if p, err := s.GetProduct(ctx, c.ProductID); err == nil {
		product = p.Title
	}

	fmt.Fprintf(ui.Out, "%s %d  %s\n", output.TypeColor(c.Type), c.ID, output.RatingColor(c.Rating))
	fmt.Fprintf(ui.Out, "Product: %s\n", product)
	fmt.Fprintf(ui.Out, "Author:  %s\n", c.Author)
	fmt.Fprintf(ui.Out, "Date:    %s\n\n", c.CreatedAt.Local().Format("2006-01-02 15:04"))
	fmt.Fprintln(ui.Out, textutil.StripTags(c.Content))

	replies, err := s.ListComments(ctx, store.CommentListFilter{ParentID: c.ID})
	if err != nil {
		return err
	}
	for i := len(replies) - 1; i >= 0; i-- {
		r := replies[i]
		fmt.Fprintf(ui.Out, "\n  %s %s (%s):\n  %s\n",
			output.Cyan("↳"), r.Author, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.Content)
	}
	return nil
}

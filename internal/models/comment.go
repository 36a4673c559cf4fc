package models

import "time"

// CommentType distinguishes product reviews from ordinary replies.
type CommentType string

const (
	CommentTypeReview  CommentType = "review"
	CommentTypeComment CommentType = "comment"
)

// Comment is a stored comment on a product. Reviews carry a rating; replies
// point at the review they answer through ParentID.
type Comment struct {
	ID        int64       `json:"id"`
	ProductID int64       `json:"product_id"`
	ParentID  int64       `json:"parent_id,omitempty"`
	Author    string      `json:"author"`
	Content   string      `json:"content"`
	Type      CommentType `json:"type"`
	Rating    *int        `json:"rating,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// IsReview reports whether the comment is a product review.
func (c *Comment) IsReview() bool {
	return c != nil && c.Type == CommentTypeReview
}

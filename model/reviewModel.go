// model/review.go
package model

import "time"

const (
	RatingMin = 1
	RatingMax = 5
)

type Review struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	BookID    int64     `json:"book_id"`
	LoanID    *int64    `json:"loan_id,omitempty"`
	Rating    int       `json:"rating"`
	Comment   *string   `json:"comment,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

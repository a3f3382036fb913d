// model/book.go
package model

import "time"

type BookStatus string

const (
	BookAvailable BookStatus = "AVAILABLE"
	BookBooked    BookStatus = "BOOKED"
	BookBorrowed  BookStatus = "BORROWED"
)

type Book struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	ISBN        string     `json:"isbn"`
	Description *string    `json:"description,omitempty"`
	Status      BookStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// OnLoan reports whether the book is tied to a live loan and therefore must
// not be deleted or booked again.
func (b *Book) OnLoan() bool {
	return b.Status == BookBooked || b.Status == BookBorrowed
}

// model/loan.go
package model

import "time"

type LoanStatus string

const (
	LoanBooked   LoanStatus = "BOOKED"
	LoanActive   LoanStatus = "ACTIVE"
	LoanReturned LoanStatus = "RETURNED"
	LoanOverdue  LoanStatus = "OVERDUE"
)

const (
	// LoanDurationDays is how long a picked-up book may be kept.
	LoanDurationDays = 14
	// ExtensionDays is added to the due date per extension.
	ExtensionDays = 7
)

type Loan struct {
	ID          int64      `json:"id"`
	UserID      int64      `json:"user_id"`
	BookID      int64      `json:"book_id"`
	BookingDate *time.Time `json:"booking_date,omitempty"`
	LoanDate    *time.Time `json:"loan_date,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
	ReturnDate  *time.Time `json:"return_date,omitempty"`
	Status      LoanStatus `json:"status"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// EffectiveStatus derives OVERDUE at read time: the stored status stays
// ACTIVE, a loan counts as overdue once its due date has passed.
func (l *Loan) EffectiveStatus(now time.Time) LoanStatus {
	if l.Status == LoanActive && l.DueDate != nil && l.DueDate.Before(now) {
		return LoanOverdue
	}
	return l.Status
}

// Open reports whether the loan still holds its book (anything but RETURNED).
func (l *Loan) Open() bool {
	return l.Status != LoanReturned
}

// Package library coordinates the loan lifecycle: it owns every
// Loan.status transition and keeps Book.status in lockstep. The availability
// check and both entity writes of each operation run in a single transaction,
// with the book reserved through a conditional update, so two concurrent
// bookings of the same book cannot both succeed.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"librarysvc/model"
	loanrepo "librarysvc/repository/loan"
)

// errors used by controllers

type ErrCode string

const (
	ErrUserNotFound    ErrCode = "USER_NOT_FOUND"
	ErrBookNotFound    ErrCode = "BOOK_NOT_FOUND"
	ErrLoanNotFound    ErrCode = "LOAN_NOT_FOUND"
	ErrBookUnavailable ErrCode = "BOOK_UNAVAILABLE"
	ErrInvalidState    ErrCode = "INVALID_STATE"
	ErrNoDueDate       ErrCode = "NO_DUE_DATE"
)

type codedError struct {
	code ErrCode
	msg  string
}

func (e codedError) Error() string { return e.msg }
func (e codedError) Code() ErrCode { return e.code }

func makeErr(c ErrCode, format string, args ...any) error {
	return codedError{code: c, msg: fmt.Sprintf(format, args...)}
}

// Code extracts the error code; empty for non-engine errors.
func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// Policy captures the lifecycle behaviors that vary between deployments.
type Policy struct {
	// CureOverdueOnExtend flips a stored OVERDUE loan back to ACTIVE when
	// its due date is extended.
	CureOverdueOnExtend bool
}

type ListFilter = loanrepo.ListFilter

type Service interface {
	// CreateBooking reserves an AVAILABLE book for a user: Loan BOOKED,
	// Book BOOKED, one transaction.
	CreateBooking(ctx context.Context, userID, bookID int64) (*model.Loan, error)

	// Pickup turns a BOOKED loan ACTIVE, stamping loan date and a
	// 14-day due date, and marks the book BORROWED.
	Pickup(ctx context.Context, loanID int64) (*model.Loan, error)

	// Return closes an ACTIVE or OVERDUE loan and frees the book.
	Return(ctx context.Context, loanID int64) (*model.Loan, error)

	// Extend pushes the due date 7 days out on any non-returned loan.
	Extend(ctx context.Context, loanID int64) (*model.Loan, error)

	FindOne(ctx context.Context, id int64) (*model.Loan, error)
	List(ctx context.Context, f ListFilter) ([]model.Loan, int64, error)
	UserLoans(ctx context.Context, userID int64, page model.Page) ([]model.Loan, int64, error)
	BookLoans(ctx context.Context, bookID int64, page model.Page) ([]model.Loan, int64, error)

	// HasReturnedLoan is the read used for review eligibility.
	HasReturnedLoan(ctx context.Context, userID, bookID int64) (bool, error)
}

type service struct {
	r   loanrepo.Repo
	pol Policy
	log *slog.Logger
	now func() time.Time
}

func New(r loanrepo.Repo, pol Policy, log *slog.Logger) Service {
	return &service{r: r, pol: pol, log: log, now: func() time.Time { return time.Now().UTC() }}
}

func (s *service) CreateBooking(ctx context.Context, userID, bookID int64) (_ *model.Loan, err error) {
	exists, err := s.r.UserExists(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, makeErr(ErrUserNotFound, "user with id %d not found", userID)
	}

	tx, err := s.r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			s.rollback(tx)
		}
	}()

	// Row lock serializes concurrent bookings of the same book; the second
	// caller blocks here and then sees BOOKED.
	status, found, err := s.r.GetBookForUpdate(ctx, tx, bookID)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, makeErr(ErrBookNotFound, "book with id %d not found", bookID)
	}
	if status != model.BookAvailable {
		return nil, makeErr(ErrBookUnavailable,
			"book with id %d is currently %s and cannot be booked", bookID, status)
	}

	loan, err := s.r.InsertBooking(ctx, tx, userID, bookID, s.now())
	if err != nil {
		return nil, err
	}

	reserved, err := s.r.ReserveBook(ctx, tx, bookID)
	if err != nil {
		return nil, err
	}
	if !reserved {
		// Unreachable while the row lock is held; the guard keeps the
		// conditional write honest regardless.
		return nil, makeErr(ErrBookUnavailable,
			"book with id %d is no longer available", bookID)
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return loan, nil
}

func (s *service) Pickup(ctx context.Context, loanID int64) (_ *model.Loan, err error) {
	tx, err := s.r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			s.rollback(tx)
		}
	}()

	loan, err := s.r.GetForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, makeErr(ErrLoanNotFound, "loan with id %d not found", loanID)
	}
	if loan.Status != model.LoanBooked {
		return nil, makeErr(ErrInvalidState,
			"loan with id %d has status %s, cannot be picked up", loanID, loan.Status)
	}

	now := s.now()
	due := now.AddDate(0, 0, model.LoanDurationDays)
	updated, err := s.r.MarkPickedUp(ctx, tx, loanID, now, due)
	if err != nil {
		return nil, err
	}

	if err = s.r.SetBookStatus(ctx, tx, loan.BookID, model.BookBorrowed); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Return(ctx context.Context, loanID int64) (_ *model.Loan, err error) {
	tx, err := s.r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			s.rollback(tx)
		}
	}()

	loan, err := s.r.GetForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, makeErr(ErrLoanNotFound, "loan with id %d not found", loanID)
	}
	if loan.Status != model.LoanActive && loan.Status != model.LoanOverdue {
		return nil, makeErr(ErrInvalidState,
			"loan with id %d has status %s, cannot be returned", loanID, loan.Status)
	}

	updated, err := s.r.MarkReturned(ctx, tx, loanID, s.now())
	if err != nil {
		return nil, err
	}

	if err = s.r.SetBookStatus(ctx, tx, loan.BookID, model.BookAvailable); err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) Extend(ctx context.Context, loanID int64) (_ *model.Loan, err error) {
	tx, err := s.r.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			s.rollback(tx)
		}
	}()

	loan, err := s.r.GetForUpdate(ctx, tx, loanID)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, makeErr(ErrLoanNotFound, "loan with id %d not found", loanID)
	}
	if loan.DueDate == nil {
		return nil, makeErr(ErrNoDueDate, "loan with id %d has no due date set, cannot extend", loanID)
	}
	if loan.Status == model.LoanReturned {
		return nil, makeErr(ErrInvalidState, "cannot extend a returned loan (id %d)", loanID)
	}

	newDue := loan.DueDate.AddDate(0, 0, model.ExtensionDays)
	status := loan.Status
	if status == model.LoanOverdue && s.pol.CureOverdueOnExtend {
		status = model.LoanActive
	}

	updated, err := s.r.UpdateDueDate(ctx, tx, loanID, newDue, status)
	if err != nil {
		return nil, err
	}

	if err = tx.Commit(); err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) FindOne(ctx context.Context, id int64) (*model.Loan, error) {
	loan, err := s.r.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if loan == nil {
		return nil, makeErr(ErrLoanNotFound, "loan with id %d not found", id)
	}
	loan.Status = loan.EffectiveStatus(s.now())
	return loan, nil
}

func (s *service) List(ctx context.Context, f ListFilter) ([]model.Loan, int64, error) {
	if f.IsOverdue && f.Now.IsZero() {
		f.Now = s.now()
	}
	loans, total, err := s.r.List(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	now := s.now()
	for i := range loans {
		loans[i].Status = loans[i].EffectiveStatus(now)
	}
	return loans, total, nil
}

func (s *service) UserLoans(ctx context.Context, userID int64, page model.Page) ([]model.Loan, int64, error) {
	exists, err := s.r.UserExists(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, makeErr(ErrUserNotFound, "user with id %d not found", userID)
	}
	return s.List(ctx, ListFilter{UserID: userID, Page: page})
}

func (s *service) BookLoans(ctx context.Context, bookID int64, page model.Page) ([]model.Loan, int64, error) {
	exists, err := s.r.BookExists(ctx, bookID)
	if err != nil {
		return nil, 0, err
	}
	if !exists {
		return nil, 0, makeErr(ErrBookNotFound, "book with id %d not found", bookID)
	}
	return s.List(ctx, ListFilter{BookID: bookID, Page: page})
}

func (s *service) HasReturnedLoan(ctx context.Context, userID, bookID int64) (bool, error) {
	return s.r.HasReturned(ctx, userID, bookID)
}

func (s *service) rollback(tx loanrepo.Tx) {
	if rbErr := tx.Rollback(); rbErr != nil {
		s.log.Error("loan tx rollback failed", "err", rbErr)
	}
}

package reviewsvc

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"librarysvc/model"
	reviewrepo "librarysvc/repository/review"
	booksvc "librarysvc/service/book"
	"librarysvc/service/library"
	usersvc "librarysvc/service/user"
)

type ErrCode string

const (
	ErrUserNotFound    ErrCode = "USER_NOT_FOUND"
	ErrBookNotFound    ErrCode = "BOOK_NOT_FOUND"
	ErrLoanNotFound    ErrCode = "LOAN_NOT_FOUND"
	ErrNotFound        ErrCode = "REVIEW_NOT_FOUND"
	ErrDuplicate       ErrCode = "REVIEW_EXISTS"
	ErrLoanMismatch    ErrCode = "LOAN_MISMATCH"
	ErrLoanNotReturned ErrCode = "LOAN_NOT_RETURNED"
	ErrBadRating       ErrCode = "BAD_RATING"
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

func Code(err error) ErrCode {
	var ce interface{ Code() ErrCode }
	if errors.As(err, &ce) {
		return ce.Code()
	}
	return ""
}

// Policy captures the review-eligibility variant.
type Policy struct {
	// RequireReturnedLoan demands a RETURNED loan linking the reviewer to
	// the book: when a loan id is supplied that loan must be RETURNED, and
	// when none is supplied the user must have returned the book at least
	// once.
	RequireReturnedLoan bool
}

// LoanReader is the slice of the loan engine's read API the recorder needs.
type LoanReader interface {
	FindOne(ctx context.Context, id int64) (*model.Loan, error)
	HasReturnedLoan(ctx context.Context, userID, bookID int64) (bool, error)
}

// UserReader and BookReader are existence checks against the collaborators.
type UserReader interface {
	FindOne(ctx context.Context, id int64) (*model.User, error)
}

type BookReader interface {
	FindOne(ctx context.Context, id int64) (*model.Book, error)
}

type CreateInput struct {
	UserID  int64
	BookID  int64
	LoanID  *int64
	Rating  int
	Comment *string
}

type ListFilter = reviewrepo.ListFilter

type Service interface {
	Create(ctx context.Context, in CreateInput) (*model.Review, error)
	FindOne(ctx context.Context, id int64) (*model.Review, error)
	FindBookReviews(ctx context.Context, bookID int64, page model.Page) ([]model.Review, int64, error)
	FindUserReviews(ctx context.Context, userID int64, page model.Page) ([]model.Review, int64, error)
	Remove(ctx context.Context, id int64) error
}

type service struct {
	r     reviewrepo.Repo
	users UserReader
	books BookReader
	loans LoanReader
	pol   Policy
}

func New(r reviewrepo.Repo, users UserReader, books BookReader, loans LoanReader, pol Policy) Service {
	return &service{r: r, users: users, books: books, loans: loans, pol: pol}
}

func (s *service) Create(ctx context.Context, in CreateInput) (*model.Review, error) {
	// Malformed input never reaches the uniqueness or eligibility logic.
	if in.Rating < model.RatingMin || in.Rating > model.RatingMax {
		return nil, makeErr(ErrBadRating, "rating must be between %d and %d, got %d",
			model.RatingMin, model.RatingMax, in.Rating)
	}

	if _, err := s.users.FindOne(ctx, in.UserID); err != nil {
		if usersvc.Code(err) == usersvc.ErrNotFound {
			return nil, makeErr(ErrUserNotFound, "user with id %d not found", in.UserID)
		}
		return nil, err
	}
	if _, err := s.books.FindOne(ctx, in.BookID); err != nil {
		if booksvc.Code(err) == booksvc.ErrNotFound {
			return nil, makeErr(ErrBookNotFound, "book with id %d not found", in.BookID)
		}
		return nil, err
	}

	if err := s.checkEligibility(ctx, in); err != nil {
		return nil, err
	}

	existing, err := s.r.ByUserAndBook(ctx, in.UserID, in.BookID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, makeErr(ErrDuplicate,
			"user %d has already reviewed book %d", in.UserID, in.BookID)
	}

	rv := &model.Review{
		UserID:  in.UserID,
		BookID:  in.BookID,
		LoanID:  in.LoanID,
		Rating:  in.Rating,
		Comment: in.Comment,
	}
	if err := s.r.Create(ctx, rv); err != nil {
		if isDuplicateReview(err) {
			return nil, makeErr(ErrDuplicate,
				"user %d has already reviewed book %d", in.UserID, in.BookID)
		}
		return nil, err
	}
	return rv, nil
}

func (s *service) checkEligibility(ctx context.Context, in CreateInput) error {
	if in.LoanID == nil {
		if !s.pol.RequireReturnedLoan {
			return nil
		}
		has, err := s.loans.HasReturnedLoan(ctx, in.UserID, in.BookID)
		if err != nil {
			return err
		}
		if !has {
			return makeErr(ErrLoanNotReturned,
				"user %d has no returned loan for book %d", in.UserID, in.BookID)
		}
		return nil
	}

	loan, err := s.loans.FindOne(ctx, *in.LoanID)
	if err != nil {
		if library.Code(err) == library.ErrLoanNotFound {
			return makeErr(ErrLoanNotFound, "loan with id %d not found", *in.LoanID)
		}
		return err
	}
	if loan.UserID != in.UserID || loan.BookID != in.BookID {
		return makeErr(ErrLoanMismatch,
			"loan with id %d does not match user %d and book %d", *in.LoanID, in.UserID, in.BookID)
	}
	if s.pol.RequireReturnedLoan && loan.Status != model.LoanReturned {
		return makeErr(ErrLoanNotReturned,
			"loan with id %d has status %s, only returned loans can be reviewed", *in.LoanID, loan.Status)
	}
	return nil
}

func (s *service) FindOne(ctx context.Context, id int64) (*model.Review, error) {
	rv, err := s.r.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if rv == nil {
		return nil, makeErr(ErrNotFound, "review with id %d not found", id)
	}
	return rv, nil
}

func (s *service) FindBookReviews(ctx context.Context, bookID int64, page model.Page) ([]model.Review, int64, error) {
	if _, err := s.books.FindOne(ctx, bookID); err != nil {
		if booksvc.Code(err) == booksvc.ErrNotFound {
			return nil, 0, makeErr(ErrBookNotFound, "book with id %d not found", bookID)
		}
		return nil, 0, err
	}
	return s.r.List(ctx, ListFilter{BookID: bookID, Page: page})
}

func (s *service) FindUserReviews(ctx context.Context, userID int64, page model.Page) ([]model.Review, int64, error) {
	if _, err := s.users.FindOne(ctx, userID); err != nil {
		if usersvc.Code(err) == usersvc.ErrNotFound {
			return nil, 0, makeErr(ErrUserNotFound, "user with id %d not found", userID)
		}
		return nil, 0, err
	}
	return s.r.List(ctx, ListFilter{UserID: userID, Page: page})
}

func (s *service) Remove(ctx context.Context, id int64) error {
	ok, err := s.r.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return makeErr(ErrNotFound, "review with id %d not found", id)
	}
	return nil
}

func isDuplicateReview(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

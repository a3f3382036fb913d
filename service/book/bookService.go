package booksvc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"librarysvc/model"
	bookrepo "librarysvc/repository/book"
)

type ErrCode string

const (
	ErrNotFound  ErrCode = "BOOK_NOT_FOUND"
	ErrISBNTaken ErrCode = "ISBN_TAKEN"
	ErrOnLoan    ErrCode = "BOOK_ON_LOAN"
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

type (
	ListFilter   = bookrepo.ListFilter
	UpdateFields = bookrepo.UpdateFields
)

type CreateInput struct {
	Title       string
	Author      string
	ISBN        string
	Description *string
}

// Service is the book availability tracker's public surface. Status is
// deliberately absent from the mutations: the loan engine is the only
// writer of Book.status, at the repository level inside its transactions.
type Service interface {
	Create(ctx context.Context, in CreateInput) (*model.Book, error)
	FindOne(ctx context.Context, id int64) (*model.Book, error)
	ByISBN(ctx context.Context, isbn string) (*model.Book, error)
	List(ctx context.Context, f ListFilter) ([]model.Book, int64, error)
	Update(ctx context.Context, id int64, f UpdateFields) (*model.Book, error)
	Remove(ctx context.Context, id int64) error
}

type service struct{ r bookrepo.Repo }

func New(r bookrepo.Repo) Service { return &service{r: r} }

func (s *service) Create(ctx context.Context, in CreateInput) (*model.Book, error) {
	existing, err := s.r.ByISBN(ctx, in.ISBN)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, makeErr(ErrISBNTaken, "book with ISBN %q already exists", in.ISBN)
	}

	b := &model.Book{
		Title:       in.Title,
		Author:      in.Author,
		ISBN:        in.ISBN,
		Description: in.Description,
	}
	if err := s.r.Create(ctx, b); err != nil {
		if isISBNTaken(err) {
			return nil, makeErr(ErrISBNTaken, "book with ISBN %q already exists", in.ISBN)
		}
		return nil, err
	}
	return b, nil
}

func (s *service) FindOne(ctx context.Context, id int64) (*model.Book, error) {
	b, err := s.r.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, makeErr(ErrNotFound, "book with id %d not found", id)
	}
	return b, nil
}

func (s *service) ByISBN(ctx context.Context, isbn string) (*model.Book, error) {
	b, err := s.r.ByISBN(ctx, isbn)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, makeErr(ErrNotFound, "book with ISBN %q not found", isbn)
	}
	return b, nil
}

func (s *service) List(ctx context.Context, f ListFilter) ([]model.Book, int64, error) {
	return s.r.List(ctx, f)
}

func (s *service) Update(ctx context.Context, id int64, f UpdateFields) (*model.Book, error) {
	b, err := s.r.Update(ctx, id, f)
	if err != nil {
		if isISBNTaken(err) {
			return nil, makeErr(ErrISBNTaken, "ISBN already in use")
		}
		return nil, err
	}
	if b == nil {
		return nil, makeErr(ErrNotFound, "book with id %d not found", id)
	}
	return b, nil
}

// Remove refuses to delete a book that is booked or borrowed.
func (s *service) Remove(ctx context.Context, id int64) error {
	b, err := s.FindOne(ctx, id)
	if err != nil {
		return err
	}
	if b.OnLoan() {
		return makeErr(ErrOnLoan,
			"cannot delete book with id %d because it is currently %s", id, b.Status)
	}

	ok, err := s.r.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return makeErr(ErrNotFound, "book with id %d not found", id)
	}
	return nil
}

func isISBNTaken(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return strings.Contains(strings.ToLower(pgErr.ConstraintName), "books_isbn") ||
			strings.Contains(strings.ToLower(pgErr.Message), "isbn")
	}
	return false
}

package usersvc

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"librarysvc/model"
	userrepo "librarysvc/repository/user"
)

type ErrCode string

const (
	ErrNotFound   ErrCode = "USER_NOT_FOUND"
	ErrEmailTaken ErrCode = "EMAIL_TAKEN"
	ErrInUse      ErrCode = "USER_IN_USE"
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

type ListFilter = userrepo.ListFilter

type Service interface {
	Create(ctx context.Context, name, email string) (*model.User, error)
	FindOne(ctx context.Context, id int64) (*model.User, error)
	List(ctx context.Context, f ListFilter) ([]model.User, int64, error)
	Update(ctx context.Context, id int64, name, email *string) (*model.User, error)
	Remove(ctx context.Context, id int64) error
}

type service struct{ r userrepo.Repo }

func New(r userrepo.Repo) Service { return &service{r: r} }

func (s *service) Create(ctx context.Context, name, email string) (*model.User, error) {
	u := &model.User{Name: name, Email: email}
	if err := s.r.Create(ctx, u); err != nil {
		if isEmailTaken(err) {
			return nil, makeErr(ErrEmailTaken, "user with email %q already exists", email)
		}
		return nil, err
	}
	return u, nil
}

func (s *service) FindOne(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.r.FindOne(ctx, id)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, makeErr(ErrNotFound, "user with id %d not found", id)
	}
	return u, nil
}

func (s *service) List(ctx context.Context, f ListFilter) ([]model.User, int64, error) {
	return s.r.List(ctx, f)
}

func (s *service) Update(ctx context.Context, id int64, name, email *string) (*model.User, error) {
	u, err := s.r.Update(ctx, id, name, email)
	if err != nil {
		if isEmailTaken(err) {
			return nil, makeErr(ErrEmailTaken, "email already in use")
		}
		return nil, err
	}
	if u == nil {
		return nil, makeErr(ErrNotFound, "user with id %d not found", id)
	}
	return u, nil
}

func (s *service) Remove(ctx context.Context, id int64) error {
	ok, err := s.r.Delete(ctx, id)
	if err != nil {
		if isReferenced(err) {
			return makeErr(ErrInUse, "user with id %d still has loans or reviews and cannot be deleted", id)
		}
		return err
	}
	if !ok {
		return makeErr(ErrNotFound, "user with id %d not found", id)
	}
	return nil
}

func isReferenced(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.ForeignKeyViolation
}

func isEmailTaken(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return strings.Contains(strings.ToLower(pgErr.ConstraintName), "users_email") ||
			strings.Contains(strings.ToLower(pgErr.Message), "email")
	}
	return false
}

package authsvc

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"

	"librarysvc/model"
	userrepo "librarysvc/repository/user"
	"librarysvc/util/hash"
	jwtutil "librarysvc/util/jwt"
)

var (
	ErrEmailTaken   = errors.New("email already registered")
	ErrInvalidCreds = errors.New("invalid credentials")
)

const tokenTTLHours = 24

type Service interface {
	// Register is the signup path: it creates the user and hands back a
	// token so clients can manage books right away.
	Register(ctx context.Context, name, email, password string) (*model.User, string, error)
	Login(ctx context.Context, email, password string) (*model.User, string, error)
}

type service struct {
	ur     userrepo.Repo
	secret string
}

func New(ur userrepo.Repo, secret string) Service { return &service{ur: ur, secret: secret} }

func (s *service) Register(ctx context.Context, name, email, password string) (*model.User, string, error) {
	hashed, err := hash.HashPassword(password)
	if err != nil {
		return nil, "", err
	}

	u := &model.User{Name: name, Email: email, PasswordHash: hashed}
	if err := s.ur.Create(ctx, u); err != nil {
		if isEmailTaken(err) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}

	token, err := jwtutil.Issue(s.secret, u.ID, "user", tokenTTLHours)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func (s *service) Login(ctx context.Context, email, password string) (*model.User, string, error) {
	u, err := s.ur.ByEmail(ctx, email)
	if err != nil {
		return nil, "", err
	}
	if u == nil || !hash.Check(u.PasswordHash, password) {
		return nil, "", ErrInvalidCreds
	}
	token, err := jwtutil.Issue(s.secret, u.ID, "user", tokenTTLHours)
	if err != nil {
		return nil, "", err
	}
	return u, token, nil
}

func isEmailTaken(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
		return strings.Contains(strings.ToLower(pgErr.ConstraintName), "users_email") ||
			strings.Contains(strings.ToLower(pgErr.Message), "email")
	}
	return false
}

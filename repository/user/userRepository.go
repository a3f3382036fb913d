package userrepo

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/pkg/errors"

	"librarysvc/model"
)

type ListFilter struct {
	Name  string
	Email string
	model.Page
}

type Repo interface {
	Create(ctx context.Context, u *model.User) error
	FindOne(ctx context.Context, id int64) (*model.User, error)
	ByEmail(ctx context.Context, email string) (*model.User, error)
	Exists(ctx context.Context, id int64) (bool, error)
	List(ctx context.Context, f ListFilter) ([]model.User, int64, error)
	Update(ctx context.Context, id int64, name, email *string) (*model.User, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

const userCols = `id, name, email, password_hash, created_at, updated_at`

func (r *repo) Create(ctx context.Context, u *model.User) error {
	const q = `
		INSERT INTO users (name, email, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, q, u.Name, u.Email, u.PasswordHash).
		Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
	return errors.Wrap(err, "insert user")
}

func (r *repo) FindOne(ctx context.Context, id int64) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE id = $1`
	return r.scanOne(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) ByEmail(ctx context.Context, email string) (*model.User, error) {
	const q = `SELECT ` + userCols + ` FROM users WHERE lower(email) = lower($1)`
	return r.scanOne(r.db.QueryRowContext(ctx, q, email))
}

func (r *repo) Exists(ctx context.Context, id int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`
	var ok bool
	err := r.db.QueryRowContext(ctx, q, id).Scan(&ok)
	return ok, errors.Wrap(err, "user exists")
}

func (r *repo) List(ctx context.Context, f ListFilter) ([]model.User, int64, error) {
	p := f.Page.Normalize()

	ds := goqu.Dialect("postgres").From("users")
	if f.Name != "" {
		ds = ds.Where(goqu.I("name").ILike("%" + f.Name + "%"))
	}
	if f.Email != "" {
		ds = ds.Where(goqu.I("email").ILike("%" + f.Email + "%"))
	}

	countSQL, countArgs, err := ds.Select(goqu.COUNT("*")).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, errors.Wrap(err, "build user count")
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count users")
	}

	listSQL, listArgs, err := ds.
		Select("id", "name", "email", "password_hash", "created_at", "updated_at").
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(uint(p.Limit)).
		Offset(uint(p.Offset())).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, errors.Wrap(err, "build user list")
	}

	rows, err := r.db.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list users")
	}
	defer rows.Close()

	var out []model.User
	for rows.Next() {
		var u model.User
		if err := rows.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, 0, errors.Wrap(err, "scan user")
		}
		out = append(out, u)
	}
	return out, total, rows.Err()
}

func (r *repo) Update(ctx context.Context, id int64, name, email *string) (*model.User, error) {
	const q = `
		UPDATE users
		SET name = COALESCE($2, name),
			email = COALESCE($3, email),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + userCols
	return r.scanOne(r.db.QueryRowContext(ctx, q, id, name, email))
}

func (r *repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, errors.Wrap(err, "delete user")
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

func (r *repo) scanOne(row *sql.Row) (*model.User, error) {
	u := &model.User{}
	err := row.Scan(&u.ID, &u.Name, &u.Email, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan user")
	}
	return u, nil
}

package reviewrepo

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/pkg/errors"

	"librarysvc/model"
)

type ListFilter struct {
	UserID int64
	BookID int64
	model.Page
}

type Repo interface {
	Create(ctx context.Context, rv *model.Review) error
	FindOne(ctx context.Context, id int64) (*model.Review, error)
	ByUserAndBook(ctx context.Context, userID, bookID int64) (*model.Review, error)
	List(ctx context.Context, f ListFilter) ([]model.Review, int64, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

const reviewCols = `id, user_id, book_id, loan_id, rating, comment, created_at, updated_at`

func (r *repo) Create(ctx context.Context, rv *model.Review) error {
	const q = `
		INSERT INTO reviews (user_id, book_id, loan_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, q, rv.UserID, rv.BookID, rv.LoanID, rv.Rating, rv.Comment).
		Scan(&rv.ID, &rv.CreatedAt, &rv.UpdatedAt)
	return errors.Wrap(err, "insert review")
}

func (r *repo) FindOne(ctx context.Context, id int64) (*model.Review, error) {
	const q = `SELECT ` + reviewCols + ` FROM reviews WHERE id = $1`
	return scanReview(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) ByUserAndBook(ctx context.Context, userID, bookID int64) (*model.Review, error) {
	const q = `SELECT ` + reviewCols + ` FROM reviews WHERE user_id = $1 AND book_id = $2`
	return scanReview(r.db.QueryRowContext(ctx, q, userID, bookID))
}

func (r *repo) List(ctx context.Context, f ListFilter) ([]model.Review, int64, error) {
	p := f.Page.Normalize()

	ds := goqu.Dialect("postgres").From("reviews")
	if f.UserID != 0 {
		ds = ds.Where(goqu.I("user_id").Eq(f.UserID))
	}
	if f.BookID != 0 {
		ds = ds.Where(goqu.I("book_id").Eq(f.BookID))
	}

	countSQL, countArgs, err := ds.Select(goqu.COUNT("*")).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, errors.Wrap(err, "build review count")
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count reviews")
	}

	listSQL, listArgs, err := ds.
		Select("id", "user_id", "book_id", "loan_id", "rating", "comment", "created_at", "updated_at").
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(uint(p.Limit)).
		Offset(uint(p.Offset())).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, errors.Wrap(err, "build review list")
	}

	rows, err := r.db.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list reviews")
	}
	defer rows.Close()

	var out []model.Review
	for rows.Next() {
		var rv model.Review
		if err := rows.Scan(&rv.ID, &rv.UserID, &rv.BookID, &rv.LoanID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt); err != nil {
			return nil, 0, errors.Wrap(err, "scan review")
		}
		out = append(out, rv)
	}
	return out, total, rows.Err()
}

func (r *repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM reviews WHERE id = $1`, id)
	if err != nil {
		return false, errors.Wrap(err, "delete review")
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

func scanReview(row *sql.Row) (*model.Review, error) {
	rv := &model.Review{}
	err := row.Scan(&rv.ID, &rv.UserID, &rv.BookID, &rv.LoanID, &rv.Rating, &rv.Comment, &rv.CreatedAt, &rv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan review")
	}
	return rv, nil
}

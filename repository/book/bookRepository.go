package bookrepo

import (
	"context"
	"database/sql"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/pkg/errors"

	"librarysvc/model"
)

type ListFilter struct {
	Title  string
	Author string
	Status model.BookStatus
	model.Page
}

type UpdateFields struct {
	Title       *string
	Author      *string
	ISBN        *string
	Description *string
}

type Repo interface {
	Create(ctx context.Context, b *model.Book) error
	FindOne(ctx context.Context, id int64) (*model.Book, error)
	ByISBN(ctx context.Context, isbn string) (*model.Book, error)
	List(ctx context.Context, f ListFilter) ([]model.Book, int64, error)
	Update(ctx context.Context, id int64, f UpdateFields) (*model.Book, error)
	Delete(ctx context.Context, id int64) (bool, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

const bookCols = `id, title, author, isbn, description, status, created_at, updated_at`

func (r *repo) Create(ctx context.Context, b *model.Book) error {
	const q = `
		INSERT INTO books (title, author, isbn, description)
		VALUES ($1, $2, $3, $4)
		RETURNING id, status, created_at, updated_at`
	err := r.db.QueryRowContext(ctx, q, b.Title, b.Author, b.ISBN, b.Description).
		Scan(&b.ID, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	return errors.Wrap(err, "insert book")
}

func (r *repo) FindOne(ctx context.Context, id int64) (*model.Book, error) {
	const q = `SELECT ` + bookCols + ` FROM books WHERE id = $1`
	return scanBook(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) ByISBN(ctx context.Context, isbn string) (*model.Book, error) {
	const q = `SELECT ` + bookCols + ` FROM books WHERE isbn = $1`
	return scanBook(r.db.QueryRowContext(ctx, q, isbn))
}

func (r *repo) List(ctx context.Context, f ListFilter) ([]model.Book, int64, error) {
	p := f.Page.Normalize()

	ds := goqu.Dialect("postgres").From("books")
	if f.Title != "" {
		ds = ds.Where(goqu.I("title").ILike("%" + f.Title + "%"))
	}
	if f.Author != "" {
		ds = ds.Where(goqu.I("author").ILike("%" + f.Author + "%"))
	}
	if f.Status != "" {
		ds = ds.Where(goqu.I("status").Eq(string(f.Status)))
	}

	countSQL, countArgs, err := ds.Select(goqu.COUNT("*")).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, errors.Wrap(err, "build book count")
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count books")
	}

	listSQL, listArgs, err := ds.
		Select("id", "title", "author", "isbn", "description", "status", "created_at", "updated_at").
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(uint(p.Limit)).
		Offset(uint(p.Offset())).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, errors.Wrap(err, "build book list")
	}

	rows, err := r.db.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list books")
	}
	defer rows.Close()

	var out []model.Book
	for rows.Next() {
		var b model.Book
		if err := rows.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Description, &b.Status, &b.CreatedAt, &b.UpdatedAt); err != nil {
			return nil, 0, errors.Wrap(err, "scan book")
		}
		out = append(out, b)
	}
	return out, total, rows.Err()
}

func (r *repo) Update(ctx context.Context, id int64, f UpdateFields) (*model.Book, error) {
	const q = `
		UPDATE books
		SET title = COALESCE($2, title),
			author = COALESCE($3, author),
			isbn = COALESCE($4, isbn),
			description = COALESCE($5, description),
			updated_at = now()
		WHERE id = $1
		RETURNING ` + bookCols
	return scanBook(r.db.QueryRowContext(ctx, q, id, f.Title, f.Author, f.ISBN, f.Description))
}

func (r *repo) Delete(ctx context.Context, id int64) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM books WHERE id = $1`, id)
	if err != nil {
		return false, errors.Wrap(err, "delete book")
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

func scanBook(row *sql.Row) (*model.Book, error) {
	b := &model.Book{}
	err := row.Scan(&b.ID, &b.Title, &b.Author, &b.ISBN, &b.Description, &b.Status, &b.CreatedAt, &b.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan book")
	}
	return b, nil
}

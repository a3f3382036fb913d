package loanrepo

import (
	"context"
	"database/sql"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/pkg/errors"

	"librarysvc/model"
)

// Tx is the slice of *sql.Tx the loan engine needs. Keeping it an interface
// lets the engine be tested against a fake store.
type Tx interface {
	Commit() error
	Rollback() error
}

type ListFilter struct {
	UserID    int64
	BookID    int64
	Status    model.LoanStatus
	IsOverdue bool
	Now       time.Time
	model.Page
}

type Repo interface {
	Begin(ctx context.Context) (Tx, error)

	// Tx-scoped steps of the lifecycle operations.
	GetForUpdate(ctx context.Context, tx Tx, id int64) (*model.Loan, error)
	InsertBooking(ctx context.Context, tx Tx, userID, bookID int64, bookedAt time.Time) (*model.Loan, error)
	MarkPickedUp(ctx context.Context, tx Tx, id int64, loanDate, dueDate time.Time) (*model.Loan, error)
	MarkReturned(ctx context.Context, tx Tx, id int64, returnedAt time.Time) (*model.Loan, error)
	UpdateDueDate(ctx context.Context, tx Tx, id int64, dueDate time.Time, status model.LoanStatus) (*model.Loan, error)

	// Book-status coordination. ReserveBook is the conditional write that
	// makes concurrent bookings of one book lose cleanly.
	GetBookForUpdate(ctx context.Context, tx Tx, bookID int64) (model.BookStatus, bool, error)
	ReserveBook(ctx context.Context, tx Tx, bookID int64) (bool, error)
	SetBookStatus(ctx context.Context, tx Tx, bookID int64, status model.BookStatus) error

	UserExists(ctx context.Context, userID int64) (bool, error)
	BookExists(ctx context.Context, bookID int64) (bool, error)

	// Reads outside any tx.
	FindOne(ctx context.Context, id int64) (*model.Loan, error)
	List(ctx context.Context, f ListFilter) ([]model.Loan, int64, error)
	HasReturned(ctx context.Context, userID, bookID int64) (bool, error)
}

type repo struct{ db *sql.DB }

func New(db *sql.DB) Repo { return &repo{db: db} }

func (r *repo) Begin(ctx context.Context) (Tx, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	return tx, errors.Wrap(err, "begin tx")
}

func sqlTx(tx Tx) (*sql.Tx, error) {
	t, ok := tx.(*sql.Tx)
	if !ok {
		return nil, errors.Errorf("unexpected tx type %T", tx)
	}
	return t, nil
}

const loanCols = `id, user_id, book_id, booking_date, loan_date, due_date, return_date, status, created_at, updated_at`

func (r *repo) GetForUpdate(ctx context.Context, tx Tx, id int64) (*model.Loan, error) {
	t, err := sqlTx(tx)
	if err != nil {
		return nil, err
	}
	const q = `SELECT ` + loanCols + ` FROM loans WHERE id = $1 FOR UPDATE`
	return scanLoan(t.QueryRowContext(ctx, q, id))
}

func (r *repo) InsertBooking(ctx context.Context, tx Tx, userID, bookID int64, bookedAt time.Time) (*model.Loan, error) {
	t, err := sqlTx(tx)
	if err != nil {
		return nil, err
	}
	const q = `
		INSERT INTO loans (user_id, book_id, status, booking_date)
		VALUES ($1, $2, 'BOOKED', $3)
		RETURNING ` + loanCols
	return scanLoan(t.QueryRowContext(ctx, q, userID, bookID, bookedAt))
}

func (r *repo) MarkPickedUp(ctx context.Context, tx Tx, id int64, loanDate, dueDate time.Time) (*model.Loan, error) {
	t, err := sqlTx(tx)
	if err != nil {
		return nil, err
	}
	const q = `
		UPDATE loans
		SET status = 'ACTIVE',
			loan_date = $2,
			due_date = $3,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + loanCols
	return scanLoan(t.QueryRowContext(ctx, q, id, loanDate, dueDate))
}

func (r *repo) MarkReturned(ctx context.Context, tx Tx, id int64, returnedAt time.Time) (*model.Loan, error) {
	t, err := sqlTx(tx)
	if err != nil {
		return nil, err
	}
	const q = `
		UPDATE loans
		SET status = 'RETURNED',
			return_date = $2,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + loanCols
	return scanLoan(t.QueryRowContext(ctx, q, id, returnedAt))
}

func (r *repo) UpdateDueDate(ctx context.Context, tx Tx, id int64, dueDate time.Time, status model.LoanStatus) (*model.Loan, error) {
	t, err := sqlTx(tx)
	if err != nil {
		return nil, err
	}
	const q = `
		UPDATE loans
		SET due_date = $2,
			status = $3,
			updated_at = now()
		WHERE id = $1
		RETURNING ` + loanCols
	return scanLoan(t.QueryRowContext(ctx, q, id, dueDate, status))
}

func (r *repo) GetBookForUpdate(ctx context.Context, tx Tx, bookID int64) (model.BookStatus, bool, error) {
	t, err := sqlTx(tx)
	if err != nil {
		return "", false, err
	}
	const q = `SELECT status FROM books WHERE id = $1 FOR UPDATE`
	var st model.BookStatus
	err = t.QueryRowContext(ctx, q, bookID).Scan(&st)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "lock book")
	}
	return st, true, nil
}

func (r *repo) ReserveBook(ctx context.Context, tx Tx, bookID int64) (bool, error) {
	t, err := sqlTx(tx)
	if err != nil {
		return false, err
	}
	// Guard: only an AVAILABLE book can be reserved.
	const q = `
		UPDATE books
		SET status = 'BOOKED',
			updated_at = now()
		WHERE id = $1
		AND status = 'AVAILABLE'`
	res, err := t.ExecContext(ctx, q, bookID)
	if err != nil {
		return false, errors.Wrap(err, "reserve book")
	}
	aff, _ := res.RowsAffected()
	return aff > 0, nil
}

func (r *repo) SetBookStatus(ctx context.Context, tx Tx, bookID int64, status model.BookStatus) error {
	t, err := sqlTx(tx)
	if err != nil {
		return err
	}
	const q = `
		UPDATE books
		SET status = $2,
			updated_at = now()
		WHERE id = $1`
	res, err := t.ExecContext(ctx, q, bookID, status)
	if err != nil {
		return errors.Wrap(err, "set book status")
	}
	aff, _ := res.RowsAffected()
	if aff == 0 {
		return errors.Errorf("book %d vanished during status update", bookID)
	}
	return nil
}

func (r *repo) UserExists(ctx context.Context, userID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`
	var ok bool
	err := r.db.QueryRowContext(ctx, q, userID).Scan(&ok)
	return ok, errors.Wrap(err, "user exists")
}

func (r *repo) BookExists(ctx context.Context, bookID int64) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM books WHERE id = $1)`
	var ok bool
	err := r.db.QueryRowContext(ctx, q, bookID).Scan(&ok)
	return ok, errors.Wrap(err, "book exists")
}

func (r *repo) FindOne(ctx context.Context, id int64) (*model.Loan, error) {
	const q = `SELECT ` + loanCols + ` FROM loans WHERE id = $1`
	return scanLoan(r.db.QueryRowContext(ctx, q, id))
}

func (r *repo) List(ctx context.Context, f ListFilter) ([]model.Loan, int64, error) {
	p := f.Page.Normalize()

	ds := goqu.Dialect("postgres").From("loans")
	if f.UserID != 0 {
		ds = ds.Where(goqu.I("user_id").Eq(f.UserID))
	}
	if f.BookID != 0 {
		ds = ds.Where(goqu.I("book_id").Eq(f.BookID))
	}
	if f.Status != "" {
		ds = ds.Where(goqu.I("status").Eq(string(f.Status)))
	}
	if f.IsOverdue {
		ds = ds.Where(
			goqu.I("status").Eq(string(model.LoanActive)),
			goqu.I("due_date").Lt(f.Now),
		)
	}

	countSQL, countArgs, err := ds.Select(goqu.COUNT("*")).Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, errors.Wrap(err, "build loan count")
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, errors.Wrap(err, "count loans")
	}

	listSQL, listArgs, err := ds.
		Select("id", "user_id", "book_id", "booking_date", "loan_date", "due_date", "return_date", "status", "created_at", "updated_at").
		Order(goqu.I("created_at").Desc(), goqu.I("id").Desc()).
		Limit(uint(p.Limit)).
		Offset(uint(p.Offset())).
		Prepared(true).ToSQL()
	if err != nil {
		return nil, 0, errors.Wrap(err, "build loan list")
	}

	rows, err := r.db.QueryContext(ctx, listSQL, listArgs...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "list loans")
	}
	defer rows.Close()

	var out []model.Loan
	for rows.Next() {
		var l model.Loan
		if err := rows.Scan(&l.ID, &l.UserID, &l.BookID, &l.BookingDate, &l.LoanDate, &l.DueDate, &l.ReturnDate, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
			return nil, 0, errors.Wrap(err, "scan loan")
		}
		out = append(out, l)
	}
	return out, total, rows.Err()
}

func (r *repo) HasReturned(ctx context.Context, userID, bookID int64) (bool, error) {
	const q = `SELECT EXISTS (
		SELECT 1 FROM loans
		WHERE user_id = $1 AND book_id = $2 AND status = 'RETURNED')`
	var ok bool
	err := r.db.QueryRowContext(ctx, q, userID, bookID).Scan(&ok)
	return ok, errors.Wrap(err, "has returned loan")
}

func scanLoan(row *sql.Row) (*model.Loan, error) {
	l := &model.Loan{}
	err := row.Scan(&l.ID, &l.UserID, &l.BookID, &l.BookingDate, &l.LoanDate, &l.DueDate, &l.ReturnDate, &l.Status, &l.CreatedAt, &l.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, errors.Wrap(err, "scan loan")
	}
	return l, nil
}

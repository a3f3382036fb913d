package library_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"

	"librarysvc/model"
	"librarysvc/repository/loan"
	"librarysvc/service/library"
)

// fakeTx records the outcome of the transaction.
type fakeTx struct {
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit() error   { t.committed = true; return nil }
func (t *fakeTx) Rollback() error { t.rolledBack = true; return nil }

// fakeRepo is an in-memory loan store. Error fields inject failures at
// individual steps.
type fakeRepo struct {
	users  map[int64]bool
	books  map[int64]model.BookStatus
	loans  map[int64]*model.Loan
	nextID int64

	lastTx *fakeTx

	reserveErr   error
	setStatusErr error
	insertErr    error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		users:  map[int64]bool{},
		books:  map[int64]model.BookStatus{},
		loans:  map[int64]*model.Loan{},
		nextID: 1,
	}
}

func (f *fakeRepo) Begin(ctx context.Context) (loanrepo.Tx, error) {
	f.lastTx = &fakeTx{}
	return f.lastTx, nil
}

func (f *fakeRepo) GetForUpdate(ctx context.Context, tx loanrepo.Tx, id int64) (*model.Loan, error) {
	l, ok := f.loans[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (f *fakeRepo) InsertBooking(ctx context.Context, tx loanrepo.Tx, userID, bookID int64, bookedAt time.Time) (*model.Loan, error) {
	if f.insertErr != nil {
		return nil, f.insertErr
	}
	l := &model.Loan{
		ID:          f.nextID,
		UserID:      userID,
		BookID:      bookID,
		Status:      model.LoanBooked,
		BookingDate: &bookedAt,
		CreatedAt:   bookedAt,
		UpdatedAt:   bookedAt,
	}
	f.nextID++
	f.loans[l.ID] = l
	cp := *l
	return &cp, nil
}

func (f *fakeRepo) MarkPickedUp(ctx context.Context, tx loanrepo.Tx, id int64, loanDate, dueDate time.Time) (*model.Loan, error) {
	l := f.loans[id]
	l.Status = model.LoanActive
	l.LoanDate = &loanDate
	l.DueDate = &dueDate
	cp := *l
	return &cp, nil
}

func (f *fakeRepo) MarkReturned(ctx context.Context, tx loanrepo.Tx, id int64, returnedAt time.Time) (*model.Loan, error) {
	l := f.loans[id]
	l.Status = model.LoanReturned
	l.ReturnDate = &returnedAt
	cp := *l
	return &cp, nil
}

func (f *fakeRepo) UpdateDueDate(ctx context.Context, tx loanrepo.Tx, id int64, dueDate time.Time, status model.LoanStatus) (*model.Loan, error) {
	l := f.loans[id]
	l.DueDate = &dueDate
	l.Status = status
	cp := *l
	return &cp, nil
}

func (f *fakeRepo) GetBookForUpdate(ctx context.Context, tx loanrepo.Tx, bookID int64) (model.BookStatus, bool, error) {
	st, ok := f.books[bookID]
	return st, ok, nil
}

func (f *fakeRepo) ReserveBook(ctx context.Context, tx loanrepo.Tx, bookID int64) (bool, error) {
	if f.reserveErr != nil {
		return false, f.reserveErr
	}
	if f.books[bookID] != model.BookAvailable {
		return false, nil
	}
	f.books[bookID] = model.BookBooked
	return true, nil
}

func (f *fakeRepo) SetBookStatus(ctx context.Context, tx loanrepo.Tx, bookID int64, status model.BookStatus) error {
	if f.setStatusErr != nil {
		return f.setStatusErr
	}
	f.books[bookID] = status
	return nil
}

func (f *fakeRepo) UserExists(ctx context.Context, userID int64) (bool, error) {
	return f.users[userID], nil
}

func (f *fakeRepo) BookExists(ctx context.Context, bookID int64) (bool, error) {
	_, ok := f.books[bookID]
	return ok, nil
}

func (f *fakeRepo) FindOne(ctx context.Context, id int64) (*model.Loan, error) {
	l, ok := f.loans[id]
	if !ok {
		return nil, nil
	}
	cp := *l
	return &cp, nil
}

func (f *fakeRepo) List(ctx context.Context, fl loanrepo.ListFilter) ([]model.Loan, int64, error) {
	var out []model.Loan
	for _, l := range f.loans {
		if fl.UserID != 0 && l.UserID != fl.UserID {
			continue
		}
		if fl.BookID != 0 && l.BookID != fl.BookID {
			continue
		}
		if fl.Status != "" && l.Status != fl.Status {
			continue
		}
		if fl.IsOverdue {
			if l.Status != model.LoanActive || l.DueDate == nil || !l.DueDate.Before(fl.Now) {
				continue
			}
		}
		out = append(out, *l)
	}
	return out, int64(len(out)), nil
}

func (f *fakeRepo) HasReturned(ctx context.Context, userID, bookID int64) (bool, error) {
	for _, l := range f.loans {
		if l.UserID == userID && l.BookID == bookID && l.Status == model.LoanReturned {
			return true, nil
		}
	}
	return false, nil
}

func newEngine(f *fakeRepo) library.Service {
	return library.New(f, library.Policy{CureOverdueOnExtend: true}, slog.Default())
}

func seed(f *fakeRepo) {
	f.users[1] = true
	f.books[1] = model.BookAvailable
}

func TestCreateBooking(t *testing.T) {
	ctx := context.Background()

	t.Run("available book gets booked", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		loan, err := s.CreateBooking(ctx, 1, 1)
		require.NoError(t, err)
		require.Equal(t, model.LoanBooked, loan.Status)
		require.NotNil(t, loan.BookingDate)
		require.Nil(t, loan.LoanDate)
		require.Nil(t, loan.DueDate)
		require.Equal(t, model.BookBooked, f.books[1])
		require.True(t, f.lastTx.committed)
	})

	t.Run("unknown user", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		_, err := s.CreateBooking(ctx, 99, 1)
		require.Equal(t, library.ErrUserNotFound, library.Code(err))
		require.Empty(t, f.loans)
	})

	t.Run("unknown book", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		_, err := s.CreateBooking(ctx, 1, 99)
		require.Equal(t, library.ErrBookNotFound, library.Code(err))
		require.True(t, f.lastTx.rolledBack)
	})

	t.Run("book already booked", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		f.books[1] = model.BookBooked
		s := newEngine(f)

		_, err := s.CreateBooking(ctx, 1, 1)
		require.Equal(t, library.ErrBookUnavailable, library.Code(err))
		require.Contains(t, err.Error(), "BOOKED")
		require.Empty(t, f.loans, "no loan may be created for an unavailable book")
		require.True(t, f.lastTx.rolledBack)
	})

	t.Run("borrowed book", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		f.books[1] = model.BookBorrowed
		s := newEngine(f)

		_, err := s.CreateBooking(ctx, 1, 1)
		require.Equal(t, library.ErrBookUnavailable, library.Code(err))
		require.Contains(t, err.Error(), "BORROWED")
	})

	t.Run("loan insert failure rolls back", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		f.insertErr = errors.New("boom")
		s := newEngine(f)

		_, err := s.CreateBooking(ctx, 1, 1)
		require.Error(t, err)
		require.True(t, f.lastTx.rolledBack)
		require.False(t, f.lastTx.committed)
	})
}

func TestPickup(t *testing.T) {
	ctx := context.Background()

	t.Run("booked loan becomes active with a 14-day term", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		booked, err := s.CreateBooking(ctx, 1, 1)
		require.NoError(t, err)

		loan, err := s.Pickup(ctx, booked.ID)
		require.NoError(t, err)
		require.Equal(t, model.LoanActive, loan.Status)
		require.NotNil(t, loan.LoanDate)
		require.NotNil(t, loan.DueDate)
		require.Equal(t, loan.LoanDate.AddDate(0, 0, 14), *loan.DueDate)
		require.WithinDuration(t, time.Now(), *loan.LoanDate, 5*time.Second)
		require.Equal(t, model.BookBorrowed, f.books[1])
	})

	t.Run("missing loan", func(t *testing.T) {
		f := newFakeRepo()
		s := newEngine(f)

		_, err := s.Pickup(ctx, 42)
		require.Equal(t, library.ErrLoanNotFound, library.Code(err))
	})

	t.Run("wrong state carries current status", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		booked, _ := s.CreateBooking(ctx, 1, 1)
		_, err := s.Pickup(ctx, booked.ID)
		require.NoError(t, err)

		_, err = s.Pickup(ctx, booked.ID)
		require.Equal(t, library.ErrInvalidState, library.Code(err))
		require.Contains(t, err.Error(), "ACTIVE")
	})

	t.Run("book status failure rolls back", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		booked, _ := s.CreateBooking(ctx, 1, 1)
		f.setStatusErr = errors.New("boom")

		_, err := s.Pickup(ctx, booked.ID)
		require.Error(t, err)
		require.True(t, f.lastTx.rolledBack)
		require.False(t, f.lastTx.committed)
	})
}

func TestReturn(t *testing.T) {
	ctx := context.Background()

	t.Run("round trip frees the book", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		booked, err := s.CreateBooking(ctx, 1, 1)
		require.NoError(t, err)
		require.Equal(t, model.BookBooked, f.books[1])

		_, err = s.Pickup(ctx, booked.ID)
		require.NoError(t, err)
		require.Equal(t, model.BookBorrowed, f.books[1])

		returned, err := s.Return(ctx, booked.ID)
		require.NoError(t, err)
		require.Equal(t, model.LoanReturned, returned.Status)
		require.NotNil(t, returned.ReturnDate)
		require.Equal(t, model.BookAvailable, f.books[1])
	})

	t.Run("stored overdue loan can be returned", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		booked, _ := s.CreateBooking(ctx, 1, 1)
		_, err := s.Pickup(ctx, booked.ID)
		require.NoError(t, err)
		f.loans[booked.ID].Status = model.LoanOverdue

		returned, err := s.Return(ctx, booked.ID)
		require.NoError(t, err)
		require.Equal(t, model.LoanReturned, returned.Status)
	})

	t.Run("booked loan cannot be returned", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		booked, _ := s.CreateBooking(ctx, 1, 1)
		_, err := s.Return(ctx, booked.ID)
		require.Equal(t, library.ErrInvalidState, library.Code(err))
		require.Contains(t, err.Error(), "BOOKED")
	})

	t.Run("returned loan stays returned", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		booked, _ := s.CreateBooking(ctx, 1, 1)
		_, _ = s.Pickup(ctx, booked.ID)
		_, err := s.Return(ctx, booked.ID)
		require.NoError(t, err)

		_, err = s.Return(ctx, booked.ID)
		require.Equal(t, library.ErrInvalidState, library.Code(err))
		require.Contains(t, err.Error(), "RETURNED")
	})
}

func TestExtend(t *testing.T) {
	ctx := context.Background()

	t.Run("due date moves 7 days, status unchanged", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		booked, _ := s.CreateBooking(ctx, 1, 1)
		active, err := s.Pickup(ctx, booked.ID)
		require.NoError(t, err)
		oldDue := *active.DueDate

		extended, err := s.Extend(ctx, booked.ID)
		require.NoError(t, err)
		require.Equal(t, oldDue.AddDate(0, 0, 7), *extended.DueDate)
		require.Equal(t, model.LoanActive, extended.Status)
	})

	t.Run("no due date", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		booked, _ := s.CreateBooking(ctx, 1, 1)
		_, err := s.Extend(ctx, booked.ID)
		require.Equal(t, library.ErrNoDueDate, library.Code(err))
	})

	t.Run("returned loan", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		booked, _ := s.CreateBooking(ctx, 1, 1)
		_, _ = s.Pickup(ctx, booked.ID)
		_, err := s.Return(ctx, booked.ID)
		require.NoError(t, err)

		_, err = s.Extend(ctx, booked.ID)
		require.Equal(t, library.ErrInvalidState, library.Code(err))
	})

	t.Run("extension cures stored overdue", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		booked, _ := s.CreateBooking(ctx, 1, 1)
		_, _ = s.Pickup(ctx, booked.ID)
		f.loans[booked.ID].Status = model.LoanOverdue

		extended, err := s.Extend(ctx, booked.ID)
		require.NoError(t, err)
		require.Equal(t, model.LoanActive, extended.Status)
	})

	t.Run("cure disabled keeps overdue", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := library.New(f, library.Policy{CureOverdueOnExtend: false}, slog.Default())

		booked, _ := s.CreateBooking(ctx, 1, 1)
		_, _ = s.Pickup(ctx, booked.ID)
		f.loans[booked.ID].Status = model.LoanOverdue

		extended, err := s.Extend(ctx, booked.ID)
		require.NoError(t, err)
		require.Equal(t, model.LoanOverdue, extended.Status)
	})
}

func TestReads(t *testing.T) {
	ctx := context.Background()

	t.Run("find one derives overdue", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		booked, _ := s.CreateBooking(ctx, 1, 1)
		_, err := s.Pickup(ctx, booked.ID)
		require.NoError(t, err)

		past := time.Now().AddDate(0, 0, -1)
		f.loans[booked.ID].DueDate = &past

		loan, err := s.FindOne(ctx, booked.ID)
		require.NoError(t, err)
		require.Equal(t, model.LoanOverdue, loan.Status)
		require.Equal(t, model.LoanActive, f.loans[booked.ID].Status, "stored status must stay ACTIVE")
	})

	t.Run("find one twice returns identical data", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		booked, _ := s.CreateBooking(ctx, 1, 1)
		a, err := s.FindOne(ctx, booked.ID)
		require.NoError(t, err)
		b, err := s.FindOne(ctx, booked.ID)
		require.NoError(t, err)
		require.Equal(t, a, b)
	})

	t.Run("user loans requires existing user", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		_, _, err := s.UserLoans(ctx, 99, model.Page{})
		require.Equal(t, library.ErrUserNotFound, library.Code(err))
	})

	t.Run("book loans requires existing book", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		_, _, err := s.BookLoans(ctx, 99, model.Page{})
		require.Equal(t, library.ErrBookNotFound, library.Code(err))
	})

	t.Run("overdue filter gets a timestamp", func(t *testing.T) {
		f := newFakeRepo()
		seed(f)
		s := newEngine(f)

		booked, _ := s.CreateBooking(ctx, 1, 1)
		_, err := s.Pickup(ctx, booked.ID)
		require.NoError(t, err)
		past := time.Now().AddDate(0, 0, -2)
		f.loans[booked.ID].DueDate = &past

		loans, total, err := s.List(ctx, library.ListFilter{IsOverdue: true})
		require.NoError(t, err)
		require.EqualValues(t, 1, total)
		require.Equal(t, model.LoanOverdue, loans[0].Status)
	})
}

package reviewsvc_test

import (
	"context"
	"testing"

	"librarysvc/model"
	reviewrepo "librarysvc/repository/review"
	"librarysvc/service/library"
	reviewsvc "librarysvc/service/review"
)

type repoMock struct {
	createFn        func(ctx context.Context, rv *model.Review) error
	findOneFn       func(ctx context.Context, id int64) (*model.Review, error)
	byUserAndBookFn func(ctx context.Context, userID, bookID int64) (*model.Review, error)
	listFn          func(ctx context.Context, f reviewrepo.ListFilter) ([]model.Review, int64, error)
	deleteFn        func(ctx context.Context, id int64) (bool, error)
}

func (m *repoMock) Create(ctx context.Context, rv *model.Review) error { return m.createFn(ctx, rv) }
func (m *repoMock) FindOne(ctx context.Context, id int64) (*model.Review, error) {
	return m.findOneFn(ctx, id)
}
func (m *repoMock) ByUserAndBook(ctx context.Context, userID, bookID int64) (*model.Review, error) {
	return m.byUserAndBookFn(ctx, userID, bookID)
}
func (m *repoMock) List(ctx context.Context, f reviewrepo.ListFilter) ([]model.Review, int64, error) {
	return m.listFn(ctx, f)
}
func (m *repoMock) Delete(ctx context.Context, id int64) (bool, error) { return m.deleteFn(ctx, id) }

type userReaderMock struct {
	findOneFn func(ctx context.Context, id int64) (*model.User, error)
}

func (m *userReaderMock) FindOne(ctx context.Context, id int64) (*model.User, error) {
	return m.findOneFn(ctx, id)
}

type bookReaderMock struct {
	findOneFn func(ctx context.Context, id int64) (*model.Book, error)
}

func (m *bookReaderMock) FindOne(ctx context.Context, id int64) (*model.Book, error) {
	return m.findOneFn(ctx, id)
}

type loanReaderMock struct {
	findOneFn     func(ctx context.Context, id int64) (*model.Loan, error)
	hasReturnedFn func(ctx context.Context, userID, bookID int64) (bool, error)
}

func (m *loanReaderMock) FindOne(ctx context.Context, id int64) (*model.Loan, error) {
	return m.findOneFn(ctx, id)
}
func (m *loanReaderMock) HasReturnedLoan(ctx context.Context, userID, bookID int64) (bool, error) {
	return m.hasReturnedFn(ctx, userID, bookID)
}

// loanNotFoundErr mimics the loan engine's coded not-found error.
type loanNotFoundErr struct{}

func (loanNotFoundErr) Error() string         { return "loan not found" }
func (loanNotFoundErr) Code() library.ErrCode { return library.ErrLoanNotFound }

type fixture struct {
	repo  *repoMock
	users *userReaderMock
	books *bookReaderMock
	loans *loanReaderMock
}

// happyFixture wires collaborators where user 1 and book 2 exist, no prior
// review, and loan 3 is a returned loan for that pair.
func happyFixture() *fixture {
	return &fixture{
		repo: &repoMock{
			byUserAndBookFn: func(ctx context.Context, userID, bookID int64) (*model.Review, error) {
				return nil, nil
			},
			createFn: func(ctx context.Context, rv *model.Review) error {
				rv.ID = 10
				return nil
			},
		},
		users: &userReaderMock{
			findOneFn: func(ctx context.Context, id int64) (*model.User, error) {
				return &model.User{ID: id}, nil
			},
		},
		books: &bookReaderMock{
			findOneFn: func(ctx context.Context, id int64) (*model.Book, error) {
				return &model.Book{ID: id}, nil
			},
		},
		loans: &loanReaderMock{
			findOneFn: func(ctx context.Context, id int64) (*model.Loan, error) {
				return &model.Loan{ID: id, UserID: 1, BookID: 2, Status: model.LoanReturned}, nil
			},
			hasReturnedFn: func(ctx context.Context, userID, bookID int64) (bool, error) {
				return true, nil
			},
		},
	}
}

func (f *fixture) service(pol reviewsvc.Policy) reviewsvc.Service {
	return reviewsvc.New(f.repo, f.users, f.books, f.loans, pol)
}

func TestCreate_RatingBounds(t *testing.T) {
	f := happyFixture()
	f.users.findOneFn = func(ctx context.Context, id int64) (*model.User, error) {
		t.Fatal("rating check must run before any lookup")
		return nil, nil
	}
	s := f.service(reviewsvc.Policy{})

	for _, rating := range []int{0, -1, 6} {
		_, err := s.Create(context.Background(), reviewsvc.CreateInput{UserID: 1, BookID: 2, Rating: rating})
		if reviewsvc.Code(err) != reviewsvc.ErrBadRating {
			t.Fatalf("rating %d: got %v; want BAD_RATING", rating, err)
		}
	}
}

func TestCreate_Success(t *testing.T) {
	f := happyFixture()
	s := f.service(reviewsvc.Policy{})

	rv, err := s.Create(context.Background(), reviewsvc.CreateInput{UserID: 1, BookID: 2, Rating: 5})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rv.ID != 10 || rv.Rating != 5 {
		t.Fatalf("got %+v; want id=10 rating=5", rv)
	}
}

func TestCreate_LoanMismatch(t *testing.T) {
	f := happyFixture()
	f.loans.findOneFn = func(ctx context.Context, id int64) (*model.Loan, error) {
		return &model.Loan{ID: id, UserID: 99, BookID: 2, Status: model.LoanReturned}, nil
	}
	s := f.service(reviewsvc.Policy{})

	loanID := int64(3)
	_, err := s.Create(context.Background(), reviewsvc.CreateInput{UserID: 1, BookID: 2, LoanID: &loanID, Rating: 4})
	if reviewsvc.Code(err) != reviewsvc.ErrLoanMismatch {
		t.Fatalf("got %v; want LOAN_MISMATCH", err)
	}
}

func TestCreate_LoanNotFound(t *testing.T) {
	f := happyFixture()
	f.loans.findOneFn = func(ctx context.Context, id int64) (*model.Loan, error) {
		return nil, loanNotFoundErr{}
	}
	s := f.service(reviewsvc.Policy{})

	loanID := int64(404)
	_, err := s.Create(context.Background(), reviewsvc.CreateInput{UserID: 1, BookID: 2, LoanID: &loanID, Rating: 4})
	if reviewsvc.Code(err) != reviewsvc.ErrLoanNotFound {
		t.Fatalf("got %v; want LOAN_NOT_FOUND", err)
	}
}

func TestCreate_RequireReturnedLoan(t *testing.T) {
	t.Run("linked loan not yet returned", func(t *testing.T) {
		f := happyFixture()
		f.loans.findOneFn = func(ctx context.Context, id int64) (*model.Loan, error) {
			return &model.Loan{ID: id, UserID: 1, BookID: 2, Status: model.LoanActive}, nil
		}
		s := f.service(reviewsvc.Policy{RequireReturnedLoan: true})

		loanID := int64(3)
		_, err := s.Create(context.Background(), reviewsvc.CreateInput{UserID: 1, BookID: 2, LoanID: &loanID, Rating: 4})
		if reviewsvc.Code(err) != reviewsvc.ErrLoanNotReturned {
			t.Fatalf("got %v; want LOAN_NOT_RETURNED", err)
		}
	})

	t.Run("no loan linked, user never returned the book", func(t *testing.T) {
		f := happyFixture()
		f.loans.hasReturnedFn = func(ctx context.Context, userID, bookID int64) (bool, error) {
			return false, nil
		}
		s := f.service(reviewsvc.Policy{RequireReturnedLoan: true})

		_, err := s.Create(context.Background(), reviewsvc.CreateInput{UserID: 1, BookID: 2, Rating: 4})
		if reviewsvc.Code(err) != reviewsvc.ErrLoanNotReturned {
			t.Fatalf("got %v; want LOAN_NOT_RETURNED", err)
		}
	})

	t.Run("no loan linked, policy off", func(t *testing.T) {
		f := happyFixture()
		f.loans.hasReturnedFn = func(ctx context.Context, userID, bookID int64) (bool, error) {
			t.Fatal("eligibility lookup must be skipped when the policy is off")
			return false, nil
		}
		s := f.service(reviewsvc.Policy{})

		if _, err := s.Create(context.Background(), reviewsvc.CreateInput{UserID: 1, BookID: 2, Rating: 4}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	})
}

func TestCreate_Duplicate(t *testing.T) {
	f := happyFixture()
	f.repo.byUserAndBookFn = func(ctx context.Context, userID, bookID int64) (*model.Review, error) {
		return &model.Review{ID: 1, UserID: userID, BookID: bookID}, nil
	}
	s := f.service(reviewsvc.Policy{})

	_, err := s.Create(context.Background(), reviewsvc.CreateInput{UserID: 1, BookID: 2, Rating: 4})
	if reviewsvc.Code(err) != reviewsvc.ErrDuplicate {
		t.Fatalf("got %v; want REVIEW_EXISTS", err)
	}
}

func TestRemove_NotFound(t *testing.T) {
	f := happyFixture()
	f.repo.deleteFn = func(ctx context.Context, id int64) (bool, error) { return false, nil }
	s := f.service(reviewsvc.Policy{})

	err := s.Remove(context.Background(), 99)
	if reviewsvc.Code(err) != reviewsvc.ErrNotFound {
		t.Fatalf("got %v; want REVIEW_NOT_FOUND", err)
	}
}

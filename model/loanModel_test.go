package model

import (
	"testing"
	"time"
)

func TestEffectiveStatus(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	past := now.AddDate(0, 0, -1)
	future := now.AddDate(0, 0, 1)

	cases := []struct {
		name string
		loan Loan
		want LoanStatus
	}{
		{"booked stays booked", Loan{Status: LoanBooked}, LoanBooked},
		{"active before due date", Loan{Status: LoanActive, DueDate: &future}, LoanActive},
		{"active past due date", Loan{Status: LoanActive, DueDate: &past}, LoanOverdue},
		{"returned past due date", Loan{Status: LoanReturned, DueDate: &past}, LoanReturned},
		{"active without due date", Loan{Status: LoanActive}, LoanActive},
		{"stored overdue passes through", Loan{Status: LoanOverdue, DueDate: &past}, LoanOverdue},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.loan.EffectiveStatus(now); got != tc.want {
				t.Fatalf("got %s; want %s", got, tc.want)
			}
		})
	}
}

func TestEffectiveStatus_ExactDueDate(t *testing.T) {
	now := time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)
	l := Loan{Status: LoanActive, DueDate: &now}
	if got := l.EffectiveStatus(now); got != LoanActive {
		t.Fatalf("a loan due exactly now is not yet overdue, got %s", got)
	}
}

func TestLoanOpen(t *testing.T) {
	for _, st := range []LoanStatus{LoanBooked, LoanActive, LoanOverdue} {
		if !(&Loan{Status: st}).Open() {
			t.Fatalf("%s loan must be open", st)
		}
	}
	if (&Loan{Status: LoanReturned}).Open() {
		t.Fatal("returned loan must not be open")
	}
}

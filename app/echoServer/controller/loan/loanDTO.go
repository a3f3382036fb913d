package loan

type CreateLoanReq struct {
	UserID int64 `json:"user_id" validate:"required,gt=0"`
	BookID int64 `json:"book_id" validate:"required,gt=0"`
}

type ListLoansReq struct {
	Page      int    `query:"page"`
	Limit     int    `query:"limit"`
	UserID    int64  `query:"user_id"`
	BookID    int64  `query:"book_id"`
	Status    string `query:"status" validate:"omitempty,oneof=BOOKED ACTIVE RETURNED OVERDUE"`
	IsOverdue bool   `query:"is_overdue"`
}

type pageReq struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

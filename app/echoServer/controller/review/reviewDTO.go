package review

type CreateReviewReq struct {
	UserID  int64   `json:"user_id" validate:"required,gt=0"`
	BookID  int64   `json:"book_id" validate:"required,gt=0"`
	LoanID  *int64  `json:"loan_id" validate:"omitempty,gt=0"`
	Rating  int     `json:"rating" validate:"required,min=1,max=5"`
	Comment *string `json:"comment"`
}

type pageReq struct {
	Page  int `query:"page"`
	Limit int `query:"limit"`
}

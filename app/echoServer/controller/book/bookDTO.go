package book

type CreateBookReq struct {
	Title       string  `json:"title" validate:"required"`
	Author      string  `json:"author" validate:"required"`
	ISBN        string  `json:"isbn" validate:"required"`
	Description *string `json:"description"`
}

type UpdateBookReq struct {
	Title       *string `json:"title" validate:"omitempty,min=1"`
	Author      *string `json:"author" validate:"omitempty,min=1"`
	ISBN        *string `json:"isbn" validate:"omitempty,min=1"`
	Description *string `json:"description"`
}

type ListBooksReq struct {
	Page   int    `query:"page"`
	Limit  int    `query:"limit"`
	Title  string `query:"title"`
	Author string `query:"author"`
	Status string `query:"status" validate:"omitempty,oneof=AVAILABLE BOOKED BORROWED"`
}

package user

type CreateUserReq struct {
	Name  string `json:"name" validate:"required,max=100"`
	Email string `json:"email" validate:"required,email"`
}

type UpdateUserReq struct {
	Name  *string `json:"name" validate:"omitempty,min=1,max=100"`
	Email *string `json:"email" validate:"omitempty,email"`
}

type ListUsersReq struct {
	Page  int    `query:"page"`
	Limit int    `query:"limit"`
	Name  string `query:"name"`
	Email string `query:"email"`
}

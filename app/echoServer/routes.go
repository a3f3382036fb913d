package echoServer

import (
	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"librarysvc/app/echoServer/controller/auth"
	"librarysvc/app/echoServer/controller/book"
	"librarysvc/app/echoServer/controller/loan"
	"librarysvc/app/echoServer/controller/review"
	"librarysvc/app/echoServer/controller/user"
)

type C struct {
	Auth   *auth.Controller
	User   *user.Controller
	Book   *book.Controller
	Loan   *loan.Controller
	Review *review.Controller

	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	v1 := e.Group("/v1")

	// Signup / login
	v1.POST("/auth/register", c.Auth.Register)
	v1.POST("/auth/login", c.Auth.Login)

	// Users
	v1.POST("/users", c.User.Create)
	v1.GET("/users", c.User.List)
	v1.GET("/users/:id", c.User.Detail)
	v1.PATCH("/users/:id", c.User.Update)
	v1.DELETE("/users/:id", c.User.Remove)
	v1.GET("/users/:id/loans", c.Loan.UserLoans)
	v1.GET("/users/:id/reviews", c.Review.UserReviews)

	// Books: reads are open, catalog administration needs a token.
	v1.GET("/books", c.Book.List)
	v1.GET("/books/:id", c.Book.Detail)
	v1.GET("/books/:id/loans", c.Loan.BookLoans)
	v1.GET("/books/:id/reviews", c.Review.BookReviews)

	admin := e.Group("/v1", echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization:Bearer ",
	}))
	admin.POST("/books", c.Book.Create)
	admin.PATCH("/books/:id", c.Book.Update)
	admin.DELETE("/books/:id", c.Book.Remove)

	// Loans
	v1.POST("/loans", c.Loan.Create)
	v1.GET("/loans", c.Loan.List)
	v1.GET("/loans/:id", c.Loan.Detail)
	v1.PATCH("/loans/:id/pickup", c.Loan.Pickup)
	v1.PATCH("/loans/:id/return", c.Loan.Return)
	v1.PATCH("/loans/:id/extend", c.Loan.Extend)

	// Reviews
	v1.POST("/reviews", c.Review.Create)
	v1.GET("/reviews/:id", c.Review.Detail)
	v1.DELETE("/reviews/:id", c.Review.Remove)
}

// Package main library loan API.
//
// @title           Library Loan API
// @version         1.0
// @description     Library management service (users, books, loans, reviews).
// @BasePath        /
// @schemes         http
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description  Use:  Bearer <JWT>
package main

import (
	"context"
	"log/slog"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"

	"librarysvc/app/echoServer"
	authctrl "librarysvc/app/echoServer/controller/auth"
	bookctrl "librarysvc/app/echoServer/controller/book"
	loanctrl "librarysvc/app/echoServer/controller/loan"
	reviewctrl "librarysvc/app/echoServer/controller/review"
	userctrl "librarysvc/app/echoServer/controller/user"
	"librarysvc/app/echoServer/validation"
	"librarysvc/config"
	bookrepo "librarysvc/repository/book"
	loanrepo "librarysvc/repository/loan"
	reviewrepo "librarysvc/repository/review"
	userrepo "librarysvc/repository/user"
	authsvc "librarysvc/service/auth"
	booksvc "librarysvc/service/book"
	"librarysvc/service/library"
	reviewsvc "librarysvc/service/review"
	usersvc "librarysvc/service/user"
	"librarysvc/util/database"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	// DB: *sql.DB, migrated on startup
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	// repos
	ur := userrepo.New(db)
	br := bookrepo.New(db)
	lr := loanrepo.New(db)
	rr := reviewrepo.New(db)

	// services
	as := authsvc.New(ur, cfg.JWTSecret)
	us := usersvc.New(ur)
	bs := booksvc.New(br)
	ls := library.New(lr, library.Policy{CureOverdueOnExtend: cfg.CureOverdueOnExtend}, log)
	rs := reviewsvc.New(rr, us, bs, ls, reviewsvc.Policy{RequireReturnedLoan: cfg.RequireReturnedLoan})

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	userC := &userctrl.Controller{Svc: us, V: v, Log: log}
	bookC := &bookctrl.Controller{Svc: bs, V: v, Log: log}
	loanC := &loanctrl.Controller{Svc: ls, V: v, Log: log}
	reviewC := &reviewctrl.Controller{Svc: rs, V: v, Log: log}

	// echo
	e := echo.New()
	e.JSONSerializer = echoServer.JSONSerializer{}
	echoServer.RegisterMiddlewares(e)
	e.Validator = validation.New()

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(200, map[string]any{
			"status":  "ok",
			"message": "Service is healthy and connected",
		})
	})

	e.GET("/swagger/*", echoSwagger.WrapHandler)

	echoServer.Register(e, echoServer.C{
		Auth:   authC,
		User:   userC,
		Book:   bookC,
		Loan:   loanC,
		Review: reviewC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	log.Info("starting server", "port", port, "env", cfg.Env)

	e.Logger.Fatal(e.Start(":" + port))
}

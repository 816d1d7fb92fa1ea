// Package main textbook indent API.
//
// @title           Textbook Indent API
// @version         1.0
// @description     campus textbook inventory, indent lifecycle and payment reconciliation.
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

	"textbookindent/app/echoServer"
	authctrl "textbookindent/app/echoServer/controller/auth"
	indentctrl "textbookindent/app/echoServer/controller/indent"
	textbookctrl "textbookindent/app/echoServer/controller/textbook"
	"textbookindent/app/echoServer/validation"
	"textbookindent/config"
	authrepo "textbookindent/repository/auth"
	indentrepo "textbookindent/repository/indent"
	notifyrepo "textbookindent/repository/notify"
	studentrepo "textbookindent/repository/student"
	textbookrepo "textbookindent/repository/textbook"
	authsvc "textbookindent/service/auth"
	indentsvc "textbookindent/service/indent"
	"textbookindent/service/ledger"
	textbooksvc "textbookindent/service/textbook"
	"textbookindent/util/database"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
)

func main() {

	cfg := config.Load()
	ctx := context.Background()

	// logger
	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	// DB
	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Error("db connect failed", "err", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := database.Bootstrap(ctx, db); err != nil {
		log.Error("schema bootstrap failed", "err", err)
		os.Exit(1)
	}

	// repos
	ar := authrepo.New(db)
	tr := textbookrepo.New(db)
	ir := indentrepo.New(db)
	sr := studentrepo.New(db)
	nr := notifyrepo.NewHTTP(cfg.NotifyURL)

	// ledger: every stock mutation funnels through here
	lg := ledger.WithRetry(tr, 3, log)

	// services
	as := authsvc.New(ar, cfg.JWTSecret)
	ts := textbooksvc.New(tr, lg)
	isvc := indentsvc.New(ir, tr, sr, lg, nr, log)

	// controllers
	v := validator.New()
	authC := &authctrl.Controller{Svc: as, V: v, Log: log}
	textbookC := &textbookctrl.Controller{Svc: ts, V: v, Log: log}
	indentC := &indentctrl.Controller{Svc: isvc, V: v, Log: log}

	// echo
	e := echo.New()
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
		Auth:     authC,
		Textbook: textbookC,
		Indent:   indentC,

		JWTSecret: cfg.JWTSecret,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.Port
	}

	slog.Info("starting server", "port", port)

	e.Logger.Fatal(e.Start(":" + port))
}

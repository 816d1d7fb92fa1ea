package echoServer

import (
	"textbookindent/app/echoServer/controller/auth"
	"textbookindent/app/echoServer/controller/indent"
	"textbookindent/app/echoServer/controller/textbook"

	"github.com/golang-jwt/jwt/v5"
	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"
)

type C struct {
	Auth      *auth.Controller
	Textbook  *textbook.Controller
	Indent    *indent.Controller
	JWTSecret string
}

func Register(e *echo.Echo, c C) {
	// Public
	pub := e.Group("/v1")
	pub.POST("/users/register", c.Auth.Register)
	pub.POST("/users/login", c.Auth.Login)

	// Auth
	auth := e.Group("/v1")
	auth.Use(echojwt.WithConfig(echojwt.Config{
		SigningKey:    []byte(c.JWTSecret),
		NewClaimsFunc: func(c echo.Context) jwt.Claims { return jwt.MapClaims{} },
		TokenLookup:   "header:Authorization:Bearer ",
	}))

	// Catalog
	auth.GET("/textbooks", c.Textbook.List, Require(CapViewReports))
	auth.GET("/textbooks/:id", c.Textbook.Detail, Require(CapViewReports))
	auth.POST("/textbooks", c.Textbook.Create, Require(CapManageCatalog))
	auth.POST("/textbooks/:id/copies", c.Textbook.AddCopies, Require(CapManageCatalog))

	// Indent lifecycle
	auth.POST("/indents", c.Indent.Create, Require(CapCreateIndent))
	auth.POST("/indents/:id/issue", c.Indent.Issue, Require(CapIssueIndent))
	auth.POST("/indents/:id/returns", c.Indent.Return, Require(CapRecordReturn))
	auth.POST("/indents/:id/cancel", c.Indent.Cancel, Require(CapCreateIndent))
	auth.POST("/indents/:id/payments", c.Indent.RecordPayment, Require(CapRecordPayment))

	// Reads
	auth.GET("/indents/:id", c.Indent.Detail, Require(CapViewReports))
	auth.GET("/indents/:id/receipt", c.Indent.Receipt, Require(CapViewReports))
	auth.GET("/students/:id/indents", c.Indent.ByStudent, Require(CapViewReports))
}

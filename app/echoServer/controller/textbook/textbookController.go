package textbook

import (
	"log/slog"
	"net/http"
	"strconv"

	"textbookindent/model"
	textbooksvc "textbookindent/service/textbook"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc textbooksvc.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/textbooks
func (h *Controller) Create(c echo.Context) error {
	var req CreateTextbookReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	id, err := h.Svc.Create(c.Request().Context(), model.Textbook{
		BranchID:     req.BranchID,
		AcademicYear: req.AcademicYear,
		BookCode:     req.BookCode,
		Title:        req.Title,
		Subject:      req.Subject,
		Publisher:    req.Publisher,
		UnitPrice:    req.UnitPrice,
		TotalQty:     req.TotalQty,
	})
	if err != nil {
		switch textbooksvc.Code(err) {
		case textbooksvc.ErrBadInput:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad input"})
		case textbooksvc.ErrDuplicate:
			return c.JSON(http.StatusConflict, echo.Map{"message": "book code already exists for this branch and year"})
		default:
			h.Log.Error("textbook create", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"id": id})
}

// POST /v1/textbooks/:id/copies
func (h *Controller) AddCopies(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req AddCopiesReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid json"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "validation error", "errors": err.Error()})
	}

	avail, err := h.Svc.AddCopies(c.Request().Context(), id, req.Count)
	if err != nil {
		switch textbooksvc.Code(err) {
		case textbooksvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "textbook not found"})
		case textbooksvc.ErrBadInput:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "bad input"})
		default:
			h.Log.Error("add copies", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusCreated, echo.Map{"available_qty": avail})
}

// GET /v1/textbooks?branch_id=&academic_year=
func (h *Controller) List(c echo.Context) error {
	branchID, err := strconv.ParseInt(c.QueryParam("branch_id"), 10, 64)
	if err != nil || branchID <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid branch_id"})
	}
	year := c.QueryParam("academic_year")
	if year == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "academic_year required"})
	}

	rows, err := h.Svc.List(c.Request().Context(), branchID, year)
	if err != nil {
		h.Log.Error("textbook list", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

// GET /v1/textbooks/:id
func (h *Controller) Detail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	row, err := h.Svc.Detail(c.Request().Context(), id)
	if err != nil {
		switch textbooksvc.Code(err) {
		case textbooksvc.ErrNotFound:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "not found"})
		default:
			h.Log.Error("textbook detail", "err", err)
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
		}
	}
	return c.JSON(http.StatusOK, row)
}

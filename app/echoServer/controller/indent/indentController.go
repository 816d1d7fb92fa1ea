package indent

import (
	"log/slog"
	"net/http"
	"strconv"

	"textbookindent/model"
	is "textbookindent/service/indent"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

type Controller struct {
	Svc is.Service
	V   *validator.Validate
	Log *slog.Logger
}

// POST /v1/indents
func (h *Controller) Create(c echo.Context) error {
	var req CreateIndentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	lines := make([]is.CreateLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, is.CreateLine{TextbookID: it.TextbookID, Quantity: it.Quantity})
	}

	out, err := h.Svc.Create(c.Request().Context(), is.CreateReq{
		StudentID:      req.StudentID,
		BranchID:       req.BranchID,
		AcademicYear:   req.AcademicYear,
		Lines:          lines,
		PaymentMethod:  req.PaymentMethod,
		PaidAmount:     req.PaidAmount,
		ExpectedReturn: req.ExpectedReturn,
		Remarks:        req.Remarks,
	})
	if err != nil {
		return h.fail(c, "indent create", err)
	}

	return c.JSON(http.StatusCreated, echo.Map{
		"indent":              out.Indent,
		"overpayment_warning": out.OverpaymentWarning,
	})
}

// POST /v1/indents/:id/issue
func (h *Controller) Issue(c echo.Context) error {
	id, ok := indentNo(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	in, err := h.Svc.Issue(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "indent issue", err)
	}
	return c.JSON(http.StatusOK, in)
}

// POST /v1/indents/:id/returns
func (h *Controller) Return(c echo.Context) error {
	id, ok := indentNo(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req ReturnReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	lines := make([]is.ReturnLine, 0, len(req.Items))
	for _, it := range req.Items {
		lines = append(lines, is.ReturnLine{
			ItemID:    it.ItemID,
			Quantity:  it.Quantity,
			Condition: model.ItemCondition(it.Condition),
		})
	}

	in, err := h.Svc.Return(c.Request().Context(), id, lines)
	if err != nil {
		return h.fail(c, "indent return", err)
	}
	return c.JSON(http.StatusOK, in)
}

// POST /v1/indents/:id/cancel
func (h *Controller) Cancel(c echo.Context) error {
	id, ok := indentNo(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req CancelReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}

	in, err := h.Svc.Cancel(c.Request().Context(), id, req.Reason)
	if err != nil {
		return h.fail(c, "indent cancel", err)
	}
	return c.JSON(http.StatusOK, in)
}

// POST /v1/indents/:id/payments
func (h *Controller) RecordPayment(c echo.Context) error {
	id, ok := indentNo(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	var req PaymentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid JSON"})
	}
	if err := h.V.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"message": "validation error",
			"errors":  err.Error(),
		})
	}

	out, err := h.Svc.RecordPayment(c.Request().Context(), id, req.Amount)
	if err != nil {
		return h.fail(c, "record payment", err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"indent":              out.Indent,
		"overpayment_warning": out.OverpaymentWarning,
	})
}

// GET /v1/indents/:id
func (h *Controller) Detail(c echo.Context) error {
	id, ok := indentNo(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	in, err := h.Svc.Get(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "indent detail", err)
	}
	return c.JSON(http.StatusOK, in)
}

// GET /v1/indents/:id/receipt
func (h *Controller) Receipt(c echo.Context) error {
	id, ok := indentNo(c)
	if !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	snap, err := h.Svc.Snapshot(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "indent receipt", err)
	}
	return c.JSON(http.StatusOK, snap)
}

// GET /v1/students/:id/indents
func (h *Controller) ByStudent(c echo.Context) error {
	sid, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || sid <= 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "invalid id"})
	}
	rows, err := h.Svc.ListByStudent(c.Request().Context(), sid)
	if err != nil {
		h.Log.Error("indents by student", "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"data": rows})
}

func indentNo(c echo.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	return id, err == nil && id > 0
}

func (h *Controller) fail(c echo.Context, op string, err error) error {
	switch is.Code(err) {
	case is.ErrEmptyItems, is.ErrInvalidQuantity, is.ErrInvalidAmount:
		return c.JSON(http.StatusBadRequest, echo.Map{"message": err.Error()})
	case is.ErrInvalidTransition:
		return c.JSON(http.StatusConflict, echo.Map{"message": "invalid state transition"})
	case is.ErrNoStock:
		return c.JSON(http.StatusConflict, echo.Map{"message": "insufficient stock"})
	case is.ErrConflict:
		// Retryable: the ledger kept losing the race.
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"message": "busy, retry"})
	case is.ErrBookNotFound, is.ErrStudentNotFound, is.ErrItemNotFound, is.ErrNotFound:
		return c.JSON(http.StatusNotFound, echo.Map{"message": err.Error()})
	default:
		h.Log.Error(op, "err", err)
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "internal error"})
	}
}

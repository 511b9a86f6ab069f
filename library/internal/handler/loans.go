package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/library-loans/library/internal/model"
	"github.com/Astemirdum/library-loans/pkg/auth"
)

type loanResponse struct {
	ID         int     `json:"id"`
	BookID     int     `json:"book_id"`
	UserID     int     `json:"user_id"`
	LoanDate   string  `json:"loan_date"`
	ReturnDate *string `json:"return_date"`
}

func newLoanResponse(l model.Loan) loanResponse {
	resp := loanResponse{
		ID:       l.ID,
		BookID:   l.BookID,
		UserID:   l.UserID,
		LoanDate: l.LoanDate.Format(model.DateLayout),
	}
	if l.ReturnDate != nil {
		d := l.ReturnDate.Format(model.DateLayout)
		resp.ReturnDate = &d
	}
	return resp
}

func (h *Handler) ListLoans(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	loans, err := h.librarySvc.ListLoans(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loans)
}

// ListLateLoans takes an optional asOf=YYYY-MM-DD, today by default.
func (h *Handler) ListLateLoans(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	asOf := time.Now().UTC()
	if s := c.QueryParam("asOf"); s != "" {
		if asOf, err = time.Parse(model.DateLayout, s); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "asOf must be YYYY-MM-DD")
		}
	}
	loans, err := h.librarySvc.ListLateLoans(c.Request().Context(), p, asOf)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, loans)
}

func (h *Handler) StartLoan(c echo.Context) error {
	p, req, err := h.loanRequest(c)
	if err != nil {
		return err
	}
	loan, err := h.librarySvc.StartLoan(c.Request().Context(), req.BookID, p.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, newLoanResponse(loan))
}

func (h *Handler) CloseLoan(c echo.Context) error {
	p, req, err := h.loanRequest(c)
	if err != nil {
		return err
	}
	loan, err := h.librarySvc.CloseLoan(c.Request().Context(), req.BookID, p.ID)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, newLoanResponse(loan))
}

func (h *Handler) loanRequest(c echo.Context) (p auth.Principal, req model.LoanRequest, err error) {
	if p, err = principal(c); err != nil {
		return p, req, err
	}
	if err = c.Bind(&req); err != nil {
		return p, req, echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err = c.Validate(&req); err != nil {
		return p, req, echo.NewHTTPError(http.StatusBadRequest, "book_id is required")
	}
	return p, req, nil
}

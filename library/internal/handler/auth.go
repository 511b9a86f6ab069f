package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/library-loans/library/internal/model"
	"github.com/Astemirdum/library-loans/library/internal/policy"
)

// Register creates an ordinary user from a multipart form with an optional profile_photo.
func (h *Handler) Register(c echo.Context) error {
	var req model.RegisterRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	city, err := formValue(c, "city")
	if err != nil {
		return err
	}
	if city != nil && *city != "" {
		req.City = city
	}
	if err = c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	photo, closeFile, err := upload(c, fieldProfilePhoto)
	if err != nil {
		return err
	}
	defer closeFile()

	u, err := h.librarySvc.Register(c.Request().Context(), req, photo)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, policy.ProjectSelf(u))
}

func (h *Handler) Login(c echo.Context) error {
	var req model.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "username and password are required")
	}
	resp, err := h.librarySvc.Authenticate(c.Request().Context(), req.Username, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *Handler) Profile(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	view, err := h.librarySvc.Profile(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, view)
}

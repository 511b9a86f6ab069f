package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/library-loans/library/internal/model"
	"github.com/Astemirdum/library-loans/library/internal/policy"
	"github.com/Astemirdum/library-loans/pkg/auth"
)

func (h *Handler) ListUsers(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	users, err := h.librarySvc.ListUsers(c.Request().Context(), p)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

func (h *Handler) FindUsers(c echo.Context) error {
	p, err := principal(c)
	if err != nil {
		return err
	}
	name := c.QueryParam("name")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "user name parameter is required")
	}
	users, err := h.librarySvc.FindUsers(c.Request().Context(), p, name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, users)
}

// UpdateUser changes only the form fields that were sent. is_active is ignored.
func (h *Handler) UpdateUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var patch model.UserPatch
	for key, dst := range map[string]**string{
		"username": &patch.Username,
		"email":    &patch.Email,
		"city":     &patch.City,
		"password": &patch.Password,
	} {
		if *dst, err = formValue(c, key); err != nil {
			return err
		}
	}
	role, err := formValue(c, "role")
	if err != nil {
		return err
	}
	if role != nil {
		r := auth.Role(*role)
		patch.Role = &r
	}
	if err = c.Validate(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	photo, closeFile, err := upload(c, fieldProfilePhoto)
	if err != nil {
		return err
	}
	defer closeFile()

	u, err := h.librarySvc.UpdateUser(c.Request().Context(), id, patch, photo)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, policy.ProjectUser(u, auth.RoleAdmin))
}

func (h *Handler) DeactivateUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err = h.librarySvc.DeactivateUser(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, model.Message{Message: "user removed successfully"})
}

func (h *Handler) ReactivateUser(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err = h.librarySvc.ReactivateUser(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, model.Message{Message: "user activated successfully"})
}

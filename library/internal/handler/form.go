package handler

import (
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/Astemirdum/library-loans/library/internal/model"
	"github.com/Astemirdum/library-loans/pkg/auth"
)

const (
	fieldProfilePhoto = "profile_photo"
	fieldImage        = "image"
)

func pathID(c echo.Context) (int, error) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "id is invalid")
	}
	return id, nil
}

func principal(c echo.Context) (auth.Principal, error) {
	p, err := auth.GetPrincipal(c.Request().Context())
	if err != nil {
		return auth.Principal{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthenticated")
	}
	return p, nil
}

// formValue reports whether key was sent at all, empty values included.
func formValue(c echo.Context, key string) (*string, error) {
	params, err := c.FormParams()
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	vals, ok := params[key]
	if !ok || len(vals) == 0 {
		return nil, nil
	}
	return &vals[0], nil
}

func formInt(c echo.Context, key string) (*int, error) {
	s, err := formValue(c, key)
	if err != nil || s == nil || *s == "" {
		return nil, err
	}
	n, err := strconv.Atoi(*s)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusBadRequest, key+" is invalid")
	}
	return &n, nil
}

// upload opens the file sent under field. A missing file is not an error.
func upload(c echo.Context, field string) (*model.Upload, func(), error) {
	nop := func() {}
	fh, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nop, nil
		}
		return nil, nop, echo.NewHTTPError(http.StatusBadRequest, "invalid multipart form")
	}
	if fh.Filename == "" {
		return nil, nop, nil
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nop, echo.NewHTTPError(http.StatusBadRequest, "cannot read "+field)
	}
	return &model.Upload{Filename: fh.Filename, Content: f}, closer(f), nil
}

func closer(f multipart.File) func() {
	return func() { _ = f.Close() }
}

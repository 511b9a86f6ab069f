package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Astemirdum/library-loans/library/internal/model"
	"github.com/Astemirdum/library-loans/library/internal/policy"
)

func (h *Handler) ListBooks(c echo.Context) error {
	books, err := h.librarySvc.ListBooks(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, projectBooks(books))
}

func (h *Handler) FindBooks(c echo.Context) error {
	name := c.QueryParam("name")
	if name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "book name parameter is required")
	}
	books, err := h.librarySvc.FindBooks(c.Request().Context(), name)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, projectBooks(books))
}

func (h *Handler) CreateBook(c echo.Context) error {
	var req model.CreateBookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid form")
	}
	year, err := formInt(c, "published_year")
	if err != nil {
		return err
	}
	req.PublishedYear = year
	if err = c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	image, closeFile, err := upload(c, fieldImage)
	if err != nil {
		return err
	}
	defer closeFile()

	b, err := h.librarySvc.CreateBook(c.Request().Context(), req, image)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, policy.ProjectBook(b))
}

// UpdateBook changes only the form fields that were sent.
func (h *Handler) UpdateBook(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	var patch model.BookPatch
	if patch.Title, err = formValue(c, "title"); err != nil {
		return err
	}
	if patch.Author, err = formValue(c, "author"); err != nil {
		return err
	}
	if patch.PublishedYear, err = formInt(c, "published_year"); err != nil {
		return err
	}
	typ, err := formInt(c, "type")
	if err != nil {
		return err
	}
	if typ != nil {
		t := model.BookType(*typ)
		patch.Type = &t
	}
	if err = c.Validate(&patch); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	image, closeFile, err := upload(c, fieldImage)
	if err != nil {
		return err
	}
	defer closeFile()

	b, err := h.librarySvc.UpdateBook(c.Request().Context(), id, patch, image)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, policy.ProjectBook(b))
}

func (h *Handler) DeactivateBook(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err = h.librarySvc.DeactivateBook(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, model.Message{Message: "book removed successfully"})
}

func (h *Handler) ReactivateBook(c echo.Context) error {
	id, err := pathID(c)
	if err != nil {
		return err
	}
	if err = h.librarySvc.ReactivateBook(c.Request().Context(), id); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, model.Message{Message: "book activated successfully"})
}

func projectBooks(books []model.Book) []model.Book {
	out := make([]model.Book, 0, len(books))
	for _, b := range books {
		out = append(out, policy.ProjectBook(b))
	}
	return out
}

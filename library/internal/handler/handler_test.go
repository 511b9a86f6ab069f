package handler_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loans/library/internal/errs"
	"github.com/Astemirdum/library-loans/library/internal/handler"
	"github.com/Astemirdum/library-loans/library/internal/model"
	"github.com/Astemirdum/library-loans/pkg/auth"

	service_mocks "github.com/Astemirdum/library-loans/library/internal/handler/mocks"
)

const (
	adminToken = "admin-token"
	userToken  = "user-token"
)

var (
	admin = auth.Principal{ID: 1, Username: "root", Role: auth.RoleAdmin}
	alice = auth.Principal{ID: 2, Username: "alice", Role: auth.RoleUser}
)

type tokens map[string]auth.Principal

func (t tokens) ParseToken(token string) (auth.Principal, error) {
	p, ok := t[token]
	if !ok {
		return auth.Principal{}, errors.New("token is malformed")
	}
	return p, nil
}

type request struct {
	method      string
	target      string
	token       string
	contentType string
	body        string
}

type response struct {
	expectedCode int
	expectedBody string
}

type mockBehavior func(r *service_mocks.MockLibraryService)

type testCase struct {
	name         string
	mockBehavior mockBehavior
	request      request
	response     response
}

func run(t *testing.T, tests []testCase) {
	t.Helper()
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLibraryService(c)
			h := handler.New(svc, tokens{adminToken: admin, userToken: alice}, zap.NewNop())
			e := h.NewRouter()

			r := httptest.NewRequest(tt.request.method, tt.request.target, strings.NewReader(tt.request.body))
			if tt.request.contentType != "" {
				r.Header.Set(echo.HeaderContentType, tt.request.contentType)
			}
			if tt.request.token != "" {
				r.Header.Set(echo.HeaderAuthorization, "Bearer "+tt.request.token)
			}
			w := httptest.NewRecorder()

			if tt.mockBehavior != nil {
				tt.mockBehavior(svc)
			}
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			if tt.response.expectedBody != "" {
				require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
			}
		})
	}
}

type formFile struct {
	field, name, content string
}

func multipartForm(t *testing.T, fields map[string]string, files ...formFile) (string, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	for _, f := range files {
		fw, err := mw.CreateFormFile(f.field, f.name)
		require.NoError(t, err)
		_, err = fw.Write([]byte(f.content))
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return buf.String(), mw.FormDataContentType()
}

func ptr[T any](v T) *T { return &v }

var dune = model.Book{
	ID:            1,
	Title:         "Dune",
	Author:        "Frank Herbert",
	PublishedYear: ptr(1965),
	Type:          model.BookTypeLong,
	Available:     true,
	IsActive:      true,
}

const duneJSON = `{"id":1,"title":"Dune","author":"Frank Herbert","published_year":1965,"type":1,"image_url":null,"available":true,"is_active":true}`

func TestHandler_Health(t *testing.T) {
	t.Parallel()
	run(t, []testCase{
		{
			name:     "ok",
			request:  request{method: http.MethodGet, target: "/manage/health"},
			response: response{expectedCode: http.StatusOK, expectedBody: "OK"},
		},
	})
}

func TestHandler_Register(t *testing.T) {
	t.Parallel()
	form, ctype := multipartForm(t, map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret",
		"city":     "Paris",
	})
	badForm, badType := multipartForm(t, map[string]string{
		"username": "alice",
		"email":    "not-an-email",
		"password": "secret",
	})
	withPhoto, photoType := multipartForm(t, map[string]string{
		"username": "alice",
		"email":    "alice@example.com",
		"password": "secret",
	}, formFile{field: "profile_photo", name: "me.exe", content: "MZ"})

	run(t, []testCase{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					Register(gomock.Any(), model.RegisterRequest{
						Username: "alice",
						Email:    "alice@example.com",
						Password: "secret",
						City:     ptr("Paris"),
					}, gomock.Nil()).
					Return(model.User{
						ID:       2,
						Username: "alice",
						Email:    "alice@example.com",
						City:     ptr("Paris"),
						Role:     auth.RoleUser,
						IsActive: true,
					}, nil)
			},
			request: request{method: http.MethodPost, target: "/api/v1/register", contentType: ctype, body: form},
			response: response{
				expectedCode: http.StatusCreated,
				expectedBody: `{"id":2,"username":"alice","email":"alice@example.com","city":"Paris","role":"user","is_active":true,"profile_photo":null}`,
			},
		},
		{
			name:     "err. invalid email",
			request:  request{method: http.MethodPost, target: "/api/v1/register", contentType: badType, body: badForm},
			response: response{expectedCode: http.StatusBadRequest},
		},
		{
			name: "err. unsupported photo",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					Register(gomock.Any(), gomock.Any(), gomock.Not(gomock.Nil())).
					DoAndReturn(func(_ context.Context, _ model.RegisterRequest, photo *model.Upload) (model.User, error) {
						require.Equal(t, "me.exe", photo.Filename)
						return model.User{}, errs.ErrUnsupportedType
					})
			},
			request: request{method: http.MethodPost, target: "/api/v1/register", contentType: photoType, body: withPhoto},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"error":"file type not allowed"}`,
			},
		},
		{
			name: "err. duplicate",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					Register(gomock.Any(), gomock.Any(), gomock.Nil()).
					Return(model.User{}, errors.Wrap(errs.ErrDuplicateIdentity, "create user"))
			},
			request: request{method: http.MethodPost, target: "/api/v1/register", contentType: ctype, body: form},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"error":"username or email already exists"}`,
			},
		},
	})
}

func TestHandler_Login(t *testing.T) {
	t.Parallel()
	expires := time.Date(2024, 3, 2, 10, 0, 0, 0, time.UTC)
	run(t, []testCase{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					Authenticate(gomock.Any(), "alice", "secret").
					Return(model.LoginResponse{AccessToken: "jwt", TokenType: "Bearer", ExpiresAt: expires}, nil)
			},
			request: request{
				method: http.MethodPost, target: "/api/v1/login",
				contentType: echo.MIMEApplicationJSON, body: `{"username":"alice","password":"secret"}`,
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"access_token":"jwt","token_type":"Bearer","expires_at":"2024-03-02T10:00:00Z"}`,
			},
		},
		{
			name: "err. invalid credentials",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					Authenticate(gomock.Any(), "alice", "wrong").
					Return(model.LoginResponse{}, errs.ErrInvalidCredentials)
			},
			request: request{
				method: http.MethodPost, target: "/api/v1/login",
				contentType: echo.MIMEApplicationJSON, body: `{"username":"alice","password":"wrong"}`,
			},
			response: response{
				expectedCode: http.StatusUnauthorized,
				expectedBody: `{"error":"invalid username or password"}`,
			},
		},
		{
			name: "err. missing password",
			request: request{
				method: http.MethodPost, target: "/api/v1/login",
				contentType: echo.MIMEApplicationJSON, body: `{"username":"alice"}`,
			},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"error":"username and password are required"}`,
			},
		},
	})
}

func TestHandler_Profile(t *testing.T) {
	t.Parallel()
	run(t, []testCase{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					Profile(gomock.Any(), alice).
					Return(model.UserView{ID: ptr(2), Username: "alice"}, nil)
			},
			request: request{method: http.MethodGet, target: "/api/v1/profile", token: userToken},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"id":2,"username":"alice","city":null,"profile_photo":null}`,
			},
		},
		{
			name:    "err. no token",
			request: request{method: http.MethodGet, target: "/api/v1/profile"},
			response: response{
				expectedCode: http.StatusUnauthorized,
				expectedBody: `{"error":"no authorization header"}`,
			},
		},
		{
			name:    "err. bad token",
			request: request{method: http.MethodGet, target: "/api/v1/profile", token: "forged"},
			response: response{
				expectedCode: http.StatusUnauthorized,
				expectedBody: `{"error":"invalid token"}`,
			},
		},
	})
}

func TestHandler_ListBooks(t *testing.T) {
	t.Parallel()
	run(t, []testCase{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().ListBooks(gomock.Any()).Return([]model.Book{dune}, nil)
			},
			request:  request{method: http.MethodGet, target: "/api/v1/books"},
			response: response{expectedCode: http.StatusOK, expectedBody: "[" + duneJSON + "]"},
		},
		{
			name: "ok. empty",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().ListBooks(gomock.Any()).Return(nil, nil)
			},
			request:  request{method: http.MethodGet, target: "/api/v1/books"},
			response: response{expectedCode: http.StatusOK, expectedBody: "[]"},
		},
		{
			name: "err. internal",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().ListBooks(gomock.Any()).Return(nil, errors.New("db internal"))
			},
			request: request{method: http.MethodGet, target: "/api/v1/books"},
			response: response{
				expectedCode: http.StatusInternalServerError,
				expectedBody: `{"error":"internal error"}`,
			},
		},
	})
}

func TestHandler_FindBooks(t *testing.T) {
	t.Parallel()
	run(t, []testCase{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().FindBooks(gomock.Any(), "dun").Return([]model.Book{dune}, nil)
			},
			request:  request{method: http.MethodGet, target: "/api/v1/books/search?name=dun"},
			response: response{expectedCode: http.StatusOK, expectedBody: "[" + duneJSON + "]"},
		},
		{
			name:    "err. name required",
			request: request{method: http.MethodGet, target: "/api/v1/books/search"},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"error":"book name parameter is required"}`,
			},
		},
	})
}

func TestHandler_CreateBook(t *testing.T) {
	t.Parallel()
	form, ctype := multipartForm(t, map[string]string{
		"title":          "Dune",
		"author":         "Frank Herbert",
		"published_year": "1965",
		"type":           "1",
	}, formFile{field: "image", name: "cover.png", content: "png"})
	badType, badCtype := multipartForm(t, map[string]string{
		"title":  "Dune",
		"author": "Frank Herbert",
		"type":   "5",
	})
	badYear, yearCtype := multipartForm(t, map[string]string{
		"title":          "Dune",
		"author":         "Frank Herbert",
		"type":           "1",
		"published_year": "nineteen",
	})

	run(t, []testCase{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					CreateBook(gomock.Any(), model.CreateBookRequest{
						Title:         "Dune",
						Author:        "Frank Herbert",
						PublishedYear: ptr(1965),
						Type:          model.BookTypeLong,
					}, gomock.Not(gomock.Nil())).
					DoAndReturn(func(_ context.Context, _ model.CreateBookRequest, image *model.Upload) (model.Book, error) {
						require.Equal(t, "cover.png", image.Filename)
						return dune, nil
					})
			},
			request:  request{method: http.MethodPost, target: "/api/v1/books", token: adminToken, contentType: ctype, body: form},
			response: response{expectedCode: http.StatusCreated, expectedBody: duneJSON},
		},
		{
			name:    "err. forbidden for users",
			request: request{method: http.MethodPost, target: "/api/v1/books", token: userToken, contentType: ctype, body: form},
			response: response{
				expectedCode: http.StatusForbidden,
				expectedBody: `{"error":"insufficient role"}`,
			},
		},
		{
			name:     "err. unauthenticated",
			request:  request{method: http.MethodPost, target: "/api/v1/books", contentType: ctype, body: form},
			response: response{expectedCode: http.StatusUnauthorized},
		},
		{
			name:     "err. unknown type",
			request:  request{method: http.MethodPost, target: "/api/v1/books", token: adminToken, contentType: badCtype, body: badType},
			response: response{expectedCode: http.StatusBadRequest},
		},
		{
			name:    "err. bad year",
			request: request{method: http.MethodPost, target: "/api/v1/books", token: adminToken, contentType: yearCtype, body: badYear},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"error":"published_year is invalid"}`,
			},
		},
	})
}

func TestHandler_UpdateBook(t *testing.T) {
	t.Parallel()
	form, ctype := multipartForm(t, map[string]string{"title": "Dune Messiah", "type": "2"})
	renamed := dune
	renamed.Title = "Dune Messiah"
	renamed.Type = model.BookTypeShort

	run(t, []testCase{
		{
			name: "ok. partial",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				typ := model.BookTypeShort
				r.EXPECT().
					UpdateBook(gomock.Any(), 1, model.BookPatch{Title: ptr("Dune Messiah"), Type: &typ}, gomock.Nil()).
					Return(renamed, nil)
			},
			request: request{method: http.MethodPut, target: "/api/v1/books/1", token: adminToken, contentType: ctype, body: form},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"id":1,"title":"Dune Messiah","author":"Frank Herbert","published_year":1965,"type":2,"image_url":null,"available":true,"is_active":true}`,
			},
		},
		{
			name: "err. not found",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					UpdateBook(gomock.Any(), 9, gomock.Any(), gomock.Nil()).
					Return(model.Book{}, errors.Wrap(errs.ErrNotFound, "lock book"))
			},
			request: request{method: http.MethodPut, target: "/api/v1/books/9", token: adminToken, contentType: ctype, body: form},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"error":"not found"}`,
			},
		},
		{
			name:    "err. bad id",
			request: request{method: http.MethodPut, target: "/api/v1/books/abc", token: adminToken, contentType: ctype, body: form},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"error":"id is invalid"}`,
			},
		},
	})
}

func TestHandler_DeactivateBook(t *testing.T) {
	t.Parallel()
	run(t, []testCase{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().DeactivateBook(gomock.Any(), 1).Return(nil)
			},
			request: request{method: http.MethodPut, target: "/api/v1/books/1/deactivate", token: adminToken},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"message":"book removed successfully"}`,
			},
		},
		{
			name: "err. on loan",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().DeactivateBook(gomock.Any(), 1).Return(errs.ErrBookOnLoan)
			},
			request: request{method: http.MethodPut, target: "/api/v1/books/1/deactivate", token: adminToken},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"error":"book is currently on loan and must be returned first"}`,
			},
		},
	})
}

func TestHandler_ReactivateBook(t *testing.T) {
	t.Parallel()
	run(t, []testCase{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().ReactivateBook(gomock.Any(), 1).Return(nil)
			},
			request: request{method: http.MethodPut, target: "/api/v1/books/1/activate", token: adminToken},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"message":"book activated successfully"}`,
			},
		},
		{
			name: "err. already active",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().ReactivateBook(gomock.Any(), 1).Return(errs.ErrAlreadyActive)
			},
			request: request{method: http.MethodPut, target: "/api/v1/books/1/activate", token: adminToken},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"error":"already active"}`,
			},
		},
	})
}

func TestHandler_Users(t *testing.T) {
	t.Parallel()
	run(t, []testCase{
		{
			name: "ok. list as user",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					ListUsers(gomock.Any(), alice).
					Return([]model.UserView{{Username: "bob", City: ptr("Oslo")}}, nil)
			},
			request: request{method: http.MethodGet, target: "/api/v1/users", token: userToken},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `[{"username":"bob","city":"Oslo","profile_photo":null}]`,
			},
		},
		{
			name: "ok. search",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					FindUsers(gomock.Any(), admin, "bo").
					Return([]model.UserView{}, nil)
			},
			request:  request{method: http.MethodGet, target: "/api/v1/users/search?name=bo", token: adminToken},
			response: response{expectedCode: http.StatusOK, expectedBody: "[]"},
		},
		{
			name:    "err. search without name",
			request: request{method: http.MethodGet, target: "/api/v1/users/search", token: adminToken},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"error":"user name parameter is required"}`,
			},
		},
	})
}

func TestHandler_UpdateUser(t *testing.T) {
	t.Parallel()
	form, ctype := multipartForm(t, map[string]string{"email": "bob@example.com", "role": "admin"})
	badRole, badCtype := multipartForm(t, map[string]string{"role": "owner"})

	run(t, []testCase{
		{
			name: "ok. partial",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				role := auth.RoleAdmin
				r.EXPECT().
					UpdateUser(gomock.Any(), 3, model.UserPatch{Email: ptr("bob@example.com"), Role: &role}, gomock.Nil()).
					Return(model.User{ID: 3, Username: "bob", Email: "bob@example.com", Role: auth.RoleAdmin, IsActive: true}, nil)
			},
			request: request{method: http.MethodPut, target: "/api/v1/users/3", token: adminToken, contentType: ctype, body: form},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"id":3,"username":"bob","email":"bob@example.com","city":null,"role":"admin","is_active":true,"profile_photo":null}`,
			},
		},
		{
			name:     "err. unknown role",
			request:  request{method: http.MethodPut, target: "/api/v1/users/3", token: adminToken, contentType: badCtype, body: badRole},
			response: response{expectedCode: http.StatusBadRequest},
		},
		{
			name: "err. duplicate email",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					UpdateUser(gomock.Any(), 3, gomock.Any(), gomock.Nil()).
					Return(model.User{}, errs.ErrDuplicateIdentity)
			},
			request: request{method: http.MethodPut, target: "/api/v1/users/3", token: adminToken, contentType: ctype, body: form},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"error":"username or email already exists"}`,
			},
		},
	})
}

func TestHandler_DeactivateUser(t *testing.T) {
	t.Parallel()
	run(t, []testCase{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().DeactivateUser(gomock.Any(), 3).Return(nil)
			},
			request: request{method: http.MethodPut, target: "/api/v1/users/3/deactivate", token: adminToken},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"message":"user removed successfully"}`,
			},
		},
		{
			name: "err. open loan",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().DeactivateUser(gomock.Any(), 3).Return(errors.Wrap(errs.ErrUserHasOpenLoan, "deactivate user"))
			},
			request: request{method: http.MethodPut, target: "/api/v1/users/3/deactivate", token: adminToken},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"error":"user has active loans, all books must be returned first"}`,
			},
		},
		{
			name: "err. not found",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().ReactivateUser(gomock.Any(), 9).Return(errs.ErrNotFound)
			},
			request: request{method: http.MethodPut, target: "/api/v1/users/9/activate", token: adminToken},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"error":"not found"}`,
			},
		},
	})
}

func TestHandler_StartLoan(t *testing.T) {
	t.Parallel()
	loan := model.Loan{ID: 7, BookID: 1, UserID: 2, LoanDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
	run(t, []testCase{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().StartLoan(gomock.Any(), 1, alice.ID).Return(loan, nil)
			},
			request: request{
				method: http.MethodPost, target: "/api/v1/loans", token: userToken,
				contentType: echo.MIMEApplicationJSON, body: `{"book_id":1}`,
			},
			response: response{
				expectedCode: http.StatusCreated,
				expectedBody: `{"id":7,"book_id":1,"user_id":2,"loan_date":"2024-03-01","return_date":null}`,
			},
		},
		{
			name: "err. unavailable",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().StartLoan(gomock.Any(), 1, alice.ID).Return(model.Loan{}, errors.Wrap(errs.ErrBookUnavailable, "start loan"))
			},
			request: request{
				method: http.MethodPost, target: "/api/v1/loans", token: userToken,
				contentType: echo.MIMEApplicationJSON, body: `{"book_id":1}`,
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"error":"book is not available, not active, or does not exist"}`,
			},
		},
		{
			name: "err. inactive user",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().StartLoan(gomock.Any(), 1, alice.ID).Return(model.Loan{}, errs.ErrUserInactive)
			},
			request: request{
				method: http.MethodPost, target: "/api/v1/loans", token: userToken,
				contentType: echo.MIMEApplicationJSON, body: `{"book_id":1}`,
			},
			response: response{
				expectedCode: http.StatusForbidden,
				expectedBody: `{"error":"user is inactive"}`,
			},
		},
		{
			name: "err. missing book_id",
			request: request{
				method: http.MethodPost, target: "/api/v1/loans", token: userToken,
				contentType: echo.MIMEApplicationJSON, body: `{}`,
			},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"error":"book_id is required"}`,
			},
		},
	})
}

func TestHandler_CloseLoan(t *testing.T) {
	t.Parallel()
	returned := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	loan := model.Loan{ID: 7, BookID: 1, UserID: 2, LoanDate: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), ReturnDate: &returned}
	run(t, []testCase{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().CloseLoan(gomock.Any(), 1, alice.ID).Return(loan, nil)
			},
			request: request{
				method: http.MethodPost, target: "/api/v1/loans/return", token: userToken,
				contentType: echo.MIMEApplicationJSON, body: `{"book_id":1}`,
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"id":7,"book_id":1,"user_id":2,"loan_date":"2024-03-01","return_date":"2024-03-05"}`,
			},
		},
		{
			name: "err. no active loan",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().CloseLoan(gomock.Any(), 1, alice.ID).Return(model.Loan{}, errs.ErrNoActiveLoan)
			},
			request: request{
				method: http.MethodPost, target: "/api/v1/loans/return", token: userToken,
				contentType: echo.MIMEApplicationJSON, body: `{"book_id":1}`,
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"error":"no active loan found for this book and user"}`,
			},
		},
	})
}

func TestHandler_ListLoans(t *testing.T) {
	t.Parallel()
	views := []model.LoanView{{
		ID:       7,
		LoanDate: "2024-03-01",
		User:     model.UserView{Username: "alice"},
		Book:     dune,
	}}
	run(t, []testCase{
		{
			name: "ok",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().ListLoans(gomock.Any(), alice).Return(views, nil)
			},
			request: request{method: http.MethodGet, target: "/api/v1/loans", token: userToken},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `[{"id":7,"loan_date":"2024-03-01","return_date":null,"user":{"username":"alice","city":null,"profile_photo":null},"book":` + duneJSON + `}]`,
			},
		},
		{
			name:     "err. unauthenticated",
			request:  request{method: http.MethodGet, target: "/api/v1/loans"},
			response: response{expectedCode: http.StatusUnauthorized},
		},
	})
}

func TestHandler_ListLateLoans(t *testing.T) {
	t.Parallel()
	asOf := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	run(t, []testCase{
		{
			name: "ok. explicit date",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().
					ListLateLoans(gomock.Any(), admin, asOf).
					Return([]model.LateLoanView{{ID: 7, LoanDate: "2024-03-01", DaysOverdue: 4, User: model.UserView{Username: "alice"}, Book: dune}}, nil)
			},
			request: request{method: http.MethodGet, target: "/api/v1/loans/late?asOf=2024-03-15", token: adminToken},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `[{"id":7,"loan_date":"2024-03-01","days_overdue":4,"user":{"username":"alice","city":null,"profile_photo":null},"book":` + duneJSON + `}]`,
			},
		},
		{
			name: "ok. defaults to today",
			mockBehavior: func(r *service_mocks.MockLibraryService) {
				r.EXPECT().ListLateLoans(gomock.Any(), alice, gomock.Any()).Return([]model.LateLoanView{}, nil)
			},
			request:  request{method: http.MethodGet, target: "/api/v1/loans/late", token: userToken},
			response: response{expectedCode: http.StatusOK, expectedBody: "[]"},
		},
		{
			name:    "err. bad date",
			request: request{method: http.MethodGet, target: "/api/v1/loans/late?asOf=15.03.2024", token: userToken},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"error":"asOf must be YYYY-MM-DD"}`,
			},
		},
	})
}

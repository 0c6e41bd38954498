package handler_test

import (
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

	"github.com/adpadillar/software-architecture-library/lending/internal/errs"
	"github.com/adpadillar/software-architecture-library/lending/internal/handler"
	"github.com/adpadillar/software-architecture-library/lending/internal/model"
	"github.com/adpadillar/software-architecture-library/pkg/validate"

	service_mocks "github.com/adpadillar/software-architecture-library/lending/internal/handler/mocks"
)

var (
	start   = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	student = model.User{ID: "u1", Name: "Ana", Email: "ana@school.edu", Role: model.RoleStudent}
	teacher = model.User{ID: "u2", Name: "Luis", Email: "luis@school.edu", Role: model.RoleTeacher}
)

type response struct {
	expectedCode int
	expectedBody string
}

func serve(t *testing.T, method, target, body string, register func(e *echo.Echo)) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Validator = validate.NewCustomValidator()
	register(e)

	r := httptest.NewRequest(method, target, strings.NewReader(body))
	r.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	w := httptest.NewRecorder()
	e.ServeHTTP(w, r)
	return w
}

func TestHandler_Lend(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockLendingService)

	var tests = []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		response     response
	}{
		{
			name: "ok",
			body: `{"resourceId":"b1","userId":"u1"}`,
			mockBehavior: func(r *service_mocks.MockLendingService) {
				r.EXPECT().GetUser(gomock.Any(), "u1").Return(student, nil)
				r.EXPECT().Lend(gomock.Any(), "b1", student).Return(model.Loan{
					ID:         "l1",
					ResourceID: "b1",
					UserID:     "u1",
					StartDate:  start,
					DueDate:    start.Add(14 * 24 * time.Hour),
					EndDate:    start.Add(14 * 24 * time.Hour),
				}, nil)
			},
			response: response{
				expectedCode: http.StatusCreated,
				expectedBody: `{"id":"l1","resourceId":"b1","userId":"u1","startDate":"2024-03-01T12:00:00Z","dueDate":"2024-03-15T12:00:00Z","endDate":"2024-03-15T12:00:00Z"}`,
			},
		},
		{
			name: "err. unknown user",
			body: `{"resourceId":"b1","userId":"nobody"}`,
			mockBehavior: func(r *service_mocks.MockLendingService) {
				r.EXPECT().GetUser(gomock.Any(), "nobody").Return(model.User{}, errs.ErrNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"not found"}`,
			},
		},
		{
			name: "err. laptop to student",
			body: `{"resourceId":"l1","userId":"u1"}`,
			mockBehavior: func(r *service_mocks.MockLendingService) {
				r.EXPECT().GetUser(gomock.Any(), "u1").Return(student, nil)
				r.EXPECT().Lend(gomock.Any(), "l1", student).Return(model.Loan{}, errs.ErrTeachersOnly)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"conflict: only teachers may borrow laptops"}`,
			},
		},
		{
			name: "err. borrowed",
			body: `{"resourceId":"b1","userId":"u1"}`,
			mockBehavior: func(r *service_mocks.MockLendingService) {
				r.EXPECT().GetUser(gomock.Any(), "u1").Return(student, nil)
				r.EXPECT().Lend(gomock.Any(), "b1", student).Return(model.Loan{}, errs.ErrResourceUnavailable)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"conflict: resource is not available"}`,
			},
		},
		{
			name: "err. store",
			body: `{"resourceId":"b1","userId":"u1"}`,
			mockBehavior: func(r *service_mocks.MockLendingService) {
				r.EXPECT().GetUser(gomock.Any(), "u1").Return(student, nil)
				r.EXPECT().Lend(gomock.Any(), "b1", student).Return(model.Loan{}, errs.Store("lend", errors.New("db internal")))
			},
			response: response{
				expectedCode: http.StatusInternalServerError,
				expectedBody: `{"message":"store failure: lend: db internal"}`,
			},
		},
		{
			name:         "err. bad json",
			body:         `{"resourceId":`,
			mockBehavior: func(r *service_mocks.MockLendingService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
			},
		},
		{
			name:         "err. userId required",
			body:         `{"resourceId":"b1"}`,
			mockBehavior: func(r *service_mocks.MockLendingService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLendingService(c)
			h := handler.New(svc, zap.NewExample().Named("test"))
			tt.mockBehavior(svc)

			w := serve(t, http.MethodPost, "/loans", tt.body, func(e *echo.Echo) {
				e.POST("/loans", h.Lend)
			})

			require.Equal(t, tt.response.expectedCode, w.Code)
			if tt.response.expectedBody != "" {
				require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
			}
		})
	}
}

func TestHandler_LendLaptop(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockLendingService)

	var tests = []struct {
		name         string
		body         string
		mockBehavior mockBehavior
		response     response
	}{
		{
			name: "ok",
			body: `{"userId":"u2"}`,
			mockBehavior: func(r *service_mocks.MockLendingService) {
				r.EXPECT().GetUser(gomock.Any(), "u2").Return(teacher, nil)
				r.EXPECT().LendLaptop(gomock.Any(), teacher).Return(model.Loan{
					ID: "l9", ResourceID: "lap1", UserID: "u2",
					StartDate: start, DueDate: start.Add(24 * time.Hour), EndDate: start.Add(24 * time.Hour),
				}, nil)
			},
			response: response{
				expectedCode: http.StatusCreated,
				expectedBody: `{"id":"l9","resourceId":"lap1","userId":"u2","startDate":"2024-03-01T12:00:00Z","dueDate":"2024-03-02T12:00:00Z","endDate":"2024-03-02T12:00:00Z"}`,
			},
		},
		{
			name: "err. none left",
			body: `{"userId":"u2"}`,
			mockBehavior: func(r *service_mocks.MockLendingService) {
				r.EXPECT().GetUser(gomock.Any(), "u2").Return(teacher, nil)
				r.EXPECT().LendLaptop(gomock.Any(), teacher).Return(model.Loan{}, errs.ErrNoLaptopAvailable)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"conflict: no laptop available"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLendingService(c)
			h := handler.New(svc, zap.NewExample().Named("test"))
			tt.mockBehavior(svc)

			w := serve(t, http.MethodPost, "/loans/laptops", tt.body, func(e *echo.Echo) {
				e.POST("/loans/laptops", h.LendLaptop)
			})

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Return(t *testing.T) {
	t.Parallel()
	returned := start.Add(20 * 24 * time.Hour)
	type mockBehavior func(r *service_mocks.MockLendingService)

	var tests = []struct {
		name         string
		id           string
		mockBehavior mockBehavior
		response     response
	}{
		{
			name: "ok. overdue",
			id:   "b1",
			mockBehavior: func(r *service_mocks.MockLendingService) {
				r.EXPECT().ReturnResource(gomock.Any(), "b1").Return(model.Loan{
					ID: "l1", ResourceID: "b1", UserID: "u1",
					StartDate: start, DueDate: start.Add(14 * 24 * time.Hour), EndDate: returned, ReturnedAt: &returned,
				}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"id":"l1","resourceId":"b1","userId":"u1","startDate":"2024-03-01T12:00:00Z","dueDate":"2024-03-15T12:00:00Z","endDate":"2024-03-21T12:00:00Z","returnedAt":"2024-03-21T12:00:00Z"}`,
			},
		},
		{
			name: "err. no open loan",
			id:   "b1",
			mockBehavior: func(r *service_mocks.MockLendingService) {
				r.EXPECT().ReturnResource(gomock.Any(), "b1").Return(model.Loan{}, errs.ErrNoOpenLoan)
			},
			response: response{
				expectedCode: http.StatusConflict,
				expectedBody: `{"message":"conflict: no open loan for resource"}`,
			},
		},
		{
			name: "err. unknown",
			id:   "zz",
			mockBehavior: func(r *service_mocks.MockLendingService) {
				r.EXPECT().ReturnResource(gomock.Any(), "zz").Return(model.Loan{}, errs.ErrNotFound)
			},
			response: response{
				expectedCode: http.StatusNotFound,
				expectedBody: `{"message":"not found"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLendingService(c)
			h := handler.New(svc, zap.NewExample().Named("test"))
			tt.mockBehavior(svc)

			w := serve(t, http.MethodPost, "/resources/"+tt.id+"/return", "", func(e *echo.Echo) {
				e.POST("/resources/:id/return", h.Return)
			})

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_Search(t *testing.T) {
	t.Parallel()
	type mockBehavior func(r *service_mocks.MockLendingService)

	var tests = []struct {
		name         string
		query        string
		mockBehavior mockBehavior
		response     response
	}{
		{
			name:  "ok",
			query: "?kind=book&field=author&q=Herbert",
			mockBehavior: func(r *service_mocks.MockLendingService) {
				r.EXPECT().Search(gomock.Any(), model.KindBook, "author", "Herbert").Return([]model.Resource{{
					ID: "b1", Kind: model.KindBook, State: model.StateAvailable, CreatedAt: start,
					Book: &model.Book{Title: "Dune", Author: "Frank Herbert", Genre: "Sci-Fi"},
				}}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `[{"id":"b1","kind":"book","state":"available","createdAt":"2024-03-01T12:00:00Z","book":{"title":"Dune","author":"Frank Herbert","genre":"Sci-Fi"}}]`,
			},
		},
		{
			name:  "ok. nothing found",
			query: "?kind=laptop&field=brand&q=Acer",
			mockBehavior: func(r *service_mocks.MockLendingService) {
				r.EXPECT().Search(gomock.Any(), model.KindLaptop, "brand", "Acer").Return([]model.Resource{}, nil)
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `[]`,
			},
		},
		{
			name:  "err. unknown field",
			query: "?kind=laptop&field=title&q=Dune",
			mockBehavior: func(r *service_mocks.MockLendingService) {
				r.EXPECT().Search(gomock.Any(), model.KindLaptop, "title", "Dune").Return(nil, errs.ErrUnknownField)
			},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"validation failure: unknown search field"}`,
			},
		},
		{
			name:         "err. field required",
			query:        "?kind=book&q=Dune",
			mockBehavior: func(r *service_mocks.MockLendingService) {},
			response: response{
				expectedCode: http.StatusBadRequest,
				expectedBody: `{"message":"field is required"}`,
			},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLendingService(c)
			h := handler.New(svc, zap.NewExample().Named("test"))
			tt.mockBehavior(svc)

			w := serve(t, http.MethodGet, "/resources/search"+tt.query, "", func(e *echo.Echo) {
				e.GET("/resources/search", h.Search)
			})

			require.Equal(t, tt.response.expectedCode, w.Code)
			require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
		})
	}
}

func TestHandler_AddBook(t *testing.T) {
	t.Parallel()
	t.Run("ok", func(t *testing.T) {
		t.Parallel()
		c := gomock.NewController(t)
		defer c.Finish()
		svc := service_mocks.NewMockLendingService(c)
		h := handler.New(svc, zap.NewNop())
		b := model.Book{Title: "Dune", Author: "Frank Herbert", Genre: "Sci-Fi"}
		svc.EXPECT().AddBook(gomock.Any(), b).Return(model.Resource{
			ID: "b1", Kind: model.KindBook, State: model.StateAvailable, CreatedAt: start, Book: &b,
		}, nil)

		w := serve(t, http.MethodPost, "/books", `{"title":"Dune","author":"Frank Herbert","genre":"Sci-Fi"}`, func(e *echo.Echo) {
			e.POST("/books", h.AddBook)
		})
		require.Equal(t, http.StatusCreated, w.Code)
		require.Equal(t,
			`{"id":"b1","kind":"book","state":"available","createdAt":"2024-03-01T12:00:00Z","book":{"title":"Dune","author":"Frank Herbert","genre":"Sci-Fi"}}`,
			strings.Trim(w.Body.String(), "\n"))
	})
	t.Run("err. title required", func(t *testing.T) {
		t.Parallel()
		c := gomock.NewController(t)
		defer c.Finish()
		svc := service_mocks.NewMockLendingService(c)
		h := handler.New(svc, zap.NewNop())

		w := serve(t, http.MethodPost, "/books", `{"author":"Frank Herbert","genre":"Sci-Fi"}`, func(e *echo.Echo) {
			e.POST("/books", h.AddBook)
		})
		require.Equal(t, http.StatusBadRequest, w.Code)
		require.Contains(t, w.Body.String(), "Title")
	})
}

func TestHandler_DeleteResource(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		err      error
		wantCode int
	}{
		{name: "ok", wantCode: http.StatusNoContent},
		{name: "err. on loan", err: errs.ErrResourceOnLoan, wantCode: http.StatusConflict},
		{name: "err. unknown", err: errs.ErrNotFound, wantCode: http.StatusNotFound},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLendingService(c)
			h := handler.New(svc, zap.NewNop())
			svc.EXPECT().DeleteResource(gomock.Any(), "b1").Return(tt.err)

			w := serve(t, http.MethodDelete, "/resources/b1", "", func(e *echo.Echo) {
				e.DELETE("/resources/:id", h.DeleteResource)
			})
			require.Equal(t, tt.wantCode, w.Code)
		})
	}
}

func TestHandler_GetLoan(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name     string
		loan     model.Loan
		err      error
		response response
	}{
		{
			name: "ok",
			loan: model.Loan{
				ID:         "l1",
				ResourceID: "b1",
				UserID:     "u1",
				StartDate:  start,
				DueDate:    start.Add(14 * 24 * time.Hour),
				EndDate:    start.Add(14 * 24 * time.Hour),
			},
			response: response{
				expectedCode: http.StatusOK,
				expectedBody: `{"id":"l1","resourceId":"b1","userId":"u1","startDate":"2024-03-01T12:00:00Z","dueDate":"2024-03-15T12:00:00Z","endDate":"2024-03-15T12:00:00Z"}`,
			},
		},
		{
			name:     "err. unknown loan",
			err:      errs.ErrNotFound,
			response: response{expectedCode: http.StatusNotFound},
		},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			c := gomock.NewController(t)
			defer c.Finish()
			svc := service_mocks.NewMockLendingService(c)
			svc.EXPECT().GetLoan(gomock.Any(), "l1").Return(tt.loan, tt.err)
			e := handler.New(svc, zap.NewNop()).NewRouter()

			r := httptest.NewRequest(http.MethodGet, "/api/v1/loans/l1", nil)
			w := httptest.NewRecorder()
			e.ServeHTTP(w, r)

			require.Equal(t, tt.response.expectedCode, w.Code)
			if tt.response.expectedBody != "" {
				require.Equal(t, tt.response.expectedBody, strings.Trim(w.Body.String(), "\n"))
			}
		})
	}
}

func TestHandler_Availability(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockLendingService(c)
	h := handler.New(svc, zap.NewNop())
	svc.EXPECT().IsAvailable(gomock.Any(), "ghost").Return(false, nil)

	w := serve(t, http.MethodGet, "/resources/ghost/availability", "", func(e *echo.Echo) {
		e.GET("/resources/:id/availability", h.Availability)
	})
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, `{"resourceId":"ghost","available":false}`, strings.Trim(w.Body.String(), "\n"))
}

func TestHandler_Router(t *testing.T) {
	t.Parallel()
	c := gomock.NewController(t)
	defer c.Finish()
	svc := service_mocks.NewMockLendingService(c)
	svc.EXPECT().OverdueLoans(gomock.Any()).Return([]model.Loan{}, nil)
	e := handler.New(svc, zap.NewNop()).NewRouter()

	for _, tc := range []struct {
		target string
		code   int
		body   string
	}{
		{target: "/manage/health", code: http.StatusOK, body: "OK"},
		{target: "/api/v1/loans/overdue", code: http.StatusOK, body: "[]"},
		{target: "/api/v1/nope", code: http.StatusNotFound},
	} {
		w := httptest.NewRecorder()
		e.ServeHTTP(w, httptest.NewRequest(http.MethodGet, tc.target, http.NoBody))
		require.Equal(t, tc.code, w.Code, tc.target)
		if tc.body != "" {
			require.Equal(t, tc.body, strings.Trim(w.Body.String(), "\n"), tc.target)
		}
	}
}

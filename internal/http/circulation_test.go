package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/librarium/librarium/internal/circulation"
	"github.com/librarium/librarium/internal/entities"
)

func newCirculationRouter(fixture *controllerFixture) *gin.Engine {
	controller := NewCirculationController(fixture.manager, fixture.ledger)

	router := gin.New()
	router.POST("/api/checkouts/borrow", controller.Borrow)
	router.POST("/api/checkouts/return", controller.Return)
	router.GET("/api/users/:id/checkouts", controller.ListForUser)
	router.GET("/api/checkouts/open", controller.GetOpenCheckout)
	router.GET("/api/books/:id/checkouts", controller.ListForBook)
	router.GET("/api/checkouts/overdue", controller.ListOverdue)
	return router
}

func seedTitle(t *testing.T, fixture *controllerFixture, copies int) *entities.Book {
	t.Helper()
	book, err := fixture.catalogue.CreateBook(&entities.Book{Title: "Seeded Title", Author: "Seeded Author"})
	require.NoError(t, err)
	for i := 0; i < copies; i++ {
		_, err := fixture.manager.AddCopy(context.Background(), book.ID, 0)
		require.NoError(t, err)
	}
	return book
}

func TestCirculationController_Borrow(t *testing.T) {
	t.Run("returns 400 when body is incomplete", func(t *testing.T) {
		fixture, cleanup := setupControllerTest(t)
		defer cleanup()

		router := newCirculationRouter(fixture)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/checkouts/borrow", bytes.NewBufferString(`{"user_id": 5}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Contains(t, w.Body.String(), "user_id and book_id are required")
	})

	t.Run("lends a copy and reports the due date", func(t *testing.T) {
		fixture, cleanup := setupControllerTest(t)
		defer cleanup()

		book := seedTitle(t, fixture, 1)
		router := newCirculationRouter(fixture)

		body := fmt.Sprintf(`{"user_id": 5, "book_id": %d}`, book.ID)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/checkouts/borrow", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusCreated, w.Code)

		var result circulation.BorrowResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.NotZero(t, result.CheckoutID)
		assert.NotZero(t, result.CopyID)
		assert.WithinDuration(t, time.Now().AddDate(0, 0, 7), result.DueDate, time.Minute)
	})

	t.Run("returns 409 when no copy is available", func(t *testing.T) {
		fixture, cleanup := setupControllerTest(t)
		defer cleanup()

		book := seedTitle(t, fixture, 1)
		_, err := fixture.manager.BorrowBook(context.Background(), 5, book.ID, time.Time{}, 0)
		require.NoError(t, err)

		router := newCirculationRouter(fixture)

		body := fmt.Sprintf(`{"user_id": 6, "book_id": %d}`, book.ID)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/checkouts/borrow", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, string(circulation.KindOutOfStock), response.Code)
	})

	t.Run("returns 404 for unknown book", func(t *testing.T) {
		fixture, cleanup := setupControllerTest(t)
		defer cleanup()

		router := newCirculationRouter(fixture)

		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/checkouts/borrow", bytes.NewBufferString(`{"user_id": 5, "book_id": 999}`))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("returns 409 when user already holds the title", func(t *testing.T) {
		fixture, cleanup := setupControllerTest(t)
		defer cleanup()

		book := seedTitle(t, fixture, 2)
		_, err := fixture.manager.BorrowBook(context.Background(), 5, book.ID, time.Time{}, 0)
		require.NoError(t, err)

		router := newCirculationRouter(fixture)

		body := fmt.Sprintf(`{"user_id": 5, "book_id": %d}`, book.ID)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/checkouts/borrow", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, string(circulation.KindAlreadyBorrowed), response.Code)
	})
}

func TestCirculationController_Return(t *testing.T) {
	t.Run("closes the checkout and reports lateness", func(t *testing.T) {
		fixture, cleanup := setupControllerTest(t)
		defer cleanup()

		book := seedTitle(t, fixture, 1)
		_, err := fixture.manager.BorrowBook(context.Background(), 5, book.ID, time.Time{}, 0)
		require.NoError(t, err)

		router := newCirculationRouter(fixture)

		body := fmt.Sprintf(`{"user_id": 5, "book_id": %d}`, book.ID)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/checkouts/return", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var result circulation.ReturnResult
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
		assert.NotZero(t, result.CheckoutID)
		assert.False(t, result.IsLate)

		got, err := fixture.catalogue.GetBookByID(book.ID)
		require.NoError(t, err)
		assert.Equal(t, 1, got.AvailableCopies)
	})

	t.Run("returns 409 when no checkout is open", func(t *testing.T) {
		fixture, cleanup := setupControllerTest(t)
		defer cleanup()

		book := seedTitle(t, fixture, 1)
		router := newCirculationRouter(fixture)

		body := fmt.Sprintf(`{"user_id": 5, "book_id": %d}`, book.ID)
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("POST", "/api/checkouts/return", bytes.NewBufferString(body))
		req.Header.Set("Content-Type", "application/json")
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusConflict, w.Code)

		var response ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, string(circulation.KindNoActiveCheckout), response.Code)
	})
}

func TestCirculationController_GetOpenCheckout(t *testing.T) {
	fixture, cleanup := setupControllerTest(t)
	defer cleanup()

	ctx := context.Background()
	book := seedTitle(t, fixture, 1)
	result, err := fixture.manager.BorrowBook(ctx, 5, book.ID, time.Time{}, 0)
	require.NoError(t, err)

	router := newCirculationRouter(fixture)

	t.Run("finds the open checkout", func(t *testing.T) {
		w := httptest.NewRecorder()
		url := fmt.Sprintf("/api/checkouts/open?user_id=5&book_id=%d", book.ID)
		req, _ := http.NewRequest("GET", url, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)

		var checkout entities.Checkout
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checkout))
		assert.Equal(t, result.CheckoutID, checkout.ID)
	})

	t.Run("404 when the user holds nothing", func(t *testing.T) {
		w := httptest.NewRecorder()
		url := fmt.Sprintf("/api/checkouts/open?user_id=6&book_id=%d", book.ID)
		req, _ := http.NewRequest("GET", url, nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("400 without query parameters", func(t *testing.T) {
		w := httptest.NewRecorder()
		req, _ := http.NewRequest("GET", "/api/checkouts/open", nil)
		router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestCirculationController_ListForUser(t *testing.T) {
	fixture, cleanup := setupControllerTest(t)
	defer cleanup()

	ctx := context.Background()
	book := seedTitle(t, fixture, 2)
	_, err := fixture.manager.BorrowBook(ctx, 5, book.ID, time.Time{}, 0)
	require.NoError(t, err)

	router := newCirculationRouter(fixture)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/users/5/checkouts", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response PaginatedResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, int64(1), response.Total)
	assert.False(t, response.HasMore)
}

func TestCirculationController_ListOverdue(t *testing.T) {
	fixture, cleanup := setupControllerTest(t)
	defer cleanup()

	ctx := context.Background()
	book := seedTitle(t, fixture, 2)
	pastDue := time.Now().Add(-48 * time.Hour)
	_, err := fixture.manager.BorrowBook(ctx, 5, book.ID, pastDue, 0)
	require.NoError(t, err)
	_, err = fixture.manager.BorrowBook(ctx, 6, book.ID, time.Time{}, 0)
	require.NoError(t, err)

	router := newCirculationRouter(fixture)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", "/api/checkouts/overdue", nil)
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
	assert.Equal(t, float64(1), response["count"])
}

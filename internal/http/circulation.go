package http

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/librarium/librarium/internal/circulation"
	"github.com/librarium/librarium/internal/database/checkouts"
)

// CirculationController serves the checkout lifecycle: lending a copy
// out and taking it back.
type CirculationController struct {
	circulation *circulation.Manager
	ledger      *checkouts.Repository
}

func NewCirculationController(manager *circulation.Manager, ledger *checkouts.Repository) *CirculationController {
	return &CirculationController{
		circulation: manager,
		ledger:      ledger,
	}
}

type borrowRequest struct {
	UserID  uint       `json:"user_id" binding:"required"`
	BookID  uint       `json:"book_id" binding:"required"`
	DueDate *time.Time `json:"due_date"`
}

type returnRequest struct {
	UserID     uint       `json:"user_id" binding:"required"`
	BookID     uint       `json:"book_id" binding:"required"`
	ReturnedAt *time.Time `json:"returned_at"`
}

// Borrow lends one available copy of a book to a user. The response
// names the assigned copy and the due date.
func (controller *CirculationController) Borrow(c *gin.Context) {
	var req borrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "user_id and book_id are required")
		return
	}

	var dueDate time.Time
	if req.DueDate != nil {
		dueDate = *req.DueDate
	}

	result, err := controller.circulation.BorrowBook(c.Request.Context(), req.UserID, req.BookID, dueDate, GetUserID(c))
	if err != nil {
		respondCirculationError(c, err, "borrow")
		return
	}

	respondCreated(c, result)
}

// Return closes the user's open checkout of the book.
func (controller *CirculationController) Return(c *gin.Context) {
	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "user_id and book_id are required")
		return
	}

	var returnedAt time.Time
	if req.ReturnedAt != nil {
		returnedAt = *req.ReturnedAt
	}

	result, err := controller.circulation.ReturnBook(c.Request.Context(), req.UserID, req.BookID, returnedAt, GetUserID(c))
	if err != nil {
		respondCirculationError(c, err, "return")
		return
	}

	c.IndentedJSON(http.StatusOK, result)
}

// GetOpenCheckout resolves the open checkout a user holds on a book,
// if any. Lets the desk answer "does this user still have this title
// out" without walking history.
func (controller *CirculationController) GetOpenCheckout(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 32)
	if err != nil {
		respondBadRequest(c, "user_id query parameter is required")
		return
	}
	bookID, err := strconv.ParseUint(c.Query("book_id"), 10, 32)
	if err != nil {
		respondBadRequest(c, "book_id query parameter is required")
		return
	}

	checkout, err := controller.ledger.FindOpenCheckout(uint(userID), uint(bookID))
	if err != nil {
		respondInternalError(c, err, "find open checkout")
		return
	}
	if checkout == nil {
		respondNotFound(c, "open checkout")
		return
	}

	c.IndentedJSON(http.StatusOK, checkout)
}

// ListForUser returns a user's checkout history, newest first.
func (controller *CirculationController) ListForUser(c *gin.Context) {
	userID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	limit, offset := parsePagination(c)

	list, total, err := controller.ledger.ListForUser(userID, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list checkouts for user")
		return
	}

	c.IndentedJSON(http.StatusOK, PaginatedResponse{
		Data:    list,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(list)) < total,
	})
}

// ListForBook returns a book's checkout history, newest first.
func (controller *CirculationController) ListForBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	limit, offset := parsePagination(c)

	list, total, err := controller.ledger.ListForBook(bookID, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list checkouts for book")
		return
	}

	c.IndentedJSON(http.StatusOK, PaginatedResponse{
		Data:    list,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(list)) < total,
	})
}

// ListOverdue returns every open checkout past its due date.
func (controller *CirculationController) ListOverdue(c *gin.Context) {
	list, err := controller.ledger.ListOverdue(time.Now())
	if err != nil {
		respondInternalError(c, err, "list overdue checkouts")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"checkouts": list, "count": len(list)})
}

package http

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/librarium/librarium/internal/audit"
	"github.com/librarium/librarium/internal/entities"
)

// StaffLogController serves the append-only staff action trail.
type StaffLogController struct {
	audit *audit.Service
}

func NewStaffLogController(auditService *audit.Service) *StaffLogController {
	return &StaffLogController{audit: auditService}
}

// List returns staff log entries, newest first, optionally filtered by
// action type and book.
func (controller *StaffLogController) List(c *gin.Context) {
	limit, offset := parsePagination(c)

	actionType := entities.StaffActionType(c.Query("action"))

	var bookID uint
	if bookIDStr := c.Query("book_id"); bookIDStr != "" {
		parsed, err := strconv.ParseUint(bookIDStr, 10, 32)
		if err != nil {
			respondBadRequest(c, "invalid book_id")
			return
		}
		bookID = uint(parsed)
	}

	list, total, err := controller.audit.GetEvents(actionType, bookID, limit, offset)
	if err != nil {
		respondInternalError(c, err, "list staff log")
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

// BookHistory returns the full trail for one book.
func (controller *StaffLogController) BookHistory(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	list, err := controller.audit.GetBookHistory(bookID)
	if err != nil {
		respondInternalError(c, err, "book history")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"events": list, "count": len(list)})
}

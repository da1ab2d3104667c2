package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/librarium/librarium/internal/circulation"
	"github.com/librarium/librarium/internal/database/copies"
)

// CopiesController serves the physical copy inventory of a title.
type CopiesController struct {
	circulation *circulation.Manager
	copies      *copies.Repository
}

func NewCopiesController(manager *circulation.Manager, copiesRepo *copies.Repository) *CopiesController {
	return &CopiesController{
		circulation: manager,
		copies:      copiesRepo,
	}
}

// ListCopies returns every copy row of a book, including retired ones.
func (controller *CopiesController) ListCopies(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if _, err := controller.copies.GetBook(bookID); err != nil {
		if errors.Is(err, copies.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	list, err := controller.copies.ListCopies(bookID)
	if err != nil {
		respondInternalError(c, err, "list copies")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"copies": list, "count": len(list)})
}

// AddCopy provisions one new copy of a book.
func (controller *CopiesController) AddCopy(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	created, err := controller.circulation.AddCopy(c.Request.Context(), bookID, GetUserID(c))
	if err != nil {
		respondCirculationError(c, err, "add copy")
		return
	}

	respondCreated(c, created)
}

// DeleteCopy removes a copy that is not currently borrowed.
func (controller *CopiesController) DeleteCopy(c *gin.Context) {
	copyID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.circulation.DeleteCopy(c.Request.Context(), copyID, GetUserID(c)); err != nil {
		respondCirculationError(c, err, "delete copy")
		return
	}

	respondSuccess(c, "copy deleted")
}

// RetireCopy takes a single copy out of circulation permanently.
func (controller *CopiesController) RetireCopy(c *gin.Context) {
	copyID, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.circulation.RetireCopy(c.Request.Context(), copyID, GetUserID(c)); err != nil {
		respondCirculationError(c, err, "retire copy")
		return
	}

	respondSuccess(c, "copy retired")
}

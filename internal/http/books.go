package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/librarium/librarium/internal/circulation"
	"github.com/librarium/librarium/internal/database/books"
	"github.com/librarium/librarium/internal/entities"
)

// BooksController serves the catalogue: book metadata plus the
// inventory operations that act on a whole title.
type BooksController struct {
	catalogue   *books.Repository
	circulation *circulation.Manager
}

func NewBooksController(catalogue *books.Repository, manager *circulation.Manager) *BooksController {
	return &BooksController{
		catalogue:   catalogue,
		circulation: manager,
	}
}

type createBookRequest struct {
	Title       string `json:"title" binding:"required"`
	Author      string `json:"author" binding:"required"`
	ISBN        string `json:"isbn"`
	Publisher   string `json:"publisher"`
	Genre       string `json:"genre"`
	Description string `json:"description"`
}

type updateQuantityRequest struct {
	Quantity *int `json:"quantity" binding:"required"`
}

func (controller *BooksController) GetAllBooks(c *gin.Context) {
	list, err := controller.catalogue.GetAllBooks()
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": list, "count": len(list)})
}

func (controller *BooksController) GetBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	book, err := controller.catalogue.GetBookByID(id)
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "get book")
		return
	}

	c.IndentedJSON(http.StatusOK, book)
}

func (controller *BooksController) SearchBooks(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		respondBadRequest(c, "q query parameter is required")
		return
	}

	list, err := controller.catalogue.SearchBooks(query)
	if err != nil {
		respondInternalError(c, err, "search books")
		return
	}

	c.IndentedJSON(http.StatusOK, gin.H{"books": list, "count": len(list)})
}

func (controller *BooksController) CreateBook(c *gin.Context) {
	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "title and author are required")
		return
	}

	book, err := controller.catalogue.CreateBook(&entities.Book{
		Title:       req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		Publisher:   req.Publisher,
		Genre:       req.Genre,
		Description: req.Description,
	})
	if err != nil {
		respondInternalError(c, err, "create book")
		return
	}

	respondCreated(c, book)
}

func (controller *BooksController) UpdateBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req createBookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	book, err := controller.catalogue.UpdateMetadata(id, &entities.Book{
		Title:       req.Title,
		Author:      req.Author,
		ISBN:        req.ISBN,
		Publisher:   req.Publisher,
		Genre:       req.Genre,
		Description: req.Description,
	})
	if err != nil {
		if errors.Is(err, books.ErrBookNotFound) {
			respondNotFound(c, "book")
			return
		}
		respondInternalError(c, err, "update book")
		return
	}

	c.IndentedJSON(http.StatusOK, book)
}

// UpdateQuantity reprovisions the title to an absolute copy count.
func (controller *BooksController) UpdateQuantity(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	var req updateQuantityRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Quantity == nil {
		respondBadRequest(c, "quantity is required")
		return
	}

	book, err := controller.circulation.UpdateQuantity(c.Request.Context(), id, *req.Quantity, GetUserID(c))
	if err != nil {
		respondCirculationError(c, err, "update quantity")
		return
	}

	c.IndentedJSON(http.StatusOK, book)
}

// RetireBook takes the title out of circulation permanently.
func (controller *BooksController) RetireBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}

	if err := controller.circulation.RetireBook(c.Request.Context(), id, GetUserID(c)); err != nil {
		respondCirculationError(c, err, "retire book")
		return
	}

	respondSuccess(c, "book retired")
}

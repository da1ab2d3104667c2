package http

import (
	"github.com/gin-gonic/gin"

	"github.com/librarium/librarium/internal/auth"
)

// NewRouter creates and configures the HTTP router with all endpoints.
// Uses RouterConfig to receive all dependencies, improving testability
// and reducing parameter count.
func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())

	// Apply security headers to all responses
	router.Use(auth.SecurityHeadersMiddleware())

	// Apply CSRF protection if auth is enabled
	// CSRF must run before session so that session context is preserved
	if len(cfg.CSRFSecret) > 0 {
		router.Use(auth.CSRFMiddleware(cfg.CSRFSecret, cfg.SecureCookies, cfg.AuthService))
	}

	// Session runs after CSRF so session context isn't overwritten by
	// CSRF's request replacement
	if cfg.SessionManager != nil {
		router.Use(cfg.SessionManager.SessionLoadSave())
	}

	// Apply auth middleware if enabled
	if cfg.AuthMiddleware != nil {
		router.Use(cfg.AuthMiddleware.Handler())
	} else {
		// No auth - inject default user ID
		router.Use(func(c *gin.Context) {
			c.Set(auth.ContextKeyUserID, auth.DefaultUserID)
			c.Set(auth.ContextKeyAuthType, auth.AuthTypeNone)
			c.Next()
		})
	}

	// Create controllers
	health := NewHealthController(cfg.Database, cfg.Version)
	booksController := NewBooksController(cfg.Catalogue, cfg.Circulation)
	copiesController := NewCopiesController(cfg.Circulation, cfg.Copies)
	circulationController := NewCirculationController(cfg.Circulation, cfg.Checkouts)
	staffLogController := NewStaffLogController(cfg.Audit)

	// Health endpoints
	router.GET("/health", health.Status)
	router.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"message": "pong",
		})
	})

	// Auth endpoints
	if cfg.AuthService != nil && cfg.AuthService.IsAuthEnabled() {
		authController := NewAuthController(cfg.AuthService, cfg.SessionManager, cfg.Audit)
		router.POST("/api/auth/login", authController.Login)
		router.POST("/api/auth/logout", authController.Logout)
		router.GET("/api/auth/me", authController.Me)
		router.POST("/api/auth/token", authController.GenerateToken)
		router.DELETE("/api/auth/token", authController.RevokeToken)
	}

	// Catalogue read endpoints
	router.GET("/api/books", booksController.GetAllBooks)
	router.GET("/api/books/search", booksController.SearchBooks)
	router.GET("/api/books/:id", booksController.GetBook)
	router.GET("/api/books/:id/copies", copiesController.ListCopies)
	router.GET("/api/books/:id/checkouts", circulationController.ListForBook)
	router.GET("/api/users/:id/checkouts", circulationController.ListForUser)
	router.GET("/api/checkouts/open", circulationController.GetOpenCheckout)

	// Staff-only endpoints: catalogue and inventory mutation, the
	// checkout desk, and the audit trail
	staff := router.Group("/api")
	if cfg.AuthMiddleware != nil {
		staff.Use(cfg.AuthMiddleware.RequireStaff())
	}

	staff.POST("/books", booksController.CreateBook)
	staff.PATCH("/books/:id", booksController.UpdateBook)
	staff.PUT("/books/:id/quantity", booksController.UpdateQuantity)
	staff.POST("/books/:id/retire", booksController.RetireBook)

	staff.POST("/books/:id/copies", copiesController.AddCopy)
	staff.DELETE("/copies/:id", copiesController.DeleteCopy)
	staff.POST("/copies/:id/retire", copiesController.RetireCopy)

	staff.POST("/checkouts/borrow", circulationController.Borrow)
	staff.POST("/checkouts/return", circulationController.Return)
	staff.GET("/checkouts/overdue", circulationController.ListOverdue)

	staff.GET("/stafflog", staffLogController.List)
	staff.GET("/books/:id/history", staffLogController.BookHistory)

	// Task management endpoints
	if cfg.TaskClient != nil {
		tasksController := NewTasksController(cfg.TaskClient)
		staff.GET("/tasks/types", tasksController.ListTaskTypes)
		staff.GET("/tasks/:id", tasksController.GetTaskStatus)
		staff.POST("/tasks/:id/run", tasksController.RunTask)
	}

	return router
}

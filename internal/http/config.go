package http

import (
	"github.com/librarium/librarium/internal/audit"
	"github.com/librarium/librarium/internal/auth"
	"github.com/librarium/librarium/internal/circulation"
	"github.com/librarium/librarium/internal/config"
	"github.com/librarium/librarium/internal/database"
	"github.com/librarium/librarium/internal/database/books"
	"github.com/librarium/librarium/internal/database/checkouts"
	"github.com/librarium/librarium/internal/database/copies"
	"github.com/librarium/librarium/internal/tasks"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router. This replaces a long parameter list
// in NewRouter for better maintainability.
type RouterConfig struct {
	// Core dependencies
	Database    *database.Database
	Circulation *circulation.Manager
	Catalogue   *books.Repository
	Copies      *copies.Repository
	Checkouts   *checkouts.Repository
	Audit       *audit.Service

	// Authentication
	AuthService    *auth.Service
	AuthMiddleware *auth.Middleware
	SessionManager *auth.SessionManager
	AuthConfig     config.Auth
	CSRFSecret     []byte
	SecureCookies  bool

	// Task queue client (optional)
	TaskClient *tasks.Client

	// Application info
	Version string
}

package cli

import (
	"flag"
	"fmt"
	"os"
	"syscall"

	"golang.org/x/term"

	"github.com/librarium/librarium/internal/auth"
	"github.com/librarium/librarium/internal/config"
	"github.com/librarium/librarium/internal/database"
	"github.com/librarium/librarium/internal/entities"
)

// CreateUserCommand creates a user account from the command line.
type CreateUserCommand struct {
	Username     string
	Email        string
	Password     string
	Role         string
	DatabasePath string

	defaultRole entities.UserRole
	name        string
}

// NewCreateAdminCommand creates a command that provisions an
// administrator account.
func NewCreateAdminCommand() *CreateUserCommand {
	return &CreateUserCommand{defaultRole: entities.UserRoleAdmin, name: "create-admin"}
}

// NewCreateUserCommand creates a command that provisions a regular
// staff or member account.
func NewCreateUserCommand() *CreateUserCommand {
	return &CreateUserCommand{defaultRole: entities.UserRoleStaff, name: "create-user"}
}

// ParseFlags parses command line flags
func (cmd *CreateUserCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet(cmd.name, flag.ExitOnError)

	fs.StringVar(&cmd.Username, "username", "", "Username for the new account (required)")
	fs.StringVar(&cmd.Email, "email", "", "Email for the new account (required)")
	fs.StringVar(&cmd.Password, "password", "", "Password (prompted interactively if not given)")
	fs.StringVar(&cmd.Role, "role", string(cmd.defaultRole), "Account role: admin, staff or member")
	fs.StringVar(&cmd.DatabasePath, "db", config.DefaultDatabasePath, "Path to the database file")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s %s [options]\n\n", os.Args[0], cmd.name)
		fmt.Fprintf(os.Stderr, "Create a user account in the local database.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExample:\n")
		fmt.Fprintf(os.Stderr, "  %s %s -username head_librarian -email hl@example.com\n", os.Args[0], cmd.name)
	}

	return fs.Parse(args)
}

// Run executes the command.
func (cmd *CreateUserCommand) Run() error {
	if cmd.Username == "" {
		return fmt.Errorf("username is required")
	}
	if cmd.Email == "" {
		return fmt.Errorf("email is required")
	}

	password := cmd.Password
	if password == "" {
		fmt.Fprintf(os.Stderr, "Password for %s: ", cmd.Username)
		raw, err := term.ReadPassword(int(syscall.Stdin))
		fmt.Fprintln(os.Stderr)
		if err != nil {
			return fmt.Errorf("failed to read password: %w", err)
		}
		password = string(raw)
	}

	cfg := config.NewConfig()

	db, err := database.NewDatabase(cmd.DatabasePath, cfg.Database.BusyTimeout)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	service := auth.NewService(db.DB, cfg.Auth)

	user, err := service.CreateUser(cmd.Username, cmd.Email, password, entities.UserRole(cmd.Role))
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	fmt.Printf("Created %s account %q (id %d)\n", user.Role, user.Username, user.ID)
	return nil
}

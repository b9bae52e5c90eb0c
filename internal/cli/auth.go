package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/conorfennell/knolboard/internal/api"
)

func runLogin(ctx context.Context, e *env, args []string) error {
	fs := newFlags("login")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: login <username>", ErrUsage)
	}
	password, err := e.prompt("Password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	user, err := e.client.Login(ctx, fs.Arg(0), password)
	if err != nil {
		return err
	}
	e.printf("\nLogged in as %s\n", user.Username)
	return nil
}

func runLogout(ctx context.Context, e *env, args []string) error {
	if err := e.client.Logout(ctx); err != nil {
		return err
	}
	e.printf("Logged out\n")
	return nil
}

func runRegister(ctx context.Context, e *env, args []string) error {
	fs := newFlags("register")
	email := fs.String("email", "", "email address")
	fullName := fs.String("full-name", "", "display name")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: register <username> --email <email>", ErrUsage)
	}
	password, err := e.prompt("Password: ")
	if err != nil {
		return fmt.Errorf("read password: %w", err)
	}
	user, err := e.client.Register(ctx, api.Registration{
		Username: fs.Arg(0),
		Email:    *email,
		Password: password,
		FullName: *fullName,
	})
	if err != nil {
		return err
	}
	e.printf("\nRegistered %s. An admin must activate the account before you can log in.\n", user.Username)
	return nil
}

func runWhoami(ctx context.Context, e *env, args []string) error {
	user, err := e.client.Me(ctx)
	if err != nil {
		return err
	}
	var roles []string
	if user.IsAdmin {
		roles = append(roles, "admin")
	}
	if !user.IsActive {
		roles = append(roles, "inactive")
	}
	e.printf("%s <%s>", user.Username, user.Email)
	if len(roles) > 0 {
		e.printf(" [%s]", strings.Join(roles, ", "))
	}
	e.printf("\n")
	return nil
}

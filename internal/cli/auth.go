package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"mediahub/pkg/domain"
)

func newAuthCommand(get func() *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Sign in, sign up and inspect the session",
	}
	cmd.AddCommand(
		newLoginCommand(get),
		newRegisterCommand(get),
		newLogoutCommand(get),
		newWhoamiCommand(get),
	)
	return cmd
}

func newLoginCommand(get func() *env) *cobra.Command {
	var password string
	cmd := &cobra.Command{
		Use:   "login <email-or-name>",
		Short: "Sign in to a local account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := get()
			user, ok := e.content.Login(args[0], password)
			if !ok {
				e.audit("login", "rejected", "identifier", args[0])
				return errors.New("invalid credentials")
			}
			if err := e.session.SaveSession(user); err != nil {
				e.audit("login", "failed", "user_id", user.ID, "err", err)
				return err
			}
			e.audit("login", "success", "user_id", user.ID, "role", string(user.Role))
			return printUser(e, user)
		},
	}
	cmd.Flags().StringVarP(&password, "password", "p", "", "account password")
	return cmd
}

func newRegisterCommand(get func() *env) *cobra.Command {
	var (
		name     string
		email    string
		password string
		role     string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := get()
			if name == "" {
				return errors.New("--name is required")
			}
			user, err := e.content.Register(domain.User{
				Name:     name,
				Email:    email,
				Password: password,
				Role:     domain.UserRole(role),
			})
			if err != nil {
				e.audit("register", "rejected", "name", name, "err", err)
				return err
			}
			if err := e.session.SaveSession(user); err != nil {
				return err
			}
			e.audit("register", "success", "user_id", user.ID, "role", string(user.Role))
			return printUser(e, user)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&name, "name", "", "display name")
	fl.StringVar(&email, "email", "", "email address")
	fl.StringVarP(&password, "password", "p", "", "password")
	fl.StringVar(&role, "role", string(domain.RoleConsumer), "CONSUMER, CREATOR or PROFESSIONAL")
	return cmd
}

func newLogoutCommand(get func() *env) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := get()
			user, signedIn := e.session.GetSession()
			if err := e.session.ClearSession(); err != nil {
				return err
			}
			if signedIn {
				e.audit("logout", "success", "user_id", user.ID)
			}
			e.message("signed out")
			return nil
		},
	}
}

func newWhoamiCommand(get func() *env) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in account (guest when nobody is)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := get()
			return printUser(e, e.session.Current())
		},
	}
}

func printUser(e *env, user domain.User) error {
	user.Password = ""
	return e.fields(user,
		"ID", user.ID,
		"Name", user.Name,
		"Email", user.Email,
		"Role", string(user.Role),
		"Verified", yesNo(user.Verified),
	)
}

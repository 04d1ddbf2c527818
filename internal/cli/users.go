package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"mediahub/pkg/domain"
)

func newUsersCommand(get func() *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage accounts (admin only)",
	}
	cmd.AddCommand(newUsersListCommand(get), newUsersUpdateCommand(get), newUsersDeleteCommand(get))
	return cmd
}

func newUsersListCommand(get func() *env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := get()
			if _, err := e.require(domain.RoleAdmin); err != nil {
				return err
			}
			users := e.content.GetAllUsers()
			rows := make([][]string, 0, len(users))
			for i := range users {
				users[i].Password = ""
				u := users[i]
				rows = append(rows, []string{u.ID, u.Name, u.Email, string(u.Role), yesNo(u.Verified)})
			}
			return e.table(users, []string{"ID", "NAME", "EMAIL", "ROLE", "VERIFIED"}, rows)
		},
	}
}

func newUsersUpdateCommand(get func() *env) *cobra.Command {
	var (
		name     string
		email    string
		role     string
		verified bool
	)
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change an account's name, email, role or verification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := get()
			admin, err := e.require(domain.RoleAdmin)
			if err != nil {
				return err
			}
			var patch domain.UserPatch
			fl := cmd.Flags()
			if fl.Changed("name") {
				patch.Name = &name
			}
			if fl.Changed("email") {
				patch.Email = &email
			}
			if fl.Changed("role") {
				r := domain.UserRole(role)
				patch.Role = &r
			}
			if fl.Changed("verified") {
				patch.Verified = &verified
			}
			user, found, err := e.content.UpdateUser(args[0], patch)
			if err != nil {
				e.audit("user_update", "rejected", "user_id", admin.ID, "target_id", args[0], "err", err)
				return err
			}
			if !found {
				return fmt.Errorf("user %s not found", args[0])
			}
			e.audit("user_update", "success", "user_id", admin.ID, "target_id", user.ID)
			return printUser(e, user)
		},
	}
	fl := cmd.Flags()
	fl.StringVar(&name, "name", "", "display name")
	fl.StringVar(&email, "email", "", "email address")
	fl.StringVar(&role, "role", "", "CONSUMER, CREATOR or PROFESSIONAL")
	fl.BoolVar(&verified, "verified", false, "verification badge")
	return cmd
}

func newUsersDeleteCommand(get func() *env) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete an account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := get()
			admin, err := e.require(domain.RoleAdmin)
			if err != nil {
				return err
			}
			deleted, err := e.content.DeleteUser(admin.ID, args[0])
			if err != nil {
				e.audit("user_delete", "rejected", "user_id", admin.ID, "target_id", args[0], "err", err)
				return err
			}
			if !deleted {
				return errors.New("user not found")
			}
			e.audit("user_delete", "success", "user_id", admin.ID, "target_id", args[0])
			e.message("deleted %s", args[0])
			return nil
		},
	}
}

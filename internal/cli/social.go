package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"mediahub/pkg/domain"
)

func newCommentsCommand(get func() *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "comments",
		Short: "Read and post comments",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list <media-id>",
			Short: "List comments on a media item, newest first",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				e := get()
				comments := e.content.GetComments(args[0])
				rows := make([][]string, 0, len(comments))
				for _, c := range comments {
					rows = append(rows, []string{c.ID, c.UserName, truncate(c.Text, 60), strconv.Itoa(c.Likes), c.CreatedAt})
				}
				return e.table(comments, []string{"ID", "USER", "TEXT", "LIKES", "WHEN"}, rows)
			},
		},
		&cobra.Command{
			Use:   "add <media-id> <text>...",
			Short: "Comment on a media item as the current user",
			Args:  cobra.MinimumNArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				e := get()
				text := strings.TrimSpace(strings.Join(args[1:], " "))
				if text == "" {
					return errors.New("comment text is empty")
				}
				user := e.session.Current()
				c := e.content.AddComment(domain.Comment{
					MediaID:    args[0],
					UserID:     user.ID,
					UserName:   user.Name,
					UserAvatar: user.AvatarURL,
					Text:       text,
				})
				if e.jsonOut {
					return e.printJSON(c)
				}
				e.message("commented %s", c.ID)
				return nil
			},
		},
	)
	return cmd
}

func newNotificationsCommand(get func() *env) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notifs"},
		Short:   "Read the notification feed",
	}
	list := &cobra.Command{
		Use:   "list",
		Short: "List notifications for the current user, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e := get()
			user := e.session.Current()
			notifs := e.content.GetNotifications(user.ID)
			rows := make([][]string, 0, len(notifs))
			for _, n := range notifs {
				mark := ""
				if !n.Read {
					mark = "*"
				}
				rows = append(rows, []string{mark, n.ID, string(n.Type), n.Message, n.CreatedAt})
			}
			if !e.jsonOut {
				e.message("%d unread", e.content.UnreadCount(user.ID))
			}
			return e.table(notifs, []string{"", "ID", "TYPE", "MESSAGE", "WHEN"}, rows)
		},
	}
	var all bool
	read := &cobra.Command{
		Use:   "read [id]",
		Short: "Mark one notification, or --all, as read",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e := get()
			if all {
				n := e.content.MarkAllNotificationsRead(e.session.Current().ID)
				e.message("marked %d read", n)
				return nil
			}
			if len(args) != 1 {
				return errors.New("give a notification id or --all")
			}
			if !e.content.MarkNotificationRead(args[0]) {
				return fmt.Errorf("notification %s not found", args[0])
			}
			e.message("marked %s read", args[0])
			return nil
		},
	}
	read.Flags().BoolVar(&all, "all", false, "mark every visible notification read")
	cmd.AddCommand(list, read)
	return cmd
}

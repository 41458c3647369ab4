package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/comercio-backend/pkg/apiclient"
	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
)

func newNotificationsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "notifications",
		Aliases: []string{"notif"},
		Short:   "Read and manage the caller's notifications",
	}
	cmd.AddCommand(
		notificationsListCmd(a),
		notificationsUnreadCountCmd(a),
		notificationsMarkCmd(a, "read", true),
		notificationsMarkCmd(a, "unread", false),
		notificationsReadAllCmd(a),
		notificationsDeleteCmd(a),
		notificationsDeleteReadCmd(a),
	)
	return cmd
}

func notificationsListCmd(a *app) *cobra.Command {
	var (
		unreadOnly    bool
		typ, priority string
		filters       apiclient.NotificationFilters
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List notifications, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if unreadOnly {
				read := false
				filters.Read = &read
			}
			if typ != "" {
				parsed, err := enums.ParseNotificationType(typ)
				if err != nil {
					return err
				}
				filters.Type = &parsed
			}
			if priority != "" {
				parsed, err := enums.ParseNotificationPriority(priority)
				if err != nil {
					return err
				}
				filters.Priority = &parsed
			}

			page, err := a.notifications.List(cmd.Context(), filters)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.opts.asJSON {
				return printJSON(out, page)
			}
			rows := make([][]string, 0, len(page.Data))
			for _, n := range page.Data {
				rows = append(rows, notificationRow(n))
			}
			if err := printTable(out, notificationHeader, rows); err != nil {
				return err
			}
			printMeta(out, page.Meta)
			return nil
		},
	}
	f := cmd.Flags()
	f.BoolVar(&unreadOnly, "unread", false, "only unread notifications")
	f.StringVar(&typ, "type", "", "notification type filter")
	f.StringVar(&priority, "priority", "", "LOW|MEDIUM|HIGH|URGENT")
	f.IntVar(&filters.Page, "page", 0, "page number")
	f.IntVar(&filters.Limit, "limit", 0, "page size")
	return cmd
}

func notificationsUnreadCountCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "unread-count",
		Short: "Show unread totals by type and priority",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			count, err := a.notifications.UnreadCount(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.opts.asJSON {
				return printJSON(out, count)
			}
			rows := [][]string{{"total", strconv.FormatInt(count.Count, 10)}}
			for _, p := range enums.NotificationPriorities() {
				rows = append(rows, []string{"priority " + string(p), strconv.FormatInt(count.ByPriority[p], 10)})
			}
			for _, t := range enums.NotificationTypes() {
				rows = append(rows, []string{"type " + string(t), strconv.FormatInt(count.ByType[t], 10)})
			}
			return printTable(out, []string{"BUCKET", "UNREAD"}, rows)
		},
	}
}

func notificationsMarkCmd(a *app, use string, read bool) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <id>",
		Short: "Mark a notification as " + use,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var n *models.Notification
			if read {
				n, err = a.notifications.MarkAsRead(cmd.Context(), id)
			} else {
				n, err = a.notifications.MarkAsUnread(cmd.Context(), id)
			}
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.opts.asJSON {
				return printJSON(out, n)
			}
			return printTable(out, notificationHeader, [][]string{notificationRow(*n)})
		},
	}
}

func notificationsReadAllCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "read-all",
		Short: "Mark every visible notification as read",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.notifications.MarkAllAsRead(cmd.Context())
			if err != nil {
				return err
			}
			if a.opts.asJSON {
				return printJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "marked %d notifications as read\n", result.UpdatedCount)
			return nil
		},
	}
}

func notificationsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete one notification",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.notifications.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted notification %s\n", id)
			return nil
		},
	}
}

func notificationsDeleteReadCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete-read",
		Short: "Delete every read notification",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			result, err := a.notifications.DeleteAllRead(cmd.Context())
			if err != nil {
				return err
			}
			if a.opts.asJSON {
				return printJSON(cmd.OutOrStdout(), result)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %d read notifications\n", result.DeletedCount)
			return nil
		},
	}
}

var notificationHeader = []string{"ID", "TYPE", "PRIORITY", "READ", "TITLE", "CREATED"}

func notificationRow(n models.Notification) []string {
	return []string{
		n.ID.String(),
		string(n.Type),
		string(n.Priority),
		strconv.FormatBool(n.Read),
		n.Title,
		formatDate(&n.CreatedAt),
	}
}

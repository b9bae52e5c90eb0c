package cli

import (
	"context"
	"fmt"
	"text/tabwriter"
)

func runAdmin(ctx context.Context, e *env, args []string) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: admin stats|users|activate|deactivate", ErrUsage)
	}
	switch sub, rest := args[0], args[1:]; sub {
	case "stats":
		return adminStats(ctx, e)
	case "users":
		return adminUsers(ctx, e)
	case "activate", "deactivate":
		if len(rest) != 1 {
			return fmt.Errorf("%w: admin %s <user-id>", ErrUsage, sub)
		}
		action := e.client.ActivateUser
		if sub == "deactivate" {
			action = e.client.DeactivateUser
		}
		if err := action(ctx, rest[0]); err != nil {
			return err
		}
		e.printf("User %s %sd\n", rest[0], sub)
		return nil
	default:
		return fmt.Errorf("%w: unknown admin command %q", ErrUsage, sub)
	}
}

func adminStats(ctx context.Context, e *env) error {
	st, err := e.client.AdminStats(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "Users\t%d (%d active, %d inactive, %d admins)\n", st.TotalUsers, st.ActiveUsers, st.InactiveUsers, st.AdminUsers)
	fmt.Fprintf(tw, "Events\t%d\n", st.Events)
	fmt.Fprintf(tw, "Flashcards\t%d\n", st.Flashcards)
	fmt.Fprintf(tw, "Diary entries\t%d\n", st.DiaryEntries)
	fmt.Fprintf(tw, "Improvement logs\t%d\n", st.ImprovementLogs)
	return tw.Flush()
}

func adminUsers(ctx context.Context, e *env) error {
	users, err := e.client.AdminUsers(ctx)
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(e.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tUSERNAME\tEMAIL\tACTIVE\tADMIN")
	for _, u := range users {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%t\n", u.ID, u.Username, u.Email, u.IsActive, u.IsAdmin)
	}
	return tw.Flush()
}

package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticket-console/internal/domain"
	"github.com/spec-kit/ticket-console/internal/query"
)

func newRootCommand(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "console",
		Short:         "Support ticket admin console",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(
		newLoginCommand(a),
		newLogoutCommand(a),
		newWhoamiCommand(a),
		newDashboardCommand(a),
		newListCommand(a),
		newShowCommand(a),
		newStatusCommand(a),
		newPriorityCommand(a),
		newAssignCommand(a),
		newCommentCommand(a),
		newSubmitCommand(a),
	)
	return root
}

func newLoginCommand(a *app) *cobra.Command {
	var email, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Authenticate against the ticket backend",
		RunE: func(cmd *cobra.Command, _ []string) error {
			reader := bufio.NewReader(os.Stdin)
			if email == "" {
				fmt.Print("Email: ")
				line, _ := reader.ReadString('\n')
				email = strings.TrimSpace(line)
			}
			if password == "" {
				fmt.Print("Password: ")
				line, _ := reader.ReadString('\n')
				password = strings.TrimSpace(line)
			}
			user, err := a.sessions.Login(cmd.Context(), email, password)
			if err != nil {
				return err
			}
			fmt.Printf("Welcome back, %s.\n", user.Username)
			return nil
		},
	}
	cmd.Flags().StringVar(&email, "email", "", "account email")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	return cmd
}

func newLogoutCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the current session",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.sessions.Logout(cmd.Context())
			fmt.Println("Logged out.")
			return nil
		},
	}
}

func newWhoamiCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the authenticated user",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.requireAuth(cmd.Context()); err != nil {
				return err
			}
			user := a.sessions.CurrentUser()
			fmt.Printf("%s <%s>\n", user.DisplayName(), user.Email)
			return nil
		},
	}
}

func newDashboardCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show ticket counts and the most recent submissions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.refresh(cmd.Context()); err != nil {
				return err
			}
			tickets := a.tickets.Snapshot()

			fmt.Printf("Open: %d   Pending: %d   Resolved: %d\n\n",
				query.OpenCount(tickets), query.PendingCount(tickets), query.ResolvedCount(tickets))

			fmt.Println("By status:")
			statusCounts := query.CountByStatus(tickets)
			for _, status := range domain.TicketStatusValues() {
				fmt.Printf("  %-10s %d\n", status, statusCounts[status])
			}
			fmt.Println("By priority:")
			priorityCounts := query.CountByPriority(tickets)
			for _, priority := range domain.TicketPriorityValues() {
				fmt.Printf("  %-10s %d\n", priority, priorityCounts[priority])
			}

			fmt.Println("\nRecent tickets:")
			printTicketTable(query.Recent(tickets, 5))
			return nil
		},
	}
}

func newListCommand(a *app) *cobra.Command {
	var status, priority, search string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tickets, optionally filtered",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := a.refresh(cmd.Context()); err != nil {
				return err
			}
			matched := query.Search(a.tickets.Snapshot(), search, status, priority)
			if len(matched) == 0 {
				fmt.Println("No tickets match.")
				return nil
			}
			printTicketTable(matched)
			return nil
		},
	}
	cmd.Flags().StringVar(&status, "status", query.All, "filter by status (new|open|pending|resolved|closed|all)")
	cmd.Flags().StringVar(&priority, "priority", query.All, "filter by priority (low|medium|high|urgent|all)")
	cmd.Flags().StringVar(&search, "search", "", "substring match on title, description or requester")
	return cmd
}

func newShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show <ticket-id>",
		Short: "Show one ticket with its activity trail",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.refresh(cmd.Context()); err != nil {
				return err
			}
			ticket, ok := a.tickets.GetByID(args[0])
			if !ok {
				return fmt.Errorf("ticket %s not found", args[0])
			}

			fmt.Printf("Ticket %s\n", ticket.ID)
			fmt.Printf("  Title:     %s\n", ticket.Title)
			fmt.Printf("  Status:    %s    Priority: %s\n", ticket.Status, ticket.Priority)
			fmt.Printf("  Requester: %s <%s>\n", ticket.CreatedBy.Name, ticket.CreatedBy.Email)
			if ticket.AssignedTo != nil {
				fmt.Printf("  Assignee:  %s\n", ticket.AssignedTo.DisplayName())
			}
			fmt.Printf("  Created:   %s    Updated: %s\n", ticket.CreatedAt.Local(), ticket.UpdatedAt.Local())
			fmt.Printf("\n%s\n\n", ticket.Description)

			activities, err := a.activities.LoadForTicket(cmd.Context(), ticket.ID)
			if err != nil {
				return err
			}
			if len(activities) == 0 {
				fmt.Println("No activity recorded yet.")
				return nil
			}
			fmt.Println("Activity:")
			for _, act := range activities {
				fmt.Printf("  [%s] %s: %s\n", act.CreatedAt.Local().Format("2006-01-02 15:04"), act.CreatedBy, act.Message)
			}
			return nil
		},
	}
}

func newStatusCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <ticket-id> <new-status>",
		Short: "Change a ticket's status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticket, err := a.lookupForMutation(cmd, args[0])
			if err != nil {
				return err
			}
			_, err = a.workflow.ChangeStatus(cmd.Context(), ticket, domain.TicketStatus(args[1]), a.actor())
			return err
		},
	}
}

func newPriorityCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "priority <ticket-id> <new-priority>",
		Short: "Change a ticket's priority",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticket, err := a.lookupForMutation(cmd, args[0])
			if err != nil {
				return err
			}
			_, err = a.workflow.ChangePriority(cmd.Context(), ticket, domain.TicketPriority(args[1]), a.actor())
			return err
		},
	}
}

func newAssignCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "assign <ticket-id>",
		Short: "Assign a ticket to yourself",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticket, err := a.lookupForMutation(cmd, args[0])
			if err != nil {
				return err
			}
			_, err = a.workflow.Assign(cmd.Context(), ticket, a.sessions.CurrentUser(), a.actor())
			return err
		},
	}
}

func newCommentCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "comment <ticket-id> <text>",
		Short: "Add a comment to a ticket",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticket, err := a.lookupForMutation(cmd, args[0])
			if err != nil {
				return err
			}
			_, err = a.workflow.AddComment(cmd.Context(), ticket, strings.Join(args[1:], " "), a.actor())
			return err
		},
	}
}

func newSubmitCommand(a *app) *cobra.Command {
	var title, description, priority, name, email string
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Submit a new ticket (public form)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := a.workflow.SubmitTicket(cmd.Context(), domain.TicketInput{
				Title:       title,
				Description: description,
				Priority:    domain.TicketPriority(priority),
				CreatedBy:   domain.Requester{Name: name, Email: email},
			})
			return err
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "ticket title")
	cmd.Flags().StringVar(&description, "description", "", "problem description")
	cmd.Flags().StringVar(&priority, "priority", "", "low|medium|high|urgent (default medium)")
	cmd.Flags().StringVar(&name, "name", "", "your name")
	cmd.Flags().StringVar(&email, "email", "", "your email")
	return cmd
}

// lookupForMutation ensures the caller is authenticated and the ticket is
// known before a workflow runs.
func (a *app) lookupForMutation(cmd *cobra.Command, id string) (*domain.Ticket, error) {
	if err := a.requireAuth(cmd.Context()); err != nil {
		return nil, err
	}
	if err := a.refresh(cmd.Context()); err != nil {
		return nil, err
	}
	ticket, ok := a.tickets.GetByID(id)
	if !ok {
		return nil, fmt.Errorf("ticket %s not found", id)
	}
	return ticket, nil
}

func printTicketTable(tickets []domain.Ticket) {
	if len(tickets) == 0 {
		fmt.Println("  (none)")
		return
	}
	w := tabwriter.NewWriter(os.Stdout, 2, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tSTATUS\tPRIORITY\tREQUESTER\tCREATED")
	for _, t := range tickets {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
			shortID(t.ID), truncate(t.Title, 40), t.Status, t.Priority,
			t.CreatedBy.Name, t.CreatedAt.Local().Format("2006-01-02 15:04"))
	}
	_ = w.Flush()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-1] + "…"
}

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/C4T-BuT-S4D/predlozhka/internal/admins"
	"github.com/C4T-BuT-S4D/predlozhka/internal/config"
	"github.com/C4T-BuT-S4D/predlozhka/internal/logging"
	"github.com/C4T-BuT-S4D/predlozhka/internal/models"
	"github.com/C4T-BuT-S4D/predlozhka/internal/storage"
	"github.com/spf13/cobra"
)

type app struct {
	cfg     *config.Config
	store   *storage.Storage
	jsonOut bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "ctl",
		Short:         "Maintenance tasks for the predlozhka database",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			config.SetupCommon()
			logging.Init()
			a.cfg = config.New()

			db, err := storage.OpenDB(a.cfg.DatabaseDriver, a.cfg.DSN())
			if err != nil {
				return err
			}
			a.store = storage.New(db, storage.WithRetry(a.cfg.StoreRetryAttempts, a.cfg.StoreRetryDelay))
			return nil
		},
		PersistentPostRunE: func(*cobra.Command, []string) error {
			if a.store == nil {
				return nil
			}
			sqlDB, err := a.store.DB().DB()
			if err != nil {
				return err
			}
			return sqlDB.Close()
		},
	}
	root.PersistentFlags().BoolVar(&a.jsonOut, "json", false, "print JSON instead of a table")

	root.AddCommand(
		&cobra.Command{
			Use:   "migrate",
			Short: "Create or update the database schema",
			Args:  cobra.NoArgs,
			RunE:  a.runMigrate,
		},
		&cobra.Command{
			Use:   "users",
			Short: "List registered users",
			Args:  cobra.NoArgs,
			RunE:  a.runUsers,
		},
		&cobra.Command{
			Use:   "promote <telegram_id>",
			Short: "Make a registered user an admin",
			Args:  cobra.ExactArgs(1),
			RunE:  a.runPromote,
		},
		a.postsCmd(),
		a.topCmd(),
	)
	return root
}

func (a *app) runMigrate(cmd *cobra.Command, _ []string) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
	defer cancel()

	if err := a.store.Migrate(ctx); err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), "schema is up to date")
	return nil
}

func (a *app) runUsers(cmd *cobra.Command, _ []string) error {
	users, err := a.store.ListUsers(cmd.Context())
	if err != nil {
		return err
	}
	if a.jsonOut {
		return writeJSON(cmd.OutOrStdout(), users)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTELEGRAM\tNAME\tROLE\tSTATUS\tSUBMITTED\tAPPROVED\tREJECTED")
	for _, u := range users {
		fmt.Fprintf(w, "%d\t%d\t%s\t%s\t%s\t%d\t%d\t%d\n",
			u.ID, u.TelegramID, u.DisplayName(), u.Role, u.Status,
			u.SubmittedPosts, u.ApprovedPosts, u.RejectedPosts)
	}
	return w.Flush()
}

func (a *app) runPromote(cmd *cobra.Command, args []string) error {
	telegramID, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid telegram id %q: %w", args[0], err)
	}
	if err := admins.New(a.store, nil).Promote(cmd.Context(), telegramID); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "user %d is now an admin\n", telegramID)
	return nil
}

func (a *app) postsCmd() *cobra.Command {
	var status string
	cmd := &cobra.Command{
		Use:   "posts",
		Short: "List posts by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, err := models.ParsePostStatus(status)
			if err != nil {
				return err
			}
			posts, err := a.store.ListPostsByStatus(cmd.Context(), st)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), posts)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tOWNER\tCREATED\tTEXT")
			for _, p := range posts {
				owner := strconv.FormatInt(p.UserID, 10)
				if p.Owner != nil {
					owner = p.Owner.DisplayName()
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%s\n", p.ID, owner, p.CreatedAt.Format(time.DateTime), preview(p.TextContent))
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&status, "status", string(models.PostStatusPending), "pending, approved or rejected")
	return cmd
}

func (a *app) topCmd() *cobra.Command {
	var (
		metric string
		limit  int
	)
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Rank users by a post counter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			counter, err := models.ParseCounter(metric)
			if err != nil {
				return err
			}
			if limit <= 0 {
				limit = a.cfg.TopUsersLimit
			}
			scores, err := a.store.TopUsers(cmd.Context(), counter, limit)
			if err != nil {
				return err
			}
			if a.jsonOut {
				return writeJSON(cmd.OutOrStdout(), scores)
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintf(w, "#\tUSER\t%s\n", counter)
			for i, s := range scores {
				fmt.Fprintf(w, "%d\t%s\t%d\n", i+1, s.User.DisplayName(), s.Value)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVar(&metric, "metric", models.CounterApprovedPosts.String(), "submitted_posts, approved_posts or rejected_posts")
	cmd.Flags().IntVar(&limit, "limit", 0, "rows to show, defaults to top_users_limit")
	return cmd
}

func preview(s string) string {
	const limit = 40
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PaulBabatuyi/socialhub/internal/session"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

const commandTimeout = 2 * time.Minute

type userClearer interface {
	DeleteAll(ctx context.Context) (int64, error)
}

type indexer interface {
	CreateIndexes(ctx context.Context) error
}

// backend is what the commands operate on. close releases connections.
type backend struct {
	users    userClearer
	indexes  indexer
	sessions session.Store
	close    func()
}

type admin struct {
	log  *logrus.Logger
	open func(ctx context.Context) (*backend, error)
}

var errNotConfirmed = errors.New("refusing to delete every user without --yes")

func newRootCmd(a *admin) *cobra.Command {
	root := &cobra.Command{
		Use:           "socialhub-admin",
		Short:         "Operator tasks for socialhub",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		a.clearUsersCmd(),
		a.createIndexesCmd(),
		a.purgeSessionsCmd(),
	)
	return root
}

// withBackend opens the backend, runs fn with a bounded context and closes it.
func (a *admin) withBackend(cmd *cobra.Command, fn func(ctx context.Context, b *backend) error) error {
	ctx, cancel := context.WithTimeout(cmd.Context(), commandTimeout)
	defer cancel()

	b, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer b.close()
	return fn(ctx, b)
}

func (a *admin) clearUsersCmd() *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear-users",
		Short: "Delete all user accounts",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errNotConfirmed
			}
			return a.withBackend(cmd, func(ctx context.Context, b *backend) error {
				n, err := b.users.DeleteAll(ctx)
				if err != nil {
					return fmt.Errorf("delete users: %w", err)
				}
				a.log.WithField("deleted", n).Info("users cleared")
				fmt.Fprintf(cmd.OutOrStdout(), "deleted %d users\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "confirm deletion")
	return cmd
}

func (a *admin) createIndexesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "create-indexes",
		Short: "Create the collection indexes the server relies on",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBackend(cmd, func(ctx context.Context, b *backend) error {
				if err := b.indexes.CreateIndexes(ctx); err != nil {
					return fmt.Errorf("create indexes: %w", err)
				}
				a.log.Info("indexes created")
				fmt.Fprintln(cmd.OutOrStdout(), "indexes created")
				return nil
			})
		},
	}
}

func (a *admin) purgeSessionsCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "purge-sessions",
		Short: "Remove expired sessions, or every session with --all",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.withBackend(cmd, func(ctx context.Context, b *backend) error {
				n, err := b.sessions.Purge(ctx, all)
				if err != nil {
					return fmt.Errorf("purge sessions: %w", err)
				}
				a.log.WithFields(logrus.Fields{"removed": n, "all": all}).Info("sessions purged")
				fmt.Fprintf(cmd.OutOrStdout(), "removed %d sessions\n", n)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "log every user out, not only expired sessions")
	return cmd
}

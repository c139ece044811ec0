package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/megayours/tma-session/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
)

func newResolveCmd(a *app) *cobra.Command {
	var (
		timeout     time.Duration
		showMetrics bool
	)

	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Run one resolution pass and print the resulting status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ctx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			defer a.close()

			registry := prometheus.NewRegistry()
			resolver, err := a.newResolver(metrics.New(metrics.WithRegistry(registry)))
			if err != nil {
				return err
			}
			defer resolver.Close()

			st, err := resolver.Resolve(ctx)
			if err != nil {
				return fmt.Errorf("resolve: %w", err)
			}
			printStatus(a.out, st, time.Now())

			if showMetrics {
				if err := writeMetrics(a, registry); err != nil {
					return err
				}
			}
			if !st.IsAuthenticated {
				return errAuthRequired
			}
			return nil
		},
	}
	cmd.Flags().DurationVar(&timeout, "timeout", time.Minute, "give up after this long")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print the pass metrics after resolving")
	return cmd
}

func writeMetrics(a *app, registry *prometheus.Registry) error {
	families, err := registry.Gather()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	enc := expfmt.NewEncoder(a.out, expfmt.FmtText)
	for _, mf := range families {
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("encoding metrics: %w", err)
		}
	}
	return nil
}

func newStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Print the stored session without contacting the backend",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.close()
			if err := a.openStores(); err != nil {
				return err
			}
			s, err := a.sessions.Load(cmd.Context())
			if err != nil {
				a.logger.Warn().Err(err).Msg("stored session unusable")
			}
			if s == nil {
				fmt.Fprintln(a.out, "no stored session")
				return errAuthRequired
			}
			printSession(a.out, s, time.Now())
			return nil
		},
	}
}

func newLogoutCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Clear the stored session and bearer token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.close()
			resolver, err := a.newResolver(nil)
			if err != nil {
				return err
			}
			defer resolver.Close()

			if err := resolver.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Fprintln(a.out, "logged out")
			return nil
		},
	}
}

func newAuthorizeURLCmd(a *app) *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:   "authorize-url",
		Short: "Print the URL that starts the external OAuth flow",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			defer a.close()
			b, err := a.newBuilder(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, b.URL(state))
			return nil
		},
	}
	cmd.Flags().StringVar(&state, "state", "/", "location to return to after authorizing")
	return cmd
}

func newCallbackCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "callback <url>",
		Short: "Store the bearer token carried by an authorize callback URL",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			defer a.close()
			b, err := a.newBuilder(cmd.Context())
			if err != nil {
				return err
			}
			state, err := b.HandleCallbackURL(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(a.out, "token stored, return to %q\n", state)
			return nil
		},
	}
}

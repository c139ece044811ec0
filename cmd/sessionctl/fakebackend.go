package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/megayours/tma-session/internal/fakebackend"
	"github.com/spf13/cobra"
)

func newFakeBackendCmd(a *app) *cobra.Command {
	var (
		addr      string
		hostUsers []string
	)

	cmd := &cobra.Command{
		Use:   "fake-backend",
		Short: "Serve the validation endpoints locally for development",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if addr == "" {
				addr = a.cfg.GetFakeBackendAddr()
			}

			opts := []fakebackend.Option{
				fakebackend.WithEnv(a.cfg.GetEnv()),
				fakebackend.WithLogger(a.logger),
				fakebackend.WithHostScheme(a.cfg.GetHostScheme()),
				fakebackend.WithAllowedOrigins(a.cfg.GetAllowedOrigins()...),
			}
			if secret := a.cfg.GetFakeBackendSecret(); secret != "" {
				opts = append(opts, fakebackend.WithSecret([]byte(secret)))
			}
			backend := fakebackend.New(opts...)

			for _, hostUser := range hostUsers {
				initData, user, err := parseHostUser(hostUser)
				if err != nil {
					return err
				}
				backend.AddHostUser(initData, user)
			}

			displayAppname(a.cfg.GetAppName())
			server := &http.Server{Addr: addr, Handler: backend, ReadHeaderTimeout: 10 * time.Second}

			errCh := make(chan error, 1)
			go func() { errCh <- listenAndServe(a, server) }()

			select {
			case err := <-errCh:
				return err
			case <-waitForStopSignal():
			}
			return shutdown(server)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().StringArrayVar(&hostUsers, "host-user", nil, "register initData=id:name; may be repeated")
	return cmd
}

func parseHostUser(hostUser string) (string, fakebackend.User, error) {
	initData, rest, ok := strings.Cut(hostUser, "=")
	id, name, ok2 := strings.Cut(rest, ":")
	if !ok || !ok2 || initData == "" || id == "" || name == "" {
		return "", fakebackend.User{}, fmt.Errorf("invalid --host-user %q, want initData=id:name", hostUser)
	}
	return initData, fakebackend.User{ID: id, Name: name}, nil
}

func listenAndServe(a *app, server *http.Server) error {
	a.logger.Info().Str("addr", server.Addr).Msg("fake backend listening")
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %w", err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(server *http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server.Shutdown: %w", err)
	}
	return nil
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/matheus3301/charly/internal/devserver"
)

func devserverCommand() *cli.Command {
	return &cli.Command{
		Name:  "devserver",
		Usage: "run an in-memory assistant backend for offline development",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "addr", Value: "127.0.0.1:8000", Usage: "listen address; the API is served under /api"},
			&cli.StringSliceFlag{Name: "user", Usage: "account as name:email:password (repeatable)", Value: cli.NewStringSlice("Demo:demo@charly.local:demo")},
		},
		Action: func(c *cli.Context) error {
			logger, err := zap.NewDevelopment()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			var opts []devserver.Option
			for _, u := range c.StringSlice("user") {
				name, email, password, err := parseUser(u)
				if err != nil {
					return cli.Exit(err.Error(), 1)
				}
				opts = append(opts, devserver.WithUser(name, email, password))
			}

			srv := &http.Server{
				Addr:              c.String("addr"),
				Handler:           devserver.New(logger, opts...).Handler(),
				ReadHeaderTimeout: 5 * time.Second,
			}

			ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			go func() {
				<-ctx.Done()
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				_ = srv.Shutdown(shutdownCtx)
			}()

			logger.Info("dev server listening", zap.String("url", "http://"+srv.Addr+"/api"))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		},
	}
}

func parseUser(s string) (name, email, password string, err error) {
	parts := strings.SplitN(s, ":", 3)
	if len(parts) != 3 || parts[1] == "" || parts[2] == "" {
		return "", "", "", fmt.Errorf("invalid --user %q, want name:email:password", s)
	}
	return parts[0], parts[1], parts[2], nil
}

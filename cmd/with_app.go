package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/fx"

	"remedy/internal/bootstrap"
	"remedy/internal/bootstrap/logging"
	"remedy/internal/errs"
	"remedy/internal/usecase/remediation"
)

func withApp(run func(cmd *cobra.Command, app *bootstrap.App, svc *remediation.Service) error) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		ctx := logging.WithAttrs(
			cmd.Context(),
			slog.String("command", cmd.CommandPath()),
			slog.String("config_file", cfgFile),
		)

		var app *bootstrap.App
		var svc *remediation.Service
		fxApp := fx.New(
			bootstrap.Module,
			fx.NopLogger,
			fx.Provide(func() context.Context { return ctx }),
			fx.Provide(
				fx.Annotate(
					func() string { return cfgFile },
					fx.ResultTags(`name:"configFile"`),
				),
			),
			fx.Populate(&app, &svc),
		)

		startCtx, cancelStart := context.WithTimeout(ctx, 10*time.Second)
		defer cancelStart()
		if err := fxApp.Start(startCtx); err != nil {
			logging.Error(ctx, "bootstrap application failed", slog.Any("err", errs.Loggable(err)))
			return errs.Wrap(err, "start fx application")
		}

		defer func() {
			stopCtx, cancelStop := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancelStop()
			if err := fxApp.Stop(stopCtx); err != nil {
				logging.Error(ctx, "fx application stop failed", slog.Any("err", errs.Loggable(err)))
			}
		}()

		logger, err := logging.NewLogger(cmd.ErrOrStderr(), app.Config.Log.Level, app.Config.Log.Format)
		if err != nil {
			return errs.Wrap(err, "build logger")
		}
		logging.SetDefault(logger)
		cmd.SetContext(logging.WithLogger(ctx, logger))

		if err := run(cmd, app, svc); err != nil {
			return errs.Wrap(err, "run command")
		}
		return nil
	}
}

// serviceRunE runs with an injected service when one is given, otherwise it boots the app.
func serviceRunE(svc *remediation.Service, run func(cmd *cobra.Command, svc *remediation.Service) error) func(cmd *cobra.Command, args []string) error {
	if svc != nil {
		return func(cmd *cobra.Command, _ []string) error {
			return run(cmd, svc)
		}
	}
	return withApp(func(cmd *cobra.Command, _ *bootstrap.App, appSvc *remediation.Service) error {
		return run(cmd, appSvc)
	})
}

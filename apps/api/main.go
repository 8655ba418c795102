package main

import (
	"context"
	"fmt"
	"os"

	"github.com/codetrail/codetrail/apps/api/echo"
	"github.com/codetrail/codetrail/apps/di"
	"github.com/codetrail/codetrail/core"
	"github.com/codetrail/codetrail/core/guard"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf, err := core.NewConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "loading config: %v\n", err)
		os.Exit(1)
	}

	logger := di.NewLogger(conf, "API")

	dir, err := di.NewDirectory(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up user directory: %v", err), err)
	}
	defer func() {
		if err = dir.Close(); err != nil {
			logger.Error("closing database", err)
		}
	}()

	cache, closeCache, err := di.NewRoleCache(context.Background(), conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up role cache: %v", err), err)
	}
	defer func() {
		if err = closeCache(); err != nil {
			logger.Error("closing role cache", err)
		}
	}()

	res := di.NewResolver(conf, di.NewRoleFetcher(conf, dir.Users), cache, logger)
	defer res.Close()

	if conf.RoleService.APIKey == "" && !(conf.Debug || conf.TestMode) {
		logger.Warn("roleService.apiKey is not set: every call to the role endpoint will be refused")
	}

	// =========================================================================
	// Start API Service

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	server := echoapi.NewServer(
		echoapi.Options{
			Address:        conf.Server.Address,
			Debug:          conf.Debug,
			TestMode:       conf.TestMode,
			DisableReqLogs: conf.Server.DisableReqLogs,
			SessionCookie:  conf.Server.SessionCookie,
			ResolveWait:    conf.RoleService.ResolveWait,
			RoleAPIKey:     conf.RoleService.APIKey,
		},
		echoapi.Deps{
			Logger:   logger,
			Users:    dir.Users,
			Tokens:   di.NewTokenManager(conf),
			Resolver: res,
			Routes:   guard.DefaultRoutes(),
		},
	)

	go func() {
		server.Start()
	}()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Error(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Error(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

// Package di builds the CodeTrail dependencies from the configuration.
package di

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/codetrail/codetrail/core"
	"github.com/codetrail/codetrail/core/resolver"
	"github.com/codetrail/codetrail/core/user"
	"github.com/codetrail/codetrail/services/identity/token"
	"github.com/codetrail/codetrail/services/logger"
	"github.com/codetrail/codetrail/services/rolesvc"
	"github.com/codetrail/codetrail/storage/cache/inmem"
	"github.com/codetrail/codetrail/storage/cache/lru"
	"github.com/codetrail/codetrail/storage/cache/redis"
	"github.com/codetrail/codetrail/storage/database"
	"github.com/codetrail/codetrail/storage/database/inmem"
	"github.com/codetrail/codetrail/storage/database/sqlx"
)

func NewLogger(conf *core.Config, prefix string) *logsvc.RollbarLogger {
	stdLogger := log.New(os.Stdout, prefix+" : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug && conf.RollbarToken != "")
	return logger
}

// Directory is the user directory and what it runs on.
type Directory struct {
	Users *user.Service
	Repo  user.Repository
	DB    *sqlx.DB // nil for the memory engine
}

func (d *Directory) Close() error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// NewDirectory opens the configured database engine; postgres is created and migrated up.
func NewDirectory(conf *core.Config) (*Directory, error) {
	switch conf.Database.Engine {
	case "", "memory":
		repo := inmemdb.NewUserRepository(inmemdb.Open())
		return &Directory{Users: user.NewService(repo), Repo: repo}, nil
	case "postgres":
		db, err := OpenDB(conf)
		if err != nil {
			return nil, err
		}
		if err = database.Migrate(db, "up"); err != nil {
			_ = db.Close()
			return nil, err
		}
		repo := sqlxrepos.NewUserRepository(db)
		return &Directory{Users: user.NewService(repo), Repo: repo, DB: db}, nil
	default:
		return nil, fmt.Errorf("unknown database engine %q", conf.Database.Engine)
	}
}

// OpenDB creates the postgres database if needed and connects to it.
func OpenDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf.Database); err != nil {
		return nil, errors.Wrap(err, "creating database")
	}
	return database.Open(conf.Database)
}

// NewRoleCache returns the configured cache and how to release it.
func NewRoleCache(ctx context.Context, conf *core.Config) (resolver.Cache, func() error, error) {
	noop := func() error { return nil }

	switch conf.Cache.Backend {
	case "", "memory":
		return inmemcache.New(), noop, nil
	case "lru":
		c, err := lrucache.New(conf.Cache.Size, conf.Cache.TTL)
		if err != nil {
			return nil, nil, errors.Wrap(err, "creating lru cache")
		}
		return c, noop, nil
	case "redis":
		client, err := rediscache.Open(ctx, conf.Redis)
		if err != nil {
			return nil, nil, err
		}
		return rediscache.New(client, conf.Redis.Prefix, conf.Cache.TTL), client.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown cache backend %q", conf.Cache.Backend)
	}
}

// NewRoleFetcher asks the remote role service when one is configured, the local directory otherwise.
func NewRoleFetcher(conf *core.Config, users *user.Service) resolver.Fetcher {
	if conf.RoleService.URL != "" {
		return rolesvc.NewClient(conf.RoleService.URL, conf.RoleService.APIKey, conf.RoleService.Timeout)
	}
	return rolesvc.NewDirectory(users)
}

func NewResolver(conf *core.Config, fetcher resolver.Fetcher, cache resolver.Cache, logger core.Logger) *resolver.Resolver {
	return resolver.New(fetcher, cache, resolver.Options{
		Timeout: conf.RoleService.Timeout,
		Backoff: conf.RoleService.RetryBackoff,
		Logger:  logger,
	})
}

func NewTokenManager(conf *core.Config) *token.Manager {
	return token.NewManager(
		conf.AppName,
		conf.SecretKey,
		conf.Server.JWTExpirationDelta,
		conf.Server.JWTRefreshExpirationDelta,
	)
}

package core

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Env          string
		Debug        bool
		TestMode     bool
		AppName      string
		SecretKey    string
		Build        string
		RollbarToken string

		Server      ServerConfig
		Database    DatabaseConfig
		RoleService RoleServiceConfig
		Cache       CacheConfig
		Redis       RedisConfig
	}

	ServerConfig struct {
		Host                      string
		Address                   string
		DisableReqLogs            bool
		SessionCookie             string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
	}

	DatabaseConfig struct {
		Engine        string // memory | postgres
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RoleServiceConfig struct {
		URL          string // empty: resolve in-process
		APIKey       string
		Timeout      time.Duration
		ResolveWait  time.Duration
		RetryBackoff time.Duration
	}

	CacheConfig struct {
		Backend string // memory | lru | redis
		Size    int
		TTL     time.Duration
	}

	RedisConfig struct {
		Address  string
		Password string
		DB       int
		Prefix   string
	}
)

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// NewConfig loads the configuration of the current ENV (DEV by default).
func NewConfig() (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "CodeTrail")
	v.SetDefault("secretKey", "k2v#9tq!m^w0cd$8xe=h4(jz)r7@lp+s5bn*yu3&fog1ia")
	v.SetDefault("build", "dev")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.disableReqLogs", false)
	v.SetDefault("server.sessionCookie", "codetrail_session")
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("database.engine", "memory")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "codetrail")
	v.SetDefault("database.user", "codetrail")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", true)

	v.SetDefault("roleService.url", "")
	v.SetDefault("roleService.apiKey", "")
	v.SetDefault("roleService.timeout", 5*time.Second)
	v.SetDefault("roleService.resolveWait", 2*time.Second)
	v.SetDefault("roleService.retryBackoff", 500*time.Millisecond)

	v.SetDefault("cache.backend", "memory")
	v.SetDefault("cache.size", 1024)
	v.SetDefault("cache.ttl", time.Hour)

	v.SetDefault("redis.address", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.prefix", "codetrail:role:")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	if root, err := Getwd(); err == nil {
		dotEnvPath := filepath.Join(root, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
			}
		} else if !os.IsNotExist(err) {
			return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
		}
	}
	v.AutomaticEnv()

	conf := new(Config)
	if err := v.Unmarshal(conf); err != nil {
		return nil, errors.Wrap(err, "decoding config")
	}
	conf.Env = env
	return conf, nil
}

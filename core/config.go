package core

import (
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// DefaultVapidPublicKey is the application server key shipped to the web client.
const DefaultVapidPublicKey = "BECwSj0xQaM3JXmGNAryUhNfQim1f0-h2cEEoSqDIrBfmYQi6g1aNUsCo6i1AN4k4-4LawmTOMrpTiM4cbn0KtA"

type (
	ServerConfig struct {
		Address         string
		DebugAddress    string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		DisableReqLogs  bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          int
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		MaxOpenConns  int
	}

	VapidConfig struct {
		PublicKey   string
		PrivateKey  string
		Subject     string
		TokenExpiry time.Duration
	}

	PushConfig struct {
		TTL            int
		RequestTimeout time.Duration
		Concurrency    int
	}

	RedisConfig struct {
		Address  string
		Password string
		DB       int
		LockTTL  time.Duration
	}

	TriggerConfig struct {
		Listen  bool
		Channel string
	}

	JobsConfig struct {
		UTCOffsetHours   int
		DailyCutoffHour  int
		FreeNoticeWindow time.Duration
		Retention        time.Duration
	}

	Config struct {
		Env          string
		Build        string
		AppName      string
		Debug        bool
		TestMode     bool
		RollbarToken string

		Server   ServerConfig
		Database DatabaseConfig
		Vapid    VapidConfig
		Push     PushConfig
		Redis    RedisConfig
		Trigger  TriggerConfig
		Jobs     JobsConfig
	}
)

// Address returns the database host:port.
func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
}

// Location returns the fixed time zone the school runs on.
func (jc JobsConfig) Location() *time.Location {
	return time.FixedZone(fmt.Sprintf("UTC%+d", jc.UTCOffsetHours), jc.UTCOffsetHours*3600)
}

// envBindings maps every config key to the env var it is read from.
var envBindings = map[string]string{
	"debug":        "DEBUG",
	"build":        "BUILD",
	"appName":      "APP_NAME",
	"rollbarToken": "ROLLBAR_TOKEN",

	"server.address":         "SERVER_ADDRESS",
	"server.debugAddress":    "SERVER_DEBUG_ADDRESS",
	"server.readTimeout":     "SERVER_READ_TIMEOUT",
	"server.writeTimeout":    "SERVER_WRITE_TIMEOUT",
	"server.shutdownTimeout": "SERVER_SHUTDOWN_TIMEOUT",
	"server.disableReqLogs":  "SERVER_DISABLE_REQ_LOGS",

	"database.engine":        "DB_ENGINE",
	"database.host":          "DB_HOST",
	"database.port":          "DB_PORT",
	"database.name":          "DB_NAME",
	"database.user":          "DB_USER",
	"database.password":      "DB_PASSWORD",
	"database.adminUser":     "DB_ADMIN_USER",
	"database.adminPassword": "DB_ADMIN_PASSWORD",
	"database.disableTLS":    "DB_DISABLE_TLS",
	"database.maxOpenConns":  "DB_MAX_OPEN_CONNS",

	"vapid.publicKey":   "VAPID_PUBLIC_KEY",
	"vapid.privateKey":  "VAPID_PRIVATE_KEY",
	"vapid.subject":     "VAPID_SUBJECT",
	"vapid.tokenExpiry": "VAPID_TOKEN_EXPIRY",

	"push.ttl":            "PUSH_TTL",
	"push.requestTimeout": "PUSH_REQUEST_TIMEOUT",
	"push.concurrency":    "PUSH_CONCURRENCY",

	"redis.address":  "REDIS_ADDR",
	"redis.password": "REDIS_PASSWORD",
	"redis.db":       "REDIS_DB",
	"redis.lockTTL":  "REDIS_LOCK_TTL",

	"trigger.listen":  "TRIGGER_LISTEN",
	"trigger.channel": "TRIGGER_CHANNEL",

	"jobs.utcOffsetHours":   "JOBS_UTC_OFFSET_HOURS",
	"jobs.dailyCutoffHour":  "JOBS_DAILY_CUTOFF_HOUR",
	"jobs.freeNoticeWindow": "JOBS_FREE_NOTICE_WINDOW",
	"jobs.retention":        "JOBS_RETENTION",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Homeroom")

	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 2*time.Minute) // a dispatch may take a while
	v.SetDefault("server.shutdownTimeout", 10*time.Second)

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "homeroom")
	v.SetDefault("database.user", "postgres")
	v.SetDefault("database.maxOpenConns", 10)

	v.SetDefault("vapid.publicKey", DefaultVapidPublicKey)
	v.SetDefault("vapid.subject", "mailto:admin@example.com")
	v.SetDefault("vapid.tokenExpiry", 12*time.Hour)

	v.SetDefault("push.ttl", 86400)
	v.SetDefault("push.requestTimeout", 10*time.Second)
	v.SetDefault("push.concurrency", 4)

	v.SetDefault("redis.lockTTL", 10*time.Minute)

	v.SetDefault("trigger.channel", "notification_inserted")

	v.SetDefault("jobs.utcOffsetHours", 7)
	v.SetDefault("jobs.dailyCutoffHour", 16)
	v.SetDefault("jobs.freeNoticeWindow", 5*time.Minute)
	v.SetDefault("jobs.retention", 30*24*time.Hour)
}

// NewConfig loads the configuration of the current ENV (DEV by default) from
// the environment, optionally seeded by `config/.env.<env>` at the project root.
func NewConfig() *Config {
	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	if env == "" {
		env = "DEV"
	}

	// load .env if it exists (ignore if it does not)
	if root, err := ProjectRoot(); err == nil {
		dotEnvPath := filepath.Join(root, "config", ".env."+strings.ToLower(env))
		if _, err := os.Stat(dotEnvPath); err == nil {
			if err := godotenv.Load(dotEnvPath); err != nil {
				log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
			}
		} else if !os.IsNotExist(err) {
			log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
		}
	}

	v := viper.New()
	setDefaults(v)
	if env == "TEST" {
		v.SetDefault("testMode", true)
		v.SetDefault("debug", false)
	}
	for key, envVar := range envBindings {
		_ = v.BindEnv(key, envVar)
	}
	return newConfig(v, env)
}

func newConfig(v *viper.Viper, env string) *Config {
	conf := &Config{
		Env:          env,
		Build:        v.GetString("build"),
		AppName:      v.GetString("appName"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		RollbarToken: v.GetString("rollbarToken"),
		Server: ServerConfig{
			Address:         v.GetString("server.address"),
			DebugAddress:    v.GetString("server.debugAddress"),
			ReadTimeout:     v.GetDuration("server.readTimeout"),
			WriteTimeout:    v.GetDuration("server.writeTimeout"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			MaxOpenConns:  v.GetInt("database.maxOpenConns"),
		},
		Vapid: VapidConfig{
			PublicKey:   v.GetString("vapid.publicKey"),
			PrivateKey:  v.GetString("vapid.privateKey"),
			Subject:     v.GetString("vapid.subject"),
			TokenExpiry: v.GetDuration("vapid.tokenExpiry"),
		},
		Push: PushConfig{
			TTL:            v.GetInt("push.ttl"),
			RequestTimeout: v.GetDuration("push.requestTimeout"),
			Concurrency:    v.GetInt("push.concurrency"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
			LockTTL:  v.GetDuration("redis.lockTTL"),
		},
		Trigger: TriggerConfig{
			Listen:  v.GetBool("trigger.listen"),
			Channel: v.GetString("trigger.channel"),
		},
		Jobs: JobsConfig{
			UTCOffsetHours:   v.GetInt("jobs.utcOffsetHours"),
			DailyCutoffHour:  v.GetInt("jobs.dailyCutoffHour"),
			FreeNoticeWindow: v.GetDuration("jobs.freeNoticeWindow"),
			Retention:        v.GetDuration("jobs.retention"),
		},
	}

	// push services reject tokens valid for more than 24h
	if conf.Vapid.TokenExpiry <= 0 || conf.Vapid.TokenExpiry > 24*time.Hour {
		conf.Vapid.TokenExpiry = 12 * time.Hour
	}
	if conf.Push.Concurrency < 1 {
		conf.Push.Concurrency = 1
	}
	return conf
}

package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host                      string
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		CORSOrigins               []string
		BodyLimit                 string
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		Name          string
		DisableTLS    bool
		Path          string // sqlite only
	}

	StorageConfig struct {
		Backend            string // local | gcs
		LocalDir           string
		PublicURL          string
		GCSBucket          string
		GCSCredentialsFile string
	}

	RateLimitConfig struct {
		Limit  int
		Window time.Duration
	}

	TelemetryConfig struct {
		Enabled  bool
		Endpoint string
	}

	Config struct {
		AppName          string
		Env              string // DEV (default), TEST, QA, PROD
		Build            string
		Debug            bool
		TestMode         bool
		SecretKey        string
		FrontendBaseURL  string
		WorkDir          string
		RollbarToken     string
		SendgridApiKey   string
		defaultFromEmail string

		Server    ServerConfig
		Database  DatabaseConfig
		Storage   StorageConfig
		RateLimit RateLimitConfig
		Telemetry TelemetryConfig
	}
)

// Address returns the "host:port" the database listens on.
func (dc DatabaseConfig) Address() string {
	return net.JoinHostPort(dc.Host, strconv.Itoa(dc.Port))
}

func (conf *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(conf.defaultFromEmail)
	if err != nil {
		return mail.Address{Name: conf.AppName, Address: conf.defaultFromEmail}
	}
	return *addr
}

// NewConfig loads the configuration of the environment named by $ENV.
func NewConfig() *Config {
	return LoadConfig(os.Getenv("ENV"))
}

// LoadConfig reads the configuration for env from defaults, config/.env.<env> and the process environment
// (SANAA_ prefixed, dots replaced by underscores: SANAA_DATABASE_HOST).
func LoadConfig(env string) *Config {
	env = strings.ToUpper(strings.TrimSpace(env))
	if env == "" {
		env = "DEV"
	}

	v := viper.New()
	v.SetTypeByDefaultValue(true)
	setDefaults(v, env)

	v.SetEnvPrefix("sanaa")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	workDir := os.Getenv("SANAA_WORKDIR")
	if workDir == "" {
		wd, err := os.Getwd()
		if err != nil {
			log.Fatalf("config.os.Getwd(): %v", err)
		}
		workDir = wd
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		AppName:          v.GetString("appName"),
		Env:              env,
		Build:            v.GetString("build"),
		Debug:            v.GetBool("debug"),
		TestMode:         v.GetBool("testMode"),
		SecretKey:        v.GetString("secretKey"),
		FrontendBaseURL:  strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		WorkDir:          workDir,
		RollbarToken:     v.GetString("rollbarToken"),
		SendgridApiKey:   v.GetString("sendgridApiKey"),
		defaultFromEmail: v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Host:                      v.GetString("server.host"),
			DebugHost:                 v.GetString("server.debugHost"),
			ShutdownTimeout:           v.GetDuration("server.shutdownTimeout"),
			JWTExpirationDelta:        v.GetDuration("server.jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server.jwtRefreshExpirationDelta"),
			CORSOrigins:               splitList(v.GetString("server.corsOrigins")),
			BodyLimit:                 v.GetString("server.bodyLimit"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			Host:          v.GetString("database.host"),
			Port:          v.GetInt("database.port"),
			Name:          v.GetString("database.name"),
			DisableTLS:    v.GetBool("database.disableTLS"),
			Path:          v.GetString("database.path"),
		},
		Storage: StorageConfig{
			Backend:            v.GetString("storage.backend"),
			LocalDir:           v.GetString("storage.localDir"),
			PublicURL:          strings.TrimRight(v.GetString("storage.publicURL"), "/"),
			GCSBucket:          v.GetString("storage.gcsBucket"),
			GCSCredentialsFile: v.GetString("storage.gcsCredentialsFile"),
		},
		RateLimit: RateLimitConfig{
			Limit:  v.GetInt("rateLimit.limit"),
			Window: v.GetDuration("rateLimit.window"),
		},
		Telemetry: TelemetryConfig{
			Enabled:  v.GetBool("telemetry.enabled"),
			Endpoint: v.GetString("telemetry.endpoint"),
		},
	}
	if !filepath.IsAbs(conf.Storage.LocalDir) {
		conf.Storage.LocalDir = filepath.Join(workDir, conf.Storage.LocalDir)
	}
	return conf
}

func setDefaults(v *viper.Viper, env string) {
	isDev := env == "DEV"
	isTest := env == "TEST"

	v.SetDefault("appName", "Sanaa")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", isDev)
	v.SetDefault("testMode", isTest)
	v.SetDefault("secretKey", "x7#kq2!v$9m@pz0r^w4t&hb6(jn8e)c1-ls5_fd3+ga=uy")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Sanaa <noreply@localhost>")

	v.SetDefault("server.host", "0.0.0.0:8000")
	v.SetDefault("server.debugHost", "0.0.0.0:4000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("server.corsOrigins", "http://localhost:3000")
	v.SetDefault("server.bodyLimit", "6M")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.user", "sanaa")
	v.SetDefault("database.password", "sanaa")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", fmt.Sprintf("sanaa_%s", strings.ToLower(env)))
	v.SetDefault("database.disableTLS", isDev || isTest)
	v.SetDefault("database.path", filepath.Join("data", "sanaa.db"))

	v.SetDefault("storage.backend", "local")
	v.SetDefault("storage.localDir", "media")
	v.SetDefault("storage.publicURL", "http://localhost:8000/media")

	v.SetDefault("rateLimit.limit", 5)
	v.SetDefault("rateLimit.window", 24*time.Hour)

	v.SetDefault("telemetry.enabled", true)
}

func splitList(s string) []string {
	var items []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

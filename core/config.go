package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug    bool
		TestMode bool
		Env      string // DEV (default) | TEST | QA | PROD
		AppName  string
		Build    string

		Server struct {
			Host            string
			Addr            string
			DebugAddr       string
			ShutdownTimeout time.Duration
		}

		Tenants TenantsConfig

		RollbarToken string

		Accounts struct {
			BaseURL string
			APIKey  string
			Domain  string // email domain for generated account addresses
		}
	}

	// TenantsConfig maps the fixed set of school codes to their data-source
	// connection strings. Default names the code used when a request carries
	// no marker (or an unknown one).
	TenantsConfig struct {
		Default string
		DSNs    map[string]string
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Shule")
	v.SetDefault("build", "dev")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddr", ":8000")
	v.SetDefault("serverDebugAddr", ":8001")
	v.SetDefault("shutdownTimeout", 5*time.Second)
	v.SetDefault("defaultTenant", "forqan")
	v.SetDefault("accountsBaseURL", "https://api.clerk.dev/v1")
	v.SetDefault("accountsDomain", "shule.local")

	env := os.Getenv("ENV")
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:        v.GetBool("debug"),
		TestMode:     env == "TEST",
		Env:          env,
		AppName:      v.GetString("appName"),
		Build:        v.GetString("build"),
		RollbarToken: v.GetString("rollbarToken"),
	}
	conf.Server.Host = v.GetString("serverHost")
	conf.Server.Addr = v.GetString("serverAddr")
	conf.Server.DebugAddr = v.GetString("serverDebugAddr")
	conf.Server.ShutdownTimeout = v.GetDuration("shutdownTimeout")
	conf.Accounts.BaseURL = v.GetString("accountsBaseURL")
	conf.Accounts.APIKey = v.GetString("accountsAPIKey")
	conf.Accounts.Domain = v.GetString("accountsDomain")
	conf.Tenants = loadTenants(v.GetString("defaultTenant"))
	return conf
}

// loadTenants builds the tenant→DSN map from the environment: DATABASE_URL is
// the default tenant's data source and every DATABASE_URL_<CODE> adds a tenant
// under the lower-cased code.
func loadTenants(defaultCode string) TenantsConfig {
	tc := TenantsConfig{
		Default: defaultCode,
		DSNs:    make(map[string]string),
	}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		tc.DSNs[defaultCode] = dsn
	}
	const prefix = "DATABASE_URL_"
	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(kv, prefix), "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			continue
		}
		tc.DSNs[strings.ToLower(parts[0])] = parts[1]
	}
	return tc
}

func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatalf("config.os.Getwd: %v", err)
	}
	return wd
}

package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		AppName         string
		Env             string // DEV (default) | TEST | QA | PROD
		Build           string
		Debug           bool
		TestMode        bool
		WorkDir         string
		SecretKey       string
		FrontendBaseURL string
		RollbarToken    string
		SendgridApiKey  string

		DefaultFromName string
		DefaultFromAddr string

		// StrictAccess enforces ownership on complaint reads and assignment
		// on staff updates. Disable to mirror the legacy permissive API.
		StrictAccess bool

		Admin    AdminConfig
		Server   ServerConfig
		Database DatabaseConfig
		Uploads  UploadsConfig
	}

	// AdminConfig is the single process-wide admin identity.
	// The admin is never a stored user; it only materializes at login time.
	AdminConfig struct {
		Email    string
		Password string
	}

	ServerConfig struct {
		Host                      string
		Port                      int
		DebugHost                 string
		ShutdownTimeout           time.Duration
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
	}

	DatabaseConfig struct {
		Engine        string // postgres | dummy
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          int
		DisableTLS    bool
	}

	UploadsConfig struct {
		Dir     string
		BaseURL string
	}
)

func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("appName", "Lalamika")
	v.SetDefault("build", "develop")
	v.SetDefault("debug", true)
	v.SetDefault("secretKey", "w3sh-p0a5(dk#&yts^untdw=$u+5y1ot*d&qn(x5%ow2d5#rl0")
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromName", "Lalamika")
	v.SetDefault("defaultFromAddr", "noreply@localhost")
	v.SetDefault("strictAccess", true)
	v.SetDefault("admin.email", "")
	v.SetDefault("admin.password", "")
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8000)
	v.SetDefault("server.debugHost", "0.0.0.0:9000")
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.jwtExpirationDelta", 1*time.Hour)
	v.SetDefault("server.jwtRefreshExpirationDelta", 4*time.Hour)
	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.name", "lalamika")
	v.SetDefault("database.user", "")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.disableTLS", true)
	v.SetDefault("uploads.dir", "uploads")
	v.SetDefault("uploads.baseURL", "/uploads")

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	conf := &Config{
		Env:     env,
		WorkDir: wd,
	}
	if err := v.Unmarshal(conf); err != nil {
		log.Fatalf("config.viper.Unmarshal: %v", err)
	}

	switch env {
	case "TEST":
		conf.TestMode = true
	case "QA", "PROD":
		conf.Debug = false
	}
	return conf
}

func (c *Config) DefaultFromEmail() mail.Address {
	return mail.Address{Name: c.DefaultFromName, Address: c.DefaultFromAddr}
}

func (sc ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", sc.Host, sc.Port)
}

func (dc DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%d", dc.Host, dc.Port)
}

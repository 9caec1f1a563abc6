package core

import (
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	ServerConfig struct {
		Host            string
		Address         string
		DebugAddress    string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration

		SessionCookieName string
		SessionTTL        time.Duration
		SecureCookie      bool
	}

	DatabaseConfig struct {
		Engine        string // postgres | sqlite3
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
	}

	RedisConfig struct {
		Address  string // empty: sessions are kept in memory
		Password string
		DB       int
	}

	CaptchaConfig struct {
		Enabled   bool
		SecretKey string
		VerifyURL string
		Timeout   time.Duration
	}

	Config struct {
		Env      string
		Build    string
		AppName  string
		Debug    bool
		TestMode bool
		WorkDir  string

		SecretKey                 string
		PasswordResetTimeoutDelta time.Duration

		FrontendBaseURL  string
		DefaultFromEmail mail.Address
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Redis    RedisConfig
		Captcha  CaptchaConfig
	}
)

func (dbc DatabaseConfig) Address() string {
	return net.JoinHostPort(dbc.Host, dbc.Port)
}

// NewConfig loads the configuration from the environment.
// ENV selects the environment (DEV (default), TEST, QA, PROD); its value is also the prefix of every variable,
// eg. DEV_DATABASE_HOST. config/.env.<env> is loaded first if it exists.
func NewConfig() *Config {
	v := viper.New()

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	setDefaults(v, env)

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(Getwd(), "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:      env,
		Build:    v.GetString("build"),
		AppName:  v.GetString("appName"),
		Debug:    v.GetBool("debug"),
		TestMode: v.GetBool("testMode"),
		WorkDir:  v.GetString("workDir"),

		SecretKey:                 v.GetString("secretKey"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),

		FrontendBaseURL: v.GetString("frontendBaseURL"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("defaultFromEmail.name"),
			Address: v.GetString("defaultFromEmail.address"),
		},
		SendgridApiKey: v.GetString("sendgridApiKey"),
		RollbarToken:   v.GetString("rollbarToken"),

		Server: ServerConfig{
			Host:              v.GetString("server.host"),
			Address:           v.GetString("server.address"),
			DebugAddress:      v.GetString("server.debugAddress"),
			ReadTimeout:       v.GetDuration("server.readTimeout"),
			WriteTimeout:      v.GetDuration("server.writeTimeout"),
			ShutdownTimeout:   v.GetDuration("server.shutdownTimeout"),
			SessionCookieName: v.GetString("server.sessionCookieName"),
			SessionTTL:        v.GetDuration("server.sessionTTL"),
			SecureCookie:      v.GetBool("server.secureCookie"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database.engine"),
			Host:          v.GetString("database.host"),
			Port:          v.GetString("database.port"),
			Name:          v.GetString("database.name"),
			User:          v.GetString("database.user"),
			Password:      v.GetString("database.password"),
			AdminUser:     v.GetString("database.adminUser"),
			AdminPassword: v.GetString("database.adminPassword"),
			DisableTLS:    v.GetBool("database.disableTLS"),
		},
		Redis: RedisConfig{
			Address:  v.GetString("redis.address"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		Captcha: CaptchaConfig{
			Enabled:   v.GetBool("captcha.enabled"),
			SecretKey: v.GetString("captcha.secretKey"),
			VerifyURL: v.GetString("captcha.verifyURL"),
			Timeout:   v.GetDuration("captcha.timeout"),
		},
	}
}

func setDefaults(v *viper.Viper, env string) {
	v.SetTypeByDefaultValue(true)

	v.SetDefault("build", "develop")
	v.SetDefault("appName", "Academia")
	v.SetDefault("debug", env == "DEV")
	v.SetDefault("testMode", env == "TEST")
	v.SetDefault("workDir", Getwd())
	v.SetDefault("secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("defaultFromEmail.name", "Academia")
	v.SetDefault("defaultFromEmail.address", "noreply@localhost")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.address", ":8000")
	v.SetDefault("server.debugAddress", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 5*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.sessionCookieName", "sessionid")
	v.SetDefault("server.sessionTTL", 14*24*time.Hour)
	v.SetDefault("server.secureCookie", env == "PROD")

	v.SetDefault("database.engine", "postgres")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "academia")
	v.SetDefault("database.user", "academia")
	v.SetDefault("database.password", "")
	v.SetDefault("database.adminUser", "postgres")
	v.SetDefault("database.adminPassword", "")
	v.SetDefault("database.disableTLS", env != "PROD")

	v.SetDefault("redis.address", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("captcha.enabled", env == "PROD" || env == "QA")
	v.SetDefault("captcha.secretKey", "")
	v.SetDefault("captcha.verifyURL", "https://www.google.com/recaptcha/api/siteverify")
	v.SetDefault("captcha.timeout", 5*time.Second)
}

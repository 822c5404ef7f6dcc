package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	httpapi "github.com/simpledough/dough-manager/internal/api/http"
	"github.com/simpledough/dough-manager/internal/apisrv/auth"
	"github.com/simpledough/dough-manager/internal/bucket"
	"github.com/simpledough/dough-manager/internal/mail"
	"github.com/simpledough/dough-manager/internal/ordercleanup"
	"github.com/simpledough/dough-manager/internal/reviews"
	"github.com/simpledough/dough-manager/internal/store"
	"github.com/simpledough/dough-manager/log"
	"github.com/spf13/viper"
)

// Config represents the global configuration for the service.
type Config struct {
	DB                    store.Config        `mapstructure:"mysql"`
	Logger                log.Config          `mapstructure:"logger"`
	HTTP                  httpapi.Config      `mapstructure:"http"`
	Auth                  auth.Config         `mapstructure:"auth"`
	Bucket                bucket.Config       `mapstructure:"bucket"`
	Mailer                mail.Config         `mapstructure:"mailer"`
	Reviews               reviews.Config      `mapstructure:"reviews"`
	OrderCleanup          ordercleanup.Config `mapstructure:"order_cleanup"`
	ReportRefreshInterval time.Duration       `mapstructure:"report_refresh_interval"`
}

// LoadConfig loads the configuration from a file and/or environment
// variables. Environment variables take precedence over config file values.
func LoadConfig(cfgFile string) (*Config, error) {
	viper.SetConfigType("toml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__", "-", "__"))

	bindEnvVars()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %v", err)
			}
		}
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("$HOME/config/dough-manager")
		viper.AddConfigPath("/etc/dough-manager")
		_ = viper.ReadInConfig()
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config into struct: %v", err)
	}

	// Construct the DSN from individual env vars if it is not set directly.
	if config.DB.DSN == "" {
		host := os.Getenv("MYSQL_HOST")
		if host != "" {
			port := os.Getenv("MYSQL_PORT")
			if port == "" {
				port = "3306"
			}
			user := os.Getenv("MYSQL_USER")
			password := os.Getenv("MYSQL_PASSWORD")
			database := os.Getenv("MYSQL_DATABASE")
			if user != "" && password != "" && database != "" {
				config.DB.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8&parseTime=true",
					user, password, host, port, database)
			}
		}
	}

	return &config, nil
}

// bindEnvVars binds environment variables to config keys.
func bindEnvVars() {
	// MySQL
	viper.BindEnv("mysql.dsn", "MYSQL_DSN")
	viper.BindEnv("mysql.automigrate", "MYSQL_AUTOMIGRATE")
	viper.BindEnv("mysql.max_open_connections", "MYSQL_MAX_OPEN_CONNECTIONS")
	viper.BindEnv("mysql.max_idle_connections", "MYSQL_MAX_IDLE_CONNECTIONS")
	viper.BindEnv("mysql.tls_ca_path", "MYSQL_TLS_CA_PATH")

	// Logger
	viper.BindEnv("logger.level", "LOG_LEVEL")
	viper.BindEnv("logger.add_source", "LOG_ADD_SOURCE")

	// HTTP
	viper.BindEnv("http.port", "HTTP_PORT")
	viper.BindEnv("http.address", "HTTP_ADDRESS")
	viper.BindEnv("http.allowed_origins", "HTTP_ALLOWED_ORIGINS")

	// Auth
	viper.BindEnv("auth.jwtSecret", "AUTH_JWT_SECRET")
	viper.BindEnv("auth.masterPassword", "AUTH_MASTER_PASSWORD")
	viper.BindEnv("auth.passwordHasherSaltSize", "AUTH_PASSWORD_HASHER_SALT_SIZE")
	viper.BindEnv("auth.jwtttl", "AUTH_JWT_TTL")

	// Bucket
	viper.BindEnv("bucket.s3AccessKey", "BUCKET_S3_ACCESS_KEY")
	viper.BindEnv("bucket.s3SecretAccessKey", "BUCKET_S3_SECRET_ACCESS_KEY")
	viper.BindEnv("bucket.s3Endpoint", "BUCKET_S3_ENDPOINT")
	viper.BindEnv("bucket.s3BucketName", "BUCKET_S3_BUCKET_NAME")
	viper.BindEnv("bucket.s3BucketLocation", "BUCKET_S3_BUCKET_LOCATION")
	viper.BindEnv("bucket.baseFolder", "BUCKET_BASE_FOLDER")

	// Mailer
	viper.BindEnv("mailer.sendgrid_api_key", "MAILER_SENDGRID_API_KEY")
	viper.BindEnv("mailer.from_email", "MAILER_FROM_EMAIL")
	viper.BindEnv("mailer.from_email_name", "MAILER_FROM_EMAIL_NAME")
	viper.BindEnv("mailer.worker_interval", "MAILER_WORKER_INTERVAL")

	// Reviews
	viper.BindEnv("reviews.fallback_path", "REVIEWS_FALLBACK_PATH")

	// Order cleanup
	viper.BindEnv("order_cleanup.worker_interval", "ORDER_CLEANUP_WORKER_INTERVAL")
	viper.BindEnv("order_cleanup.pending_threshold", "ORDER_CLEANUP_PENDING_THRESHOLD")

	// Reporting
	viper.BindEnv("report_refresh_interval", "REPORT_REFRESH_INTERVAL")
}

// Package config loads the process configuration from defaults, command
// line flags and the environment (in that order of precedence), and
// validates the resulting values.
package config

import (
	"flag"
	"log"
	"os"
	"time"

	env "github.com/caarlos0/env/v6"
	validator "github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds every tunable of the service.
type Config struct {
	// RunAddr is the address and port the HTTP server listens on.
	RunAddr string `env:"SERVER_ADDRESS" validate:"hostname_port"`

	// LogLevel is the zap logging level.
	LogLevel string `env:"LOG_LEVEL" validate:"loglevel"`

	// DBFileName selects the JSON file storage backend when non-empty.
	DBFileName string `env:"FILE_STORAGE_PATH" validate:"filepath"`

	// DatabaseDSN selects the PostgreSQL backend when non-empty.
	DatabaseDSN string `env:"DATABASE_DSN"`

	// DBConnectionTimeout bounds the storage health check.
	DBConnectionTimeout time.Duration `env:"DB_CONNECTION_TIMEOUT"`

	// MigrationsDir is where goose looks for the schema migrations.
	MigrationsDir string `env:"MIGRATIONS_DIR"`

	// TokenSigningSecretKey is the base64url-encoded process-wide key
	// used to sign access tokens.
	TokenSigningSecretKey string `env:"TOKEN_SECRET_KEY" validate:"required,base64url"`

	// TokenTTL is the lifetime of an issued access token.
	TokenTTL time.Duration `env:"TOKEN_TTL"`

	// TrustedSubnet is the CIDR allowed to call the internal stats
	// endpoint. The endpoint is disabled when empty.
	TrustedSubnet string `env:"TRUSTED_SUBNET" validate:"omitempty,cidr"`
}

// defaultConfig holds the values used when neither flags nor
// environment override them. The default signing key is for local
// development only.
var defaultConfig = Config{
	RunAddr:               ":8080",
	LogLevel:              "info",
	DBFileName:            "",
	DatabaseDSN:           "",
	DBConnectionTimeout:   10 * time.Second,
	MigrationsDir:         "migrations",
	TokenSigningSecretKey: "ZGV2ZWxvcG1lbnQtb25seS1zZWNyZXQ=",
	TokenTTL:              86400 * time.Second,
	TrustedSubnet:         "",
}

func validateFilePath(fieldLevel validator.FieldLevel) bool {
	path := fieldLevel.Field().String()
	_, err := os.Stat(path)

	return err == nil || os.IsNotExist(err)
}

func validateLogLevel(fieldLevel validator.FieldLevel) bool {
	value := fieldLevel.Field().String()

	allowedLogLevels := map[string]bool{
		"debug":   true,
		"info":    true,
		"warning": true,
		"error":   true,
		"fatal":   true,
	}

	return allowedLogLevels[value]
}

func (values *Config) validate() error {
	validate := validator.New()

	err := validate.RegisterValidation("loglevel", validateLogLevel)
	if err != nil {
		return err
	}

	err = validate.RegisterValidation("filepath", validateFilePath)
	if err != nil {
		return err
	}

	return validate.Struct(values)
}

func applyDefaults(values *Config, defaults Config) {
	*values = defaults
}

// InitOption defines a functional option for configuring the loading process.
type InitOption func(*initOptions)

type initOptions struct {
	disableFlagsParsing bool
}

// WithDisableFlagsParsing disables command line flag parsing; used by
// tests where the test binary owns the flag set.
func WithDisableFlagsParsing(disableFlagsParsing bool) InitOption {
	return func(options *initOptions) {
		options.disableFlagsParsing = disableFlagsParsing
	}
}

// New loads, merges and validates the configuration.
func New(optionsProto ...InitOption) (*Config, error) {
	options := &initOptions{
		disableFlagsParsing: false,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	err := godotenv.Load()
	if err != nil {
		log.Printf("Unable to load .env file: %v", err)
	}

	values := &Config{}
	applyDefaults(values, defaultConfig)

	if !options.disableFlagsParsing {
		flag.StringVar(&values.RunAddr, "a", values.RunAddr, "address and port to run server")
		flag.StringVar(&values.LogLevel, "l", values.LogLevel, "logger level")
		flag.StringVar(&values.DBFileName, "f", values.DBFileName, "JSON file name with database")
		flag.StringVar(&values.DatabaseDSN, "d", values.DatabaseDSN, "A string with the database connection details")
		flag.StringVar(&values.MigrationsDir, "m", values.MigrationsDir, "directory with the goose schema migrations")
		flag.StringVar(&values.TrustedSubnet, "t", values.TrustedSubnet, "CIDR of the subnet allowed to query internal stats")
		flag.Parse()
	}

	var valuesFromEnv Config
	err = env.Parse(&valuesFromEnv)
	if err != nil {
		return nil, err
	}

	if valuesFromEnv.RunAddr != "" {
		values.RunAddr = valuesFromEnv.RunAddr
	}

	if valuesFromEnv.LogLevel != "" {
		values.LogLevel = valuesFromEnv.LogLevel
	}

	if valuesFromEnv.DBFileName != "" {
		values.DBFileName = valuesFromEnv.DBFileName
	}

	if valuesFromEnv.DatabaseDSN != "" {
		values.DatabaseDSN = valuesFromEnv.DatabaseDSN
	}

	if valuesFromEnv.DBConnectionTimeout != 0 {
		values.DBConnectionTimeout = valuesFromEnv.DBConnectionTimeout
	}

	if valuesFromEnv.MigrationsDir != "" {
		values.MigrationsDir = valuesFromEnv.MigrationsDir
	}

	if valuesFromEnv.TokenSigningSecretKey != "" {
		values.TokenSigningSecretKey = valuesFromEnv.TokenSigningSecretKey
	}

	if valuesFromEnv.TokenTTL != 0 {
		values.TokenTTL = valuesFromEnv.TokenTTL
	}

	if valuesFromEnv.TrustedSubnet != "" {
		values.TrustedSubnet = valuesFromEnv.TrustedSubnet
	}

	if err := values.validate(); err != nil {
		return nil, err
	}

	return values, nil
}

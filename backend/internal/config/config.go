package config

import (
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"smartfarm-backend/backend/pkg/dialect"
)

type EnvKey string

const (
	EnvPort      EnvKey = "PORT"
	EnvDataDir   EnvKey = "DATA_DIR"
	EnvLogLevel  EnvKey = "LOG_LEVEL"
	EnvLogToFile EnvKey = "LOG_TO_FILE"

	EnvDBDialect EnvKey = "DB_DIALECT"
	EnvDBHost    EnvKey = "DB_HOST"
	EnvDBPort    EnvKey = "DB_PORT"
	EnvDBName    EnvKey = "DB_NAME"
	EnvDBUser    EnvKey = "DB_USER"
	EnvDBPass    EnvKey = "DB_PASSWORD"
	EnvDBSSLMode EnvKey = "DB_SSLMODE"

	EnvMQTTEmbeddedBroker EnvKey = "MQTT_EMBEDDED_BROKER"
	EnvMQTTBrokerPort     EnvKey = "MQTT_SERVER_PORT"

	EnvMQTTBroker      EnvKey = "MQTT_BROKER"
	EnvMQTTClientID    EnvKey = "MQTT_CLIENT_ID"
	EnvMQTTUsername    EnvKey = "MQTT_USERNAME"
	EnvMQTTPassword    EnvKey = "MQTT_PASSWORD"
	EnvMQTTTopicPrefix EnvKey = "MQTT_TOPIC_PREFIX"

	EnvAutoControlMode   EnvKey = "AUTO_CONTROL_MODE"
	EnvServoFeedRepeatMS EnvKey = "SERVO_FEED_REPEAT_MS"

	EnvJWTSecret    EnvKey = "JWT_SECRET"
	EnvJWTAccessTTL EnvKey = "JWT_ACCESS_TTL"

	EnvRateLimitRPS   EnvKey = "RATE_LIMIT_RPS"
	EnvRateLimitBurst EnvKey = "RATE_LIMIT_BURST"
)

// AutoControlMode selects where closed-loop threshold control runs.
type AutoControlMode string

const (
	// AutoControlESP32 delegates closed-loop control to the device firmware;
	// the backend only evaluates thresholds for alerting.
	AutoControlESP32 AutoControlMode = "esp32"
	// AutoControlBackend makes the backend issue actuator commands on
	// threshold breach/recovery.
	AutoControlBackend AutoControlMode = "backend"
)

// ServoFeedRepeatFloor is the minimum allowed feeder repeat interval. The
// firmware feed cycle is ~4s; anything tighter piles up commands.
const ServoFeedRepeatFloor = 4500 * time.Millisecond

type Config struct {
	Port      int
	DataDir   string
	Database  string
	Dialect   dialect.Dialect
	LogLevel  slog.Leveler
	LogOutput io.Writer

	// Embedded MQTT broker
	MQTTEmbeddedBroker bool
	MQTTBrokerPort     int

	// MQTT client
	MQTTBroker      string
	MQTTClientID    string
	MQTTUsername    string
	MQTTPassword    string
	MQTTTopicPrefix string

	// Automation
	AutoControlMode AutoControlMode
	ServoFeedRepeat time.Duration

	// Auth
	JWTSecret    string
	JWTAccessTTL time.Duration

	// Rate limiting
	RateLimitRPS   float64
	RateLimitBurst int
}

func New() (*Config, error) {
	dataDir := getStringEnv(EnvDataDir, "data")

	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	logPath := filepath.Join(dataDir, "app.log")

	var logOutput io.Writer = os.Stdout

	if getBoolEnv(EnvLogToFile, false) {
		f, err := os.OpenFile(logPath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}

		logOutput = f
	}

	dbDialect := dialect.Dialect(getStringEnv(EnvDBDialect, dialect.SQLite.String()))
	if err := dbDialect.Validate(); err != nil {
		return nil, fmt.Errorf("invalid database dialect: %w", err)
	}

	var dbConnString string

	switch dbDialect {
	case dialect.SQLite:
		dbConnString = filepath.Join(dataDir, "database.sqlite")
	case dialect.PostgreSQL:
		host := getStringEnv(EnvDBHost, "localhost")
		port := getIntEnv(EnvDBPort, 5432)
		dbName := getStringEnv(EnvDBName, "smartfarm")
		user := getStringEnv(EnvDBUser, "smartfarm")
		password := getStringEnv(EnvDBPass, "")
		sslmode := getStringEnv(EnvDBSSLMode, "disable")

		dbConnString = fmt.Sprintf(
			"postgresql://%s:%s@%s/%s?sslmode=%s",
			url.QueryEscape(user),
			url.QueryEscape(password),
			net.JoinHostPort(host, strconv.Itoa(port)),
			dbName, sslmode,
		)
	default:
		return nil, fmt.Errorf("unsupported dialect: %s", dbDialect)
	}

	autoControl := AutoControlMode(strings.ToLower(getStringEnv(EnvAutoControlMode, string(AutoControlESP32))))
	if autoControl != AutoControlESP32 && autoControl != AutoControlBackend {
		return nil, fmt.Errorf("invalid auto-control mode: %s", autoControl)
	}

	jwtSecret := getStringEnv(EnvJWTSecret, "")
	if jwtSecret == "" {
		return nil, fmt.Errorf("%s is required", EnvJWTSecret)
	}

	feedRepeat := time.Duration(getIntEnv(EnvServoFeedRepeatMS, 5000)) * time.Millisecond
	if feedRepeat < ServoFeedRepeatFloor {
		feedRepeat = ServoFeedRepeatFloor
	}

	return &Config{
		Port:               getIntEnv(EnvPort, 8080),
		DataDir:            dataDir,
		Database:           dbConnString,
		Dialect:            dbDialect,
		LogLevel:           getLogLevelEnv(EnvLogLevel, slog.LevelInfo),
		LogOutput:          logOutput,
		MQTTEmbeddedBroker: getBoolEnv(EnvMQTTEmbeddedBroker, false),
		MQTTBrokerPort:     getIntEnv(EnvMQTTBrokerPort, 1883),
		MQTTBroker:         getStringEnv(EnvMQTTBroker, "tcp://127.0.0.1:1883"),
		MQTTClientID:       getStringEnv(EnvMQTTClientID, "smartfarm-backend"),
		MQTTUsername:       getStringEnv(EnvMQTTUsername, ""),
		MQTTPassword:       getStringEnv(EnvMQTTPassword, ""),
		MQTTTopicPrefix:    getStringEnv(EnvMQTTTopicPrefix, "farm"),
		AutoControlMode:    autoControl,
		ServoFeedRepeat:    feedRepeat,
		JWTSecret:          jwtSecret,
		JWTAccessTTL:       getDurationEnv(EnvJWTAccessTTL, 15*time.Minute),
		RateLimitRPS:       getFloatEnv(EnvRateLimitRPS, 10),
		RateLimitBurst:     getIntEnv(EnvRateLimitBurst, 20),
	}, nil
}

// MigratorURL returns the database URL in the form dbmate expects.
func (c *Config) MigratorURL() string {
	if c.Dialect == dialect.SQLite {
		return "sqlite:" + c.Database
	}

	return c.Database
}

func (c *Config) Close() error {
	if f, ok := c.LogOutput.(*os.File); ok {
		if f != os.Stdout && f != os.Stderr {
			return f.Close()
		}
	}

	return nil
}

func getStringEnv(key EnvKey, defaultVal string) string {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	return val
}

func getBoolEnv(key EnvKey, defaultVal bool) bool {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	switch strings.ToLower(val) {
	case "true", "1":
		return true
	default:
		return false
	}
}

func getIntEnv(key EnvKey, defaultVal int) int {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	if intVal, err := strconv.Atoi(val); err == nil {
		return intVal
	}

	return defaultVal
}

func getFloatEnv(key EnvKey, defaultVal float64) float64 {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	if floatVal, err := strconv.ParseFloat(val, 64); err == nil {
		return floatVal
	}

	return defaultVal
}

func getDurationEnv(key EnvKey, defaultVal time.Duration) time.Duration {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	if d, err := time.ParseDuration(val); err == nil {
		return d
	}

	return defaultVal
}

func getLogLevelEnv(key EnvKey, defaultVal slog.Leveler) slog.Leveler {
	val, exists := os.LookupEnv(string(key))
	if !exists {
		return defaultVal
	}

	switch strings.ToUpper(val) {
	case "DEBUG":
		return slog.LevelDebug
	case "INFO":
		return slog.LevelInfo
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	}

	return defaultVal
}

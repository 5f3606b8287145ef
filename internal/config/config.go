package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Storage   StorageConfig
	JWT       JWTConfig
	WebSocket WebSocketConfig
	CORS      CORSConfig
	Logging   LoggingConfig
	Branches  BranchConfig
	Catalog   CatalogConfig
	Backup    BackupConfig
}

type ServerConfig struct {
	Port string
	Host string
	Env  string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	Name           string
	AutoCreate     bool
	ReconnectDelay time.Duration
}

// URL is the CouchDB endpoint with credentials.
func (d DatabaseConfig) URL() string {
	return fmt.Sprintf("http://%s:%s@%s:%s", d.User, d.Password, d.Host, d.Port)
}

type StorageConfig struct {
	// Driver selects the document store: "couch" or "memory".
	Driver        string
	PublicBaseURL string
	MaxUploadSize int64
}

type JWTConfig struct {
	Secret                 string
	Expiration             time.Duration
	RefreshTokenExpiration time.Duration
}

type WebSocketConfig struct {
	ReadBufferSize   int
	WriteBufferSize  int
	MaxMessageSize   int64
	WriteWait        time.Duration
	PongWait         time.Duration
	PingPeriod       time.Duration
	MaxConnPerDevice int
}

type CORSConfig struct {
	AllowedOrigins string
	AllowedMethods string
	AllowedHeaders string
}

type LoggingConfig struct {
	Level string
}

type BranchConfig struct {
	Names    []string
	Default  string
	Location *time.Location
}

type CatalogConfig struct {
	StockSource string
}

type BackupConfig struct {
	// PassphraseHash is a bcrypt hash; empty disables the check.
	PassphraseHash string
}

func Load() (*Config, error) {
	godotenv.Load()

	jwtExp, err := time.ParseDuration(getEnv("JWT_EXPIRATION", "12h"))
	if err != nil {
		return nil, fmt.Errorf("invalid JWT_EXPIRATION: %w", err)
	}

	refreshExp, err := time.ParseDuration(getEnv("REFRESH_TOKEN_EXPIRATION", "720h"))
	if err != nil {
		return nil, fmt.Errorf("invalid REFRESH_TOKEN_EXPIRATION: %w", err)
	}

	reconnect, err := time.ParseDuration(getEnv("DB_RECONNECT_DELAY", "5s"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_RECONNECT_DELAY: %w", err)
	}

	location, err := time.LoadLocation(getEnv("TIMEZONE", "Local"))
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE: %w", err)
	}

	branches := getEnvAsList("BRANCHES", []string{"centro", "ejemplares"})
	defaultBranch := getEnv("DEFAULT_BRANCH", branches[0])
	if !contains(branches, defaultBranch) {
		return nil, fmt.Errorf("DEFAULT_BRANCH %q is not one of BRANCHES", defaultBranch)
	}

	driver := getEnv("STORAGE_DRIVER", "couch")
	if driver != "couch" && driver != "memory" {
		return nil, fmt.Errorf("invalid STORAGE_DRIVER %q", driver)
	}

	port := getEnv("PORT", "8080")

	return &Config{
		Server: ServerConfig{
			Port: port,
			Host: getEnv("HOST", "0.0.0.0"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5984"),
			User:           getEnv("DB_USER", "admin"),
			Password:       getEnv("DB_PASSWORD", "password"),
			Name:           getEnv("DB_NAME", "branchdesk"),
			AutoCreate:     getEnvAsBool("DB_AUTO_CREATE", true),
			ReconnectDelay: reconnect,
		},
		Storage: StorageConfig{
			Driver:        driver,
			PublicBaseURL: strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
			MaxUploadSize: int64(getEnvAsInt("MAX_UPLOAD_SIZE", 10<<20)),
		},
		JWT: JWTConfig{
			Secret:                 getEnv("JWT_SECRET", "dev-secret-change-in-production"),
			Expiration:             jwtExp,
			RefreshTokenExpiration: refreshExp,
		},
		WebSocket: WebSocketConfig{
			ReadBufferSize:   getEnvAsInt("WS_READ_BUFFER_SIZE", 4096),
			WriteBufferSize:  getEnvAsInt("WS_WRITE_BUFFER_SIZE", 4096),
			MaxMessageSize:   int64(getEnvAsInt("WS_MAX_MESSAGE_SIZE", 65536)),
			WriteWait:        10 * time.Second,
			PongWait:         60 * time.Second,
			PingPeriod:       54 * time.Second,
			MaxConnPerDevice: getEnvAsInt("WS_MAX_CONN_PER_DEVICE", 5),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
			AllowedMethods: getEnv("CORS_ALLOWED_METHODS", "GET,POST,PUT,PATCH,DELETE,OPTIONS"),
			AllowedHeaders: getEnv("CORS_ALLOWED_HEADERS", "Content-Type,Authorization,X-Backup-Passphrase"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Branches: BranchConfig{
			Names:    branches,
			Default:  defaultBranch,
			Location: location,
		},
		Catalog: CatalogConfig{
			StockSource: getEnv("STOCK_SOURCE", "./stock.json"),
		},
		Backup: BackupConfig{
			PassphraseHash: getEnv("BACKUP_PASSPHRASE_HASH", ""),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	var values []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			values = append(values, part)
		}
	}
	if len(values) == 0 {
		return defaultValue
	}
	return values
}

func contains(values []string, value string) bool {
	for _, v := range values {
		if v == value {
			return true
		}
	}
	return false
}

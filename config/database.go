package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/joho/godotenv"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

// ControlPlaneStore is the identifier of the shared store that holds
// Company records and everything else that is not tenant data.
const ControlPlaneStore = "default"

const SearchLimit = 10

var (
	db *gorm.DB
)

// GetDB returns the control-plane database handle.
// Tenant data access must go through the router (StoreFor), never this.
func GetDB() *gorm.DB {
	return db
}

func init() {
	// Load env from .env
	godotenv.Load()
	// Do NOT block startup in init() waiting for DB; main connects after
	// the HTTP server is listening.
}

// DatabaseDriver returns the configured backend for all stores
// (control-plane and tenants): "mysql" or "sqlite". Defaults to sqlite,
// which keeps one database file per tenant like the original deployment.
func DatabaseDriver() string {
	d := strings.ToLower(strings.TrimSpace(os.Getenv("DB_DRIVER")))
	switch d {
	case "mysql":
		return "mysql"
	case "", "sqlite", "sqlite3":
		return "sqlite"
	default:
		log.Printf("unknown DB_DRIVER %q, falling back to sqlite", d)
		return "sqlite"
	}
}

// TenantDataDir is where sqlite tenant database files live.
func TenantDataDir() string {
	dir := strings.TrimSpace(os.Getenv("TENANT_DB_DIR"))
	if dir == "" {
		dir = "tenant_databases"
	}
	return dir
}

// ConnectDatabaseWithRetry connects the control-plane store and sets the
// global handle. Call this from main() AFTER the HTTP server is listening.
func ConnectDatabaseWithRetry() {
	var attempt int
	for {
		attempt++
		handle, err := openStore(ControlPlaneStore)
		if err == nil {
			db = handle
			registerHandle(ControlPlaneStore, handle)
			log.Printf("connected to control-plane database (attempt=%d)", attempt)
			return
		}

		sleep := time.Second * time.Duration(1<<minInt(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect database (attempt=%d): %v; retrying in %s", attempt, err, sleep)
		time.Sleep(sleep)
	}
}

// openStore opens one physical store by identifier using the configured
// driver, tunes the pool and installs the otelgorm plugin.
func openStore(storeId string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch DatabaseDriver() {
	case "mysql":
		dialector = mysql.Open(mysqlDSN(mysqlDatabaseName(storeId)))
	default:
		dialector = sqlite.Open(sqlitePath(storeId))
	}

	handle, err := gorm.Open(dialector, initConfig())
	if err != nil {
		return nil, err
	}

	if sqlDB, derr := handle.DB(); derr == nil && sqlDB != nil {
		maxOpen := intFromEnv("DB_MAX_OPEN_CONNS", 50)
		maxIdle := intFromEnv("DB_MAX_IDLE_CONNS", 25)
		connMaxLife := time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second
		connMaxIdle := time.Duration(intFromEnv("DB_CONN_MAX_IDLE_TIME_SECONDS", 60)) * time.Second

		if maxOpen > 0 {
			sqlDB.SetMaxOpenConns(maxOpen)
		}
		if maxIdle >= 0 {
			sqlDB.SetMaxIdleConns(maxIdle)
		}
		if connMaxLife > 0 {
			sqlDB.SetConnMaxLifetime(connMaxLife)
		}
		if connMaxIdle > 0 {
			sqlDB.SetConnMaxIdleTime(connMaxIdle)
		}
	}

	if pluginErr := handle.Use(otelgorm.NewPlugin()); pluginErr != nil {
		log.Printf("store %s connected but failed to install otelgorm plugin: %v", storeId, pluginErr)
	}
	return handle, nil
}

// EnsurePhysicalStore makes sure the physical database behind storeId
// exists. Safe to call concurrently and repeatedly: the second caller
// observes "already exists" and proceeds.
func EnsurePhysicalStore(storeId string) error {
	switch DatabaseDriver() {
	case "mysql":
		server, err := gorm.Open(mysql.Open(mysqlDSN("")), initConfig())
		if err != nil {
			return fmt.Errorf("connect mysql server: %w", err)
		}
		defer func() {
			if sqlDB, derr := server.DB(); derr == nil {
				sqlDB.Close()
			}
		}()
		stmt := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s` CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci", mysqlDatabaseName(storeId))
		return server.Exec(stmt).Error
	default:
		// sqlite creates the file on first open; only the directory must exist
		if storeId == ControlPlaneStore {
			return os.MkdirAll(filepath.Dir(sqlitePath(storeId)), 0o755)
		}
		return os.MkdirAll(TenantDataDir(), 0o755)
	}
}

func mysqlDSN(dbName string) string {
	dbUser := os.Getenv("DB_USER")
	dbPassword := os.Getenv("DB_PASSWORD")
	dbHost := os.Getenv("DB_HOST")
	dbPort := os.Getenv("DB_PORT")

	network := "tcp"
	address := fmt.Sprintf("%s:%s", dbHost, dbPort)

	// Cloud SQL style unix socket host, e.g. DB_HOST=/cloudsql/<CONNECTION_NAME>
	if strings.HasPrefix(dbHost, "/cloudsql/") {
		network = "unix"
		address = dbHost
	}

	return fmt.Sprintf("%s:%s@%s(%s)/%s?multiStatements=true&parseTime=true",
		dbUser,
		dbPassword,
		network,
		address,
		dbName,
	)
}

func mysqlDatabaseName(storeId string) string {
	if storeId == ControlPlaneStore {
		name := strings.TrimSpace(os.Getenv("DB_NAME"))
		if name == "" {
			name = "pharma_master"
		}
		return name
	}
	return storeId
}

func sqlitePath(storeId string) string {
	if storeId == ControlPlaneStore {
		path := strings.TrimSpace(os.Getenv("DB_PATH"))
		if path == "" {
			path = filepath.Join("data", "master.sqlite3")
		}
		return path
	}
	return filepath.Join(TenantDataDir(), storeId+".sqlite3")
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func initConfig() *gorm.Config {
	gormLogLevel := logger.Error
	if strings.EqualFold(strings.TrimSpace(os.Getenv("DB_LOG_QUERIES")), "true") {
		gormLogLevel = logger.Info
	}
	return &gorm.Config{
		Logger: logger.Default.LogMode(gormLogLevel),
		NamingStrategy: schema.NamingStrategy{
			SingularTable: false,
		},
	}
}

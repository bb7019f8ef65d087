// Package config provides application configuration structures and helpers.
package config

import (
	"flag"
	"fmt"
	"log"
	"net"
	"net/url"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Storage drivers understood by the server.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// ServerConfig holds the configuration settings for the server.
type ServerConfig struct {
	Addr            string // Server address
	Logger          *zap.SugaredLogger
	StoreInterval   int    // Interval for dumping the in-memory store to file (in seconds)
	FileStoragePath string // Path to the in-memory store dump
	Restore         bool   // Whether to restore snapshots from file on startup
	DBDriver        string // memory, postgres, mysql or sqlite
	DatabaseDsn     string // Connection string, or file path for sqlite
	DBHost          string
	DBPort          string
	DBName          string
	DBUser          string
	DBPassword      string
}

// NewServerConfig creates and returns a new ServerConfig from defaults, a
// config file, flags and environment variables, in increasing priority.
func NewServerConfig() *ServerConfig {
	loadDotEnv()

	// 0) defaults
	cfg := &ServerConfig{
		Addr:            "0.0.0.0:8000",
		StoreInterval:   300,
		FileStoragePath: "./tmp/snapshots.json",
		Restore:         true,
	}

	// 1) flags
	var fAddr, fFile, fDSN, fDriver, fConf strFlag
	var fStoreI intFlag
	var fRestore boolFlag

	flag.Var(&fAddr, "a", "HTTP server address")
	flag.Var(&fStoreI, "i", "store interval (seconds)")
	flag.Var(&fFile, "f", "path to snapshots file")
	flag.Var(&fRestore, "r", "restore from file")
	flag.Var(&fDSN, "d", "DB connection string")
	flag.Var(&fDriver, "db", "storage driver: memory, postgres, mysql, sqlite")
	flag.Var(&fConf, "c", "Path to config file")
	flag.Var(&fConf, "config", "Path to config file (alias)")
	flag.Parse()

	// 2) config file, lowest priority after defaults
	if fConf.v == "" {
		fConf.v = os.Getenv("CONFIG")
	}
	if fConf.v != "" {
		if fc, err := loadServerFile(fConf.v); err == nil {
			fc.apply(cfg)
		} else {
			log.Printf("failed to read config file %s: %v", fConf.v, err)
		}
	}

	if fAddr.set {
		cfg.Addr = fAddr.v
	}
	if fStoreI.set {
		cfg.StoreInterval = fStoreI.v
	}
	if fFile.set {
		cfg.FileStoragePath = fFile.v
	}
	if fRestore.set {
		cfg.Restore = fRestore.v
	}
	if fDSN.set {
		cfg.DatabaseDsn = fDSN.v
	}
	if fDriver.set {
		cfg.DBDriver = fDriver.v
	}

	// 3) environment
	readServerEnvironment(cfg)
	cfg.resolveStorage()

	cfg.Logger = NewLogger("stdout", "server.log")
	return cfg
}

// NewLogger builds the production zap logger writing to outputs.
func NewLogger(outputs ...string) *zap.SugaredLogger {
	logCfg := zap.NewProductionConfig()
	logCfg.OutputPaths = outputs
	return zap.Must(logCfg.Build()).Sugar()
}

func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("failed to load .env: %v", err)
	}
}

func readServerEnvironment(cfg *ServerConfig) {
	if addr := os.Getenv("ADDRESS"); addr != "" {
		cfg.Addr = addr
	} else if port := os.Getenv("PORT"); port != "" {
		cfg.Addr = net.JoinHostPort("0.0.0.0", port)
	}

	storeIntervalEnv := os.Getenv("STORE_INTERVAL")
	if storeIntervalEnv != "" {
		v, err := strconv.Atoi(storeIntervalEnv)
		if err == nil {
			cfg.StoreInterval = v
		} else {
			log.Printf("invalid STORE_INTERVAL env var: %v", err)
		}
	}

	if fsp := os.Getenv("FILE_STORAGE_PATH"); fsp != "" {
		cfg.FileStoragePath = fsp
	}

	restoreEnv := os.Getenv("RESTORE")
	if restoreEnv != "" {
		v, err := strconv.ParseBool(restoreEnv)
		if err == nil {
			cfg.Restore = v
		} else {
			log.Printf("invalid RESTORE env var: %v", err)
		}
	}

	if driver := os.Getenv("DB_DRIVER"); driver != "" {
		cfg.DBDriver = driver
	}
	if dbDsn := os.Getenv("DATABASE_DSN"); dbDsn != "" {
		cfg.DatabaseDsn = dbDsn
	}
	if host := os.Getenv("DB_SERVER"); host != "" {
		cfg.DBHost = host
	} else if host := os.Getenv("DB_HOST"); host != "" {
		cfg.DBHost = host
	}
	if port := os.Getenv("DB_PORT"); port != "" {
		cfg.DBPort = port
	}
	if name := os.Getenv("DB_NAME"); name != "" {
		cfg.DBName = name
	}
	if user := os.Getenv("DB_USER"); user != "" {
		cfg.DBUser = user
	}
	if password := os.Getenv("DB_PASSWORD"); password != "" {
		cfg.DBPassword = password
	}
}

// resolveStorage picks a driver when none was given and fills DatabaseDsn
// from the discrete DB_* settings.
func (cfg *ServerConfig) resolveStorage() {
	if cfg.DBDriver == "" {
		cfg.DBDriver = DriverMemory
		if cfg.DatabaseDsn != "" || cfg.DBHost != "" {
			cfg.DBDriver = DriverPostgres
		}
	}
	if cfg.DatabaseDsn == "" {
		cfg.DatabaseDsn = cfg.buildDSN()
	}
}

func (cfg *ServerConfig) buildDSN() string {
	switch cfg.DBDriver {
	case DriverPostgres:
		if cfg.DBHost == "" {
			return ""
		}
		u := url.URL{
			Scheme: "postgres",
			Host:   hostPort(cfg.DBHost, cfg.DBPort, defaultPort(DriverPostgres)),
			Path:   "/" + cfg.DBName,
		}
		if cfg.DBUser != "" {
			u.User = url.UserPassword(cfg.DBUser, cfg.DBPassword)
		}
		return u.String()
	case DriverMySQL:
		if cfg.DBHost == "" {
			return ""
		}
		return fmt.Sprintf("%s:%s@tcp(%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			cfg.DBUser, cfg.DBPassword, hostPort(cfg.DBHost, cfg.DBPort, defaultPort(DriverMySQL)), cfg.DBName)
	case DriverSQLite:
		if cfg.DBName != "" {
			return cfg.DBName
		}
		return "./tmp/health.db"
	}
	return ""
}

// DBTarget describes where snapshots go, without credentials.
func (cfg *ServerConfig) DBTarget() string {
	switch cfg.DBDriver {
	case DriverMemory:
		return fmt.Sprintf("memory (file=%q restore=%t interval=%ds)", cfg.FileStoragePath, cfg.Restore, cfg.StoreInterval)
	case DriverSQLite:
		return "sqlite " + cfg.DatabaseDsn
	}
	if cfg.DBHost != "" {
		return fmt.Sprintf("%s %s/%s user=%s", cfg.DBDriver, hostPort(cfg.DBHost, cfg.DBPort, defaultPort(cfg.DBDriver)), cfg.DBName, cfg.DBUser)
	}
	if u, err := url.Parse(cfg.DatabaseDsn); err == nil && u.Host != "" {
		return fmt.Sprintf("%s %s%s user=%s", cfg.DBDriver, u.Host, u.Path, u.User.Username())
	}
	return cfg.DBDriver + " (dsn set)"
}

func defaultPort(driver string) string {
	if driver == DriverMySQL {
		return "3306"
	}
	return "5432"
}

func hostPort(host, port, def string) string {
	if port == "" {
		port = def
	}
	return net.JoinHostPort(host, port)
}

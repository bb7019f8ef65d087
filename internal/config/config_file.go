package config

import (
	"strconv"
	"time"

	"github.com/spf13/viper"
)

// fileConfig is the optional config file. Unset keys leave the current value
// alone. The format follows the file extension (json, yaml, toml, ...).
type fileConfig struct {
	v *viper.Viper
}

func readFile(path string) (*fileConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	return &fileConfig{v: v}, nil
}

func loadServerFile(path string) (*serverFile, error) {
	fc, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return &serverFile{fc}, nil
}

func loadClientFile(path string) (*clientFile, error) {
	fc, err := readFile(path)
	if err != nil {
		return nil, err
	}
	return &clientFile{fc}, nil
}

type serverFile struct{ *fileConfig }

func (f *serverFile) apply(cfg *ServerConfig) {
	f.str("address", &cfg.Addr)
	f.seconds("store_interval", &cfg.StoreInterval)
	f.str("store_file", &cfg.FileStoragePath)
	f.boolean("restore", &cfg.Restore)
	f.str("db_driver", &cfg.DBDriver)
	f.str("database_dsn", &cfg.DatabaseDsn)
	f.str("db_host", &cfg.DBHost)
	f.str("db_port", &cfg.DBPort)
	f.str("db_name", &cfg.DBName)
	f.str("db_user", &cfg.DBUser)
	f.str("db_password", &cfg.DBPassword)
}

type clientFile struct{ *fileConfig }

func (f *clientFile) apply(cfg *ClientConfig) {
	f.str("address", &cfg.ServerAddr)
	f.seconds("report_interval", &cfg.ReportInterval)
	f.seconds("timeout", &cfg.ClientTimeout)
	f.str("client_name", &cfg.ClientName)
	f.str("ping_target", &cfg.PingTarget)
}

func (f *fileConfig) str(key string, dst *string) {
	if f.v.IsSet(key) {
		*dst = f.v.GetString(key)
	}
}

func (f *fileConfig) boolean(key string, dst *bool) {
	if f.v.IsSet(key) {
		*dst = f.v.GetBool(key)
	}
}

// seconds accepts a plain number of seconds or a duration string like "1m".
func (f *fileConfig) seconds(key string, dst *int) {
	if !f.v.IsSet(key) {
		return
	}
	if sec, err := parseDurationSeconds(f.v.GetString(key)); err == nil {
		*dst = sec
	}
}

func parseDurationSeconds(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	return int(d / time.Second), nil
}

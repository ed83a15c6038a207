package postgres

import (
	"fmt"
	"strings"
	"time"
)

// ConnConfig describes one Postgres server.
type ConnConfig struct {
	Host     string `yaml:"host" env-default:"localhost"`
	Port     int32  `yaml:"port" env-default:"5432"`
	Username string `yaml:"username"`
	Password string `yaml:"password" env:"POSTGRES_PASSWORD"`
	DBName   string `yaml:"dbname"`

	SearchPath string `yaml:"search_path"`
	SSLEnable  bool   `yaml:"ssl_enable"`
}

// Config configures the gorm-backed store. When DSN is set it is used
// verbatim for the primary and the per-field connection settings are
// ignored.
type Config struct {
	DSN                string       `yaml:"dsn" env:"POSTGRES_DSN"`
	Primary            ConnConfig   `yaml:"primary"`
	Replicas           []ConnConfig `yaml:"replicas"`
	MaxIdleConns       int          `yaml:"max_idle_conns"`
	MaxOpenConns       int          `yaml:"max_open_conns"`
	ConnMaxLifeTimeSec int          `yaml:"conn_max_life_time_sec"`
	ConnectTimeoutSec  int          `yaml:"connect_timeout_sec"`
	Log                LogConfig    `yaml:"log"`
}

// withDefaults fills zero pool settings.
func (cfg Config) withDefaults() Config {
	if cfg.MaxIdleConns == 0 {
		cfg.MaxIdleConns = 10
	}
	if cfg.MaxOpenConns == 0 {
		cfg.MaxOpenConns = 20
	}
	if cfg.ConnMaxLifeTimeSec == 0 {
		cfg.ConnMaxLifeTimeSec = 3600
	}
	if cfg.ConnectTimeoutSec == 0 {
		cfg.ConnectTimeoutSec = 180
	}
	return cfg
}

func (cfg Config) connMaxLifetime() time.Duration {
	return time.Duration(cfg.ConnMaxLifeTimeSec) * time.Second
}

func (cfg Config) primaryDSN() string {
	if strings.TrimSpace(cfg.DSN) != "" {
		return cfg.DSN
	}
	return cfg.Primary.DSN()
}

// DSN renders the key=value connection string understood by pgx.
func (cc ConnConfig) DSN() string {
	dsn := fmt.Sprintf(`user=%s password=%s host=%s port=%d dbname=%s`, cc.Username, cc.Password, cc.Host, cc.Port, cc.DBName)
	if cc.SSLEnable {
		dsn += " sslmode=require"
	} else {
		dsn += " sslmode=disable"
	}
	if strings.TrimSpace(cc.SearchPath) != "" {
		dsn = fmt.Sprintf("%s search_path=%s", dsn, cc.SearchPath)
	}
	return dsn
}

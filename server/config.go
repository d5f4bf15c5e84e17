package pingserver

import (
	"fmt"
	"net/http"
	"time"

	"github.com/jpillora/requestlog"

	"github.com/probeworks/pingd/db/sqlite"
	"github.com/probeworks/pingd/server/instructions"
	"github.com/probeworks/pingd/share/logger"
)

const (
	DefaultPort    = 8080
	DefaultDBPath  = "ping_data.db"
	DefaultUDPAddr = "0.0.0.0:9999"
)

type ServerConfig struct {
	Port      int    `mapstructure:"port"`
	DBPath    string `mapstructure:"db"`
	SqliteWAL bool   `mapstructure:"sqlite_wal"`
	// UDPAddr is where the raw echo responder listens; empty disables it.
	UDPAddr string `mapstructure:"udp_addr"`
}

type LogConfig struct {
	LogOutput logger.LogOutput `mapstructure:"log_file"`
	LogLevel  logger.LogLevel  `mapstructure:"log_level"`
}

type Config struct {
	Server       ServerConfig        `mapstructure:"server"`
	Logging      LogConfig           `mapstructure:"logging"`
	Instructions instructions.Config `mapstructure:"instructions"`
}

func (c *Config) ParseAndValidate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", c.Server.Port)
	}
	if c.Server.DBPath == "" {
		return fmt.Errorf("database path must not be empty")
	}
	if c.Instructions.SendProbability < 0 || c.Instructions.SendProbability > 1 {
		return fmt.Errorf("invalid instructions.send_probability: %v", c.Instructions.SendProbability)
	}
	return nil
}

func (c *Config) ListenAddress() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

func (c *Config) GetSQLiteDataSourceOptions() sqlite.DataSourceOptions {
	return sqlite.DataSourceOptions{WALEnabled: c.Server.SqliteWAL}
}

func (c *Config) InitRequestLogOptions() *requestlog.Options {
	o := requestlog.DefaultOptions
	o.Writer = c.Logging.LogOutput.File
	o.Filter = func(r *http.Request, code int, duration time.Duration, size int64) bool {
		return c.Logging.LogLevel == logger.LogLevelInfo || c.Logging.LogLevel == logger.LogLevelDebug
	}
	return &o
}

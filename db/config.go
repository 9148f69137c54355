package db

import (
	"fmt"
	"net"
	"slices"
	"strconv"
	"strings"
	"time"

	mysqldrv "github.com/go-sql-driver/mysql"
)

var gormLogLevels = []string{"silent", "error", "warn", "info"}

// Config describes the MySQL source handed to cache refreshes.
// Zero values are filled by MergeDefaults.
type Config struct {
	// connection
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"` // default 3306
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Database string `mapstructure:"database" yaml:"database"`
	Charset  string `mapstructure:"charset" yaml:"charset"` // default utf8mb4
	// Loc is an IANA zone name or "Local", used to parse DATETIME columns
	Loc string `mapstructure:"loc" yaml:"loc"`

	// pool
	MaxOpenConns    int           `mapstructure:"max_open_conns" yaml:"max_open_conns"`         // default 25
	MaxIdleConns    int           `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`         // default 10, at most MaxOpenConns
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime" yaml:"conn_max_lifetime"`   // default 30m
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time" yaml:"conn_max_idle_time"` // default 10m

	// gorm logging, LogLevel is one of silent, error, warn, info
	LogLevel      string        `mapstructure:"log_level" yaml:"log_level"`
	SlowThreshold time.Duration `mapstructure:"slow_threshold" yaml:"slow_threshold"`

	// ScopeTimeout bounds the read-only transaction of one refresh cycle
	ScopeTimeout time.Duration `mapstructure:"scope_timeout" yaml:"scope_timeout"`
}

// DefaultConfig returns the settings MergeDefaults falls back to
func DefaultConfig() *Config {
	return &Config{
		Port:            3306,
		Charset:         "utf8mb4",
		Loc:             "Local",
		MaxOpenConns:    25,
		MaxIdleConns:    10,
		ConnMaxLifetime: 30 * time.Minute,
		ConnMaxIdleTime: 10 * time.Minute,
		LogLevel:        "warn",
		SlowThreshold:   time.Second,
		ScopeTimeout:    2 * time.Minute,
	}
}

// MergeDefaults fills zero fields from DefaultConfig and returns c
func (c *Config) MergeDefaults() *Config {
	d := DefaultConfig()
	fillInt(&c.Port, d.Port)
	fillString(&c.Charset, d.Charset)
	fillString(&c.Loc, d.Loc)
	fillInt(&c.MaxOpenConns, d.MaxOpenConns)
	fillInt(&c.MaxIdleConns, d.MaxIdleConns)
	fillDuration(&c.ConnMaxLifetime, d.ConnMaxLifetime)
	fillDuration(&c.ConnMaxIdleTime, d.ConnMaxIdleTime)
	fillString(&c.LogLevel, d.LogLevel)
	fillDuration(&c.SlowThreshold, d.SlowThreshold)
	fillDuration(&c.ScopeTimeout, d.ScopeTimeout)
	return c
}

// Validate reports the first invalid setting
func (c *Config) Validate() error {
	for _, f := range []struct{ name, value string }{
		{"host", c.Host},
		{"user", c.User},
		{"password", c.Password},
		{"database", c.Database},
	} {
		if f.value == "" {
			return ErrInvalidConfig(f.name + " is required")
		}
	}
	if c.Port <= 0 || c.Port > 65535 {
		return ErrInvalidConfig(fmt.Sprintf("port %d out of range", c.Port))
	}
	if _, err := time.LoadLocation(c.Loc); err != nil {
		return ErrInvalidConfig(fmt.Sprintf("loc %q: %v", c.Loc, err))
	}
	if !slices.ContainsFunc(gormLogLevels, func(level string) bool {
		return strings.EqualFold(c.LogLevel, level)
	}) {
		return ErrInvalidConfig(fmt.Sprintf("log_level %q must be one of: %s", c.LogLevel, strings.Join(gormLogLevels, ", ")))
	}
	if c.MaxIdleConns > c.MaxOpenConns {
		return ErrInvalidConfig(fmt.Sprintf("max_idle_conns %d exceeds max_open_conns %d", c.MaxIdleConns, c.MaxOpenConns))
	}
	if c.ScopeTimeout < 0 {
		return ErrInvalidConfig("scope_timeout must be >= 0")
	}
	return nil
}

// DSN renders the connection string through the driver's own formatter.
// An unknown Loc falls back to the local zone; Validate rejects it first.
func (c *Config) DSN() string {
	loc, err := time.LoadLocation(c.Loc)
	if err != nil {
		loc = time.Local
	}
	mc := mysqldrv.NewConfig()
	mc.User = c.User
	mc.Passwd = c.Password
	mc.Net = "tcp"
	mc.Addr = net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	mc.DBName = c.Database
	mc.ParseTime = true
	mc.Loc = loc
	mc.Params = map[string]string{"charset": c.Charset}
	return mc.FormatDSN()
}

func fillInt(v *int, def int) {
	if *v == 0 {
		*v = def
	}
}

func fillString(v *string, def string) {
	if *v == "" {
		*v = def
	}
}

func fillDuration(v *time.Duration, def time.Duration) {
	if *v == 0 {
		*v = def
	}
}

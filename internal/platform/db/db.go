package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

const driverName = "mysql"

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type CheckinConfig struct {
	BaseURL  string `yaml:"base_url"`
	Timezone string `yaml:"timezone"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

type Config struct {
	Version string         `yaml:"version"`
	Mode    string         `yaml:"mode"`
	Addr    string         `yaml:"addr"`
	DB      DatabaseConfig `yaml:"database"`
	Checkin CheckinConfig  `yaml:"checkin"`
	Auth    AuthConfig     `yaml:"auth"`
}

func LoadConfig(path string) (*Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("設定ファイルの読み込み失敗: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(buf, &cfg); err != nil {
		return nil, fmt.Errorf("設定ファイルのパース失敗: %w", err)
	}
	if cfg.Addr == "" {
		cfg.Addr = ":8080"
	}
	if cfg.Checkin.Timezone == "" {
		cfg.Checkin.Timezone = "UTC"
	}
	return &cfg, nil
}

// Location: チェックイン判定に使う固定タイムゾーン。
// 「今日」の計算は必ずこの Location を使うこと（ローカル時刻は禁止）。
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Checkin.Timezone)
	if err != nil {
		return nil, fmt.Errorf("タイムゾーンの解決失敗 %q: %w", c.Checkin.Timezone, err)
	}
	return loc, nil
}

func Connect(c DatabaseConfig) (*sql.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&tls=false&timeout=3s&readTimeout=5s&writeTimeout=5s&loc=UTC",
		c.Username, c.Password, c.Host, c.Port, c.DBName)

	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("接続準備に失敗: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("DB接続に失敗: %w", err)
	}

	// 接続プール（合算がMySQLの max_connections を超えないよう配分する）
	db.SetMaxOpenConns(40)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

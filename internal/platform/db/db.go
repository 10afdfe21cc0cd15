package db

import (
	"database/sql"
	"fmt"
	"os"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"gopkg.in/yaml.v3"
)

const (
	driverName     = "mysql"
	configFilePath = "config/config.yaml"
)

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"user"`
	Password string `yaml:"password"`
	DBName   string `yaml:"dbname"`
}

type Certs struct {
	Cert string `yaml:"cert"`
	Key  string `yaml:"key"`
}

// QRConfig: 日次QRコードの運用パラメータ
type QRConfig struct {
	// 1日あたりの使用上限。入場+退場の2回で固定であり、
	// 2以外の設定値は受け付けず2に矯正する。
	MaxUsage int `yaml:"max_usage"`
	// 生成するPNGの一辺（px）
	ImageSize int `yaml:"image_size"`
}

// IPTrackingConfig: クライアントIP取得まわりの設定
type IPTrackingConfig struct {
	Enabled          bool `yaml:"enabled"`
	CaptureTimeoutMs int  `yaml:"capture_timeout_ms"`
	// 匿名化表示で保持するIPv4オクテット数 / IPv6グループ数
	IPv4PreserveOctets int `yaml:"ipv4_preserve_octets"`
	IPv6PreserveGroups int `yaml:"ipv6_preserve_groups"`
}

type Config struct {
	Version     string           `yaml:"version"`
	Mode        string           `yaml:"mode"`
	DB          DatabaseConfig   `yaml:"database"`
	Certificate Certs            `yaml:"certificate"`
	QR          QRConfig         `yaml:"qr"`
	IPTracking  IPTrackingConfig `yaml:"ip_tracking"`
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
	cfg.applyDefaults()
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	// 上限を緩めると使用済みコードで3回目のスキャンが通ってしまう
	if c.QR.MaxUsage != 2 {
		c.QR.MaxUsage = 2
	}
	if c.QR.ImageSize <= 0 {
		c.QR.ImageSize = 300
	}
	if c.IPTracking.CaptureTimeoutMs <= 0 {
		c.IPTracking.CaptureTimeoutMs = 100
	}
	if c.IPTracking.IPv4PreserveOctets <= 0 {
		c.IPTracking.IPv4PreserveOctets = 3
	}
	if c.IPTracking.IPv6PreserveGroups <= 0 {
		c.IPTracking.IPv6PreserveGroups = 2
	}
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
	db.SetMaxOpenConns(80)
	db.SetMaxIdleConns(20)
	db.SetConnMaxLifetime(30 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}

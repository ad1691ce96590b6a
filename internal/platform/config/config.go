package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 结构体定义了应用程序的所有配置项
// 它与 config.yaml 文件的结构完全对应
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Tracking TrackingConfig `mapstructure:"tracking"`
	Guild    GuildConfig    `mapstructure:"guild"`
	Jobs     JobsConfig     `mapstructure:"jobs"`
}

// ServerConfig 定义了HTTP服务器相关的配置
type ServerConfig struct {
	Mode    string     `mapstructure:"mode"`
	Address string     `mapstructure:"address"`
	Cors    CorsConfig `mapstructure:"cors"`
}

// CorsConfig 定义了CORS相关的配置
type CorsConfig struct {
	AllowedOrigins []string `mapstructure:"allowedOrigins"`
}

// LogConfig 定义了日志相关的配置
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// DatabaseConfig 定义了数据库和缓存相关的配置
type DatabaseConfig struct {
	Sqlite SqliteConfig `mapstructure:"sqlite"`
	Redis  RedisConfig  `mapstructure:"redis"`
}

// SqliteConfig 定义了SQLite的配置
type SqliteConfig struct {
	Path string `mapstructure:"path"`
}

// RedisConfig 定义了Redis的配置
type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// TrackingConfig 定义了活动追踪核心的配置
type TrackingConfig struct {
	// CooldownMs 是同一用户两次有效事件之间的最小间隔（毫秒）
	CooldownMs int64 `mapstructure:"cooldownMs"`
	// IgnoredChannels 中的事件不计入活动统计
	IgnoredChannels []string `mapstructure:"ignoredChannels"`
	// InactivityDays 是每日不活跃扫描的阈值天数
	InactivityDays int `mapstructure:"inactivityDays"`
	// RetentionDays 是事件日志的保留天数，超过后被每周维护任务清除
	RetentionDays int `mapstructure:"retentionDays"`
	// TopLimit 是排行榜的默认长度
	TopLimit int `mapstructure:"topLimit"`
}

// GuildConfig 定义了外部社区服务器侧的各种ID
type GuildConfig struct {
	// ID 是目标服务器的ID，供平台适配器定位名册
	ID       string         `mapstructure:"id"`
	Roles    RolesConfig    `mapstructure:"roles"`
	Channels ChannelsConfig `mapstructure:"channels"`
}

// RolesConfig 定义了由定时任务维护的标记角色
type RolesConfig struct {
	Inactive      string `mapstructure:"inactive"`
	MemberOfMonth string `mapstructure:"memberOfMonth"`
}

// ChannelsConfig 定义了引擎需要写入的频道
type ChannelsConfig struct {
	Announcement string `mapstructure:"announcement"`
	Birthdays    string `mapstructure:"birthdays"`
	Backups      string `mapstructure:"backups"`
}

// JobsConfig 定义了定时任务相关的配置
type JobsConfig struct {
	// Timezone 是所有墙钟触发时刻使用的时区，例如 "Europe/Paris"
	Timezone string       `mapstructure:"timezone"`
	Backup   BackupConfig `mapstructure:"backup"`
}

// BackupConfig 定义了每周备份的目录与本地保留数量
type BackupConfig struct {
	Dir  string `mapstructure:"dir"`
	Keep int    `mapstructure:"keep"`
}

// Cooldown 返回冷却窗口的time.Duration形式。
func (c TrackingConfig) Cooldown() time.Duration {
	return time.Duration(c.CooldownMs) * time.Millisecond
}

// Location 解析配置的时区，解析失败时回退到本地时区。
func (c JobsConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil || c.Timezone == "" {
		return time.Local
	}
	return loc
}

// LoadConfig 函数负责查找、加载和解析配置文件
// 它会在指定的路径中查找名为 config.yaml 的文件
func LoadConfig() (*Config, error) {
	v := viper.New()

	// 1. 设置配置文件名和类型
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// 2. 添加配置文件搜索路径
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	// 3. 允许通过环境变量覆盖配置，例如 TRACKING_COOLDOWNMS=30000
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// 缺省值：与原始部署保持一致
	v.SetDefault("server.mode", "release")
	v.SetDefault("server.address", ":8080")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.sqlite.path", "data.db")
	v.SetDefault("tracking.cooldownMs", 60000)
	v.SetDefault("tracking.inactivityDays", 90)
	v.SetDefault("tracking.retentionDays", 365)
	v.SetDefault("tracking.topLimit", 10)
	v.SetDefault("jobs.backup.dir", "backups")
	v.SetDefault("jobs.backup.keep", 5)

	// 4. 读取配置文件
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	// 5. 将配置反序列化到结构体中
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

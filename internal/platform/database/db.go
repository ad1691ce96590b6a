package database

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/SlpAus/guild-activity-tracker/internal/platform/config"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// DB 是注入给各个模块构造函数的存储句柄。
// 它取代了旧式的包级全局变量，使每个组件都能在隔离环境中被测试。
type DB struct {
	Gorm *gorm.DB
	// Redis 可以为nil，此时所有缓存路径退化为纯SQLite（测试中常用）。
	Redis *Redis
	// Path 是SQLite数据库文件的路径，备份任务需要它来做文件级拷贝。
	Path string
}

// Open 按配置建立SQLite连接，并在Redis配置存在时一并建立缓存连接。
func Open(cfg config.DatabaseConfig) (*DB, error) {
	gdb, err := OpenSQLite(cfg.Sqlite.Path)
	if err != nil {
		return nil, err
	}

	db := &DB{Gorm: gdb, Path: cfg.Sqlite.Path}

	if cfg.Redis.Address != "" {
		rdb, err := NewRedis(cfg.Redis)
		if err != nil {
			return nil, err
		}
		db.Redis = rdb
	}

	return db, nil
}

// OpenSQLite 打开一个WAL模式的SQLite数据库。
func OpenSQLite(path string) (*gorm.DB, error) {
	newLogger := gormlogger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		gormlogger.Config{
			SlowThreshold: 0,
			LogLevel:      gormlogger.Silent,
			Colorful:      true,
		},
	)

	dsn := path
	if !strings.Contains(dsn, "?") && !strings.Contains(dsn, ":memory:") {
		// 与原始部署一致：WAL模式减少写入阻塞
		dsn = dsn + "?_journal_mode=WAL"
	}

	gdb, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:         newLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("连接SQLite数据库失败: %w", err)
	}

	return gdb, nil
}

// IsRedisHealthy 返回缓存层当前是否可用。没有配置Redis时恒为false。
func (db *DB) IsRedisHealthy() bool {
	if db.Redis == nil {
		return false
	}
	return db.Redis.IsHealthy()
}

// IsDuplicateKeyError 判断一个gorm错误是否由主键/唯一约束冲突引起。
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	if err == gorm.ErrDuplicatedKey {
		return true
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// IsRetryableError 判断一个SQLite错误是否值得短间隔重试（锁竞争类）。
func IsRetryableError(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "database table is locked")
}

package main

import (
	"fmt"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/TomerAmran/guess-the-performer-sub001/config"
	"github.com/TomerAmran/guess-the-performer-sub001/logger"
)

// commandContext lazily loads what subcommands share, so "gtp version"
// never touches the database.
type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configErr  error

	logOnce sync.Once
	log     *logger.Logger
	logErr  error

	dbOnce sync.Once
	db     *gorm.DB
	dbErr  error

	redisOnce sync.Once
	redis     *redis.Client
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		c.config, c.configErr = config.Load(path)
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() (*logger.Logger, error) {
	c.logOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.logErr = err
			return
		}
		c.log, c.logErr = logger.New(cfg.LogMode)
	})
	return c.log, c.logErr
}

func (c *commandContext) ensureDB() (*gorm.DB, error) {
	c.dbOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.dbErr = err
			return
		}
		db, err := config.InitDB(cfg)
		if err != nil {
			c.dbErr = fmt.Errorf("database: %w", err)
			return
		}
		c.db = db
	})
	return c.db, c.dbErr
}

// redisClient returns nil when Redis is not configured.
func (c *commandContext) redisClient() *redis.Client {
	c.redisOnce.Do(func() {
		if cfg, err := c.ensureConfig(); err == nil {
			c.redis = config.InitRedis(cfg)
		}
	})
	return c.redis
}

func (c *commandContext) close() {
	if c.redis != nil {
		_ = c.redis.Close()
	}
	if c.db != nil {
		if sqlDB, err := c.db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}
	if c.log != nil {
		c.log.Sync()
	}
}

package startup

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/clover/config"
	"github.com/Ramsey-B/clover/pkg/database"
	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/redis"
)

// DatabaseDependency connects the postgres pool and applies migrations.
type DatabaseDependency struct {
	cfg    config.DBConfig
	logger ectologger.Logger
	DB     database.DB
}

func NewDatabaseDependency(cfg config.DBConfig, logger ectologger.Logger) *DatabaseDependency {
	return &DatabaseDependency{cfg: cfg, logger: logger}
}

func (d *DatabaseDependency) GetName() string { return "database" }
func (d *DatabaseDependency) DependsOn() []string { return nil }

func (d *DatabaseDependency) Start(ctx context.Context) error {
	db, err := database.Connect(ctx, database.ConnectConfig{
		Driver:          "postgres",
		Host:            d.cfg.Host,
		Port:            strconv.Itoa(d.cfg.Port),
		UserName:        d.cfg.User,
		Password:        d.cfg.Password,
		Name:            d.cfg.Name,
		SSLMode:         d.cfg.SSLMode,
		MaxOpenConns:    d.cfg.MaxOpenConns,
		MaxIdleConns:    d.cfg.MaxIdleConns,
		ConnMaxLifetime: d.cfg.ConnMaxLifetime,
	}, d.logger)
	if err != nil {
		return err
	}

	driver, err := database.MigrationDriver(db)
	if err != nil {
		_ = db.Close()
		return err
	}

	migrations := database.NewMigrationService(d.logger, &database.MigrationConfig{
		MigrationFolderPath: d.cfg.MigrationsPath,
		AutoRollback:        true,
	})
	if err := migrations.Migrate(d.cfg.Name, driver); err != nil {
		_ = db.Close()
		return err
	}

	d.DB = db
	return nil
}

func (d *DatabaseDependency) Stop(ctx context.Context) error {
	if d.DB == nil {
		return nil
	}
	return d.DB.Close()
}

// RedisDependency connects the distributed lock backend.
type RedisDependency struct {
	cfg    config.RedisConfig
	logger ectologger.Logger
	Client *redis.Client
}

func NewRedisDependency(cfg config.RedisConfig, logger ectologger.Logger) *RedisDependency {
	return &RedisDependency{cfg: cfg, logger: logger}
}

func (d *RedisDependency) GetName() string { return "redis" }
func (d *RedisDependency) DependsOn() []string { return nil }

func (d *RedisDependency) Start(ctx context.Context) error {
	client, err := redis.NewClient(redis.Config{
		Host:     d.cfg.Host,
		Port:     d.cfg.Port,
		Password: d.cfg.Password,
		DB:       d.cfg.DB,
	}, d.logger)
	if err != nil {
		return err
	}
	d.Client = client
	return nil
}

func (d *RedisDependency) Stop(ctx context.Context) error {
	if d.Client == nil {
		return nil
	}
	return d.Client.Close()
}

// KafkaDependency owns the event producer lifecycle.
type KafkaDependency struct {
	cfg      config.KafkaConfig
	logger   ectologger.Logger
	Producer *kafka.Producer
}

func NewKafkaDependency(cfg config.KafkaConfig, logger ectologger.Logger) *KafkaDependency {
	return &KafkaDependency{cfg: cfg, logger: logger}
}

func (d *KafkaDependency) GetName() string { return "kafka" }
func (d *KafkaDependency) DependsOn() []string { return nil }

func (d *KafkaDependency) Start(ctx context.Context) error {
	d.Producer = kafka.NewProducer(kafka.ProducerConfig{
		Brokers:      d.cfg.BrokerList(),
		Topic:        d.cfg.Topic,
		BatchSize:    d.cfg.BatchSize,
		BatchTimeout: d.cfg.BatchTimeout,
		RequiredAcks: d.cfg.RequiredAcks,
		Compression:  d.cfg.Compression,
	}, d.logger)
	return nil
}

func (d *KafkaDependency) Stop(ctx context.Context) error {
	if d.Producer == nil {
		return nil
	}
	return d.Producer.Close()
}

// HTTPDependency runs the echo server. It depends on the database so health
// checks come up against a live pool.
type HTTPDependency struct {
	cfg    config.HTTPConfig
	logger ectologger.Logger
	server *echo.Echo
}

func NewHTTPDependency(cfg config.HTTPConfig, server *echo.Echo, logger ectologger.Logger) *HTTPDependency {
	return &HTTPDependency{cfg: cfg, server: server, logger: logger}
}

func (d *HTTPDependency) GetName() string { return "http" }
func (d *HTTPDependency) DependsOn() []string { return []string{"database"} }

func (d *HTTPDependency) Start(ctx context.Context) error {
	go func() {
		addr := fmt.Sprintf(":%d", d.cfg.Port)
		if err := d.server.Start(addr); err != nil && err != http.ErrServerClosed {
			d.logger.WithError(err).Error("HTTP server stopped unexpectedly")
		}
	}()
	return nil
}

func (d *HTTPDependency) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, d.cfg.ShutdownTimeout)
	defer cancel()
	return d.server.Shutdown(shutdownCtx)
}

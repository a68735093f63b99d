package worker

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/leadgrid/crawl-gateway/internal/config"
	"github.com/leadgrid/crawl-gateway/internal/db"
	"github.com/leadgrid/crawl-gateway/internal/kafka"
	"github.com/leadgrid/crawl-gateway/internal/logger"
	"github.com/leadgrid/crawl-gateway/internal/repository"
	"github.com/leadgrid/crawl-gateway/internal/worker"
)

var statusRelayCmd = &cobra.Command{
	Use:   "status-relay",
	Short: "Consume scraper progress reports and apply them to crawl jobs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

		consumer := kafka.NewStatusConsumer(cfg.Kafka)
		defer func() { _ = consumer.Close() }()

		outboxRepo := repository.NewOutboxRepository(mysqlDB)
		jobsRepo := repository.NewCrawlJobsRepository(mysqlDB, outboxRepo)

		relay := worker.NewStatusRelay(consumer, jobsRepo)

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		go func() {
			sig := <-sigCh
			logger.L().Info("signal received, stopping relay", zap.String("signal", sig.String()))
			cancel()
		}()

		logger.L().Info("status relay running",
			zap.String("topic", cfg.Kafka.StatusTopic),
			zap.String("group", cfg.Kafka.GroupID),
		)
		return relay.Run(ctx)
	},
}

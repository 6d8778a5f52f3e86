package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"oiflow/config"
	"oiflow/internal/channel"
	"oiflow/internal/instrument"
	"oiflow/logger"
	"oiflow/processor"
	"oiflow/reader/gfdl"
	"oiflow/writer"
)

func main() {
	log := logger.GetLogger()

	// Load environment variables from .env if present
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.WithError(err).Warn("Error loading .env file")
	}

	configPath := flag.String("config", "config/config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(config.ResolveConfigPath(*configPath))
	if err != nil {
		log.WithError(err).Error("Failed to load configuration")
		os.Exit(1)
	}

	if err := log.Configure(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output, cfg.Logging.MaxAge); err != nil {
		log.WithError(err).Error("Failed to configure logger")
		os.Exit(1)
	}

	log.WithFields(logger.Fields{
		"service": cfg.OIFlow.Name,
		"version": cfg.OIFlow.Version,
	}).Info("starting oiflow")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Writers run on their own context so the final window flush can still
	// drain to delivery after the run context is cancelled; it is cancelled
	// only once every writer has stopped.
	deliveryCtx, deliveryCancel := context.WithCancel(context.Background())
	defer deliveryCancel()

	if cfg.Metrics.CloudWatchEnabled {
		logger.InitCloudWatch(cfg.Storage.S3.Region, cfg.Metrics.Namespace, cfg.Metrics.DashboardName)
	}

	if strings.ToLower(cfg.Logging.Level) == "report" {
		logger.StartReport(ctx, log, 30*time.Second)
	}

	channels := channel.NewChannels(
		cfg.Channels.RawBuffer,
		cfg.Channels.OutboundBuffer,
	)

	channels.StartMetricsReporting(ctx)

	registry := instrument.FromConfig(&cfg.Watchlist)

	feedReader := gfdl.NewReader(cfg, channels.Tick, registry.Symbols())
	engine := processor.NewEngine(cfg, registry, channels.Tick.Raw, channels.Outbound)

	var telegramWriter *writer.TelegramWriter
	if cfg.Telegram.Enabled {
		telegramWriter, err = writer.NewTelegramWriter(cfg, channels.Outbound.Alerts, channels.Outbound.Reports)
		if err != nil {
			log.WithError(err).Error("failed to create telegram writer")
			os.Exit(1)
		}
	} else {
		log.WithComponent("main").Info("telegram delivery disabled; alerts and reports will be logged only")
	}

	var kafkaWriter *writer.KafkaWriter
	if cfg.Storage.Kafka.Enabled {
		kafkaWriter, err = writer.NewKafkaWriter(cfg, channels.Outbound.Stream)
		if err != nil {
			log.WithError(err).Error("failed to create kafka writer")
			os.Exit(1)
		}
	}

	var archiveWriter *writer.ArchiveWriter
	if cfg.Storage.S3.Enabled {
		archiveWriter, err = writer.NewArchiveWriter(cfg, channels.Outbound.Archive)
		if err != nil {
			log.WithError(err).Error("failed to create S3 writer")
			os.Exit(1)
		}
	}

	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := engine.Start(ctx); err != nil {
			log.WithError(err).Warn("engine failed to start")
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := feedReader.Start(ctx); err != nil {
			log.WithError(err).Warn("feed reader failed to start")
		}
	}()

	if telegramWriter != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := telegramWriter.Start(deliveryCtx); err != nil {
				log.WithError(err).Warn("telegram writer failed to start")
			}
		}()
	}
	if kafkaWriter != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := kafkaWriter.Start(deliveryCtx); err != nil {
				log.WithError(err).Warn("kafka writer failed to start")
			}
		}()
	}
	if archiveWriter != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := archiveWriter.Start(deliveryCtx); err != nil {
				log.WithError(err).Warn("s3 writer failed to start")
			}
		}()
	}

	time.Sleep(2 * time.Second)
	log.Info("all components started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	log.WithFields(logger.Fields{"signal": sig.String()}).Info("shutdown signal received")

	log.Info("starting graceful shutdown")

	// Stop the feed first so no new ticks arrive, drain the engine so the
	// final window flush lands in the outbound buffers, then close those
	// buffers: the writers run on the still-live delivery context and exit
	// once they have drained everything.
	log.Info("stopping feed reader")
	cancel()
	feedReader.Stop()

	log.Info("stopping engine")
	engine.Stop()

	channels.Close()

	if telegramWriter != nil {
		log.Info("stopping telegram writer")
		telegramWriter.Stop()
	}
	if kafkaWriter != nil {
		log.Info("stopping kafka writer")
		kafkaWriter.Stop()
	}
	if archiveWriter != nil {
		log.Info("stopping S3 writer")
		archiveWriter.Stop()
	}
	deliveryCancel()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		log.Info("graceful shutdown completed")
	case <-time.After(30 * time.Second):
		log.Warn("graceful shutdown timeout exceeded")
	}

	log.Info("oiflow stopped")
}

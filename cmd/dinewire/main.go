package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dinewire/internal/activity"
	"dinewire/internal/config"
	"dinewire/internal/events"
	"dinewire/internal/httpapi"
	"dinewire/internal/logger"
	"dinewire/internal/notify"
	"dinewire/internal/orders"
	"dinewire/internal/repository"
	"dinewire/internal/repository/memory"
	"dinewire/internal/repository/postgres"
	"dinewire/internal/webhook"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:   "dinewire",
	Short: "Order ingestion, lifecycle and webhook dispatch for restaurant channels",
	Long: `dinewire turns free-text order requests from voice and chat channels into
state changes on the order aggregate and notifies webhook subscribers of
every transition.`,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the API server and webhook dispatcher",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}
		return serve(cfg)
	},
}

func serve(cfg *config.Config) error {
	log := logger.New("dinewire")
	if cfg.LogDebug {
		log = log.WithLevel(logger.LevelDebug)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var store *repository.Store
	switch cfg.Storage.Driver {
	case "postgres":
		pool, err := postgres.Connect(ctx, cfg.Database.DSN())
		if err != nil {
			return err
		}
		defer pool.Close()
		store = postgres.NewStore(pool)
	case "memory", "":
		store = memory.NewStore()
	default:
		return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
	}
	log.Info("storage_ready", map[string]any{"driver": cfg.Storage.Driver})

	bus := events.NewBus(log)
	recorder := activity.NewRecorder(store.Activities)
	bus.Subscribe(recorder)

	dispatcher := webhook.NewDispatcher(webhook.Config{
		MaxAttempts:    cfg.Webhook.MaxAttempts,
		BaseBackoff:    cfg.Webhook.BaseBackoff,
		AttemptTimeout: cfg.Webhook.AttemptTimeout,
		Workers:        cfg.Webhook.Workers,
		QueueSize:      cfg.Webhook.QueueSize,
	}, store.Subscriptions, recorder, log)
	if err := dispatcher.Start(ctx); err != nil {
		return err
	}
	bus.Subscribe(dispatcher)

	if cfg.Kafka.Enabled {
		sink, err := notify.NewKafkaSink(cfg.Kafka)
		if err != nil {
			return err
		}
		defer sink.Close()
		bus.Subscribe(sink)
		log.Info("kafka_sink_ready", map[string]any{"topic": cfg.Kafka.Topic})
	}

	var sender notify.Sender = &notify.LogSender{Log: log.Named("channel-ack")}
	if cfg.RabbitMQ.Enabled {
		amqpSender, err := notify.DialAMQP(cfg.RabbitMQ)
		if err != nil {
			return err
		}
		defer amqpSender.Close()
		sender = amqpSender
		log.Info("amqp_sender_ready", map[string]any{"exchange": cfg.RabbitMQ.Exchange})
	}

	svc := orders.NewService(store, bus, log, cfg.Billing.TaxRate)
	server := httpapi.NewServer(svc, store.MenuItems, dispatcher, sender, log)

	err := server.Run(ctx, cfg.HTTP.Port)
	dispatcher.Wait()
	return err
}

func init() {
	cobra.OnInitialize()
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./dinewire.yaml)")

	serveCmd.Flags().Int("port", 3000, "HTTP port")
	serveCmd.Flags().String("storage-driver", "memory", "storage driver: postgres | memory")
	serveCmd.Flags().Bool("log-debug", false, "emit debug-level logs")
	_ = viper.BindPFlag("http.port", serveCmd.Flags().Lookup("port"))
	_ = viper.BindPFlag("storage.driver", serveCmd.Flags().Lookup("storage-driver"))
	_ = viper.BindPFlag("log_debug", serveCmd.Flags().Lookup("log-debug"))

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(webhooksCmd())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	appbilling "github.com/netbill/backend/internal/application/billing"
	appprovisioning "github.com/netbill/backend/internal/application/provisioning"
	"github.com/netbill/backend/internal/infrastructure/config"
	"github.com/netbill/backend/internal/infrastructure/device"
	"github.com/netbill/backend/internal/infrastructure/jobs"
	"github.com/netbill/backend/internal/infrastructure/logger"
	"github.com/netbill/backend/internal/infrastructure/notify"
	"github.com/netbill/backend/internal/infrastructure/persistence"
	"github.com/netbill/backend/internal/infrastructure/scheduler"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting NetBill Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
	)

	// Initialize database connection with zap-backed GORM logging
	db, err := persistence.NewDatabaseWithLogger(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	// Initialize repositories
	serviceRepo := persistence.NewGormServiceRepository(db.DB)
	planRepo := persistence.NewGormPlanRepository(db.DB)
	routerRepo := persistence.NewGormRouterRepository(db.DB)
	invoiceRepo := persistence.NewGormInvoiceRepository(db.DB)
	reminderRepo := persistence.NewGormReminderRepository(db.DB)
	txScope := persistence.NewGormTransactionScope(db.DB)

	// Device gateway client
	gateway := device.NewClient(device.ClientConfig{
		DialTimeout:    cfg.Device.DialTimeout,
		CommandTimeout: cfg.Device.CommandTimeout,
	}, log)

	// Job key locker: Redis lease when configured, in-process otherwise
	var locker jobs.KeyLocker
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer func() {
			if err := redisClient.Close(); err != nil {
				log.Error("Error closing redis client", zap.Error(err))
			}
		}()
		locker = jobs.NewRedisLocker(redisClient, "")
		log.Info("Using redis job locker", zap.String("addr", cfg.Redis.Addr()))
	} else {
		locker = jobs.NewMemoryLocker()
	}

	// Job runner
	policy := jobs.DefaultPolicy()
	if cfg.Jobs.MaxAttempts > 0 {
		policy.MaxAttempts = cfg.Jobs.MaxAttempts
	}
	runner := jobs.NewRunner(jobs.RunnerConfig{
		Workers:    cfg.Jobs.Workers,
		QueueSize:  cfg.Jobs.QueueSize,
		JobTimeout: cfg.Jobs.JobTimeout,
		LockTTL:    cfg.Jobs.LockTTL,
	}, policy, locker, log)

	// Provisioning orchestrator behind the job runner
	orchestrator := appprovisioning.NewOrchestrator(serviceRepo, planRepo, routerRepo, gateway, log)
	actionTrigger := appprovisioning.NewJobTrigger(orchestrator, runner)

	// Notification channels
	var channels []notify.Channel
	if cfg.Notify.Email.Enabled {
		channels = append(channels, notify.NewEmailChannel(notify.EmailConfig{
			Host:     cfg.Notify.Email.Host,
			Port:     cfg.Notify.Email.Port,
			Username: cfg.Notify.Email.Username,
			Password: cfg.Notify.Email.Password,
			From:     cfg.Notify.Email.From,
		}, log))
	}
	if cfg.Notify.SMS.Enabled {
		channels = append(channels, notify.NewSMSChannel(notify.SMSConfig{
			GatewayURL: cfg.Notify.SMS.GatewayURL,
			APIKey:     cfg.Notify.SMS.APIKey,
			Sender:     cfg.Notify.SMS.Sender,
		}, log))
	}
	if cfg.Notify.Telegram.Enabled {
		telegramChannel, err := notify.NewTelegramChannel(cfg.Notify.Telegram.Token, log)
		if err != nil {
			log.Fatal("Failed to initialize telegram channel", zap.Error(err))
		}
		channels = append(channels, telegramChannel)
	}
	registry := notify.NewRegistry(channels...)
	log.Info("Notification channels registered", zap.Int("count", len(channels)))

	// Billing services
	renderer := appbilling.NewTextRenderer()
	cycleService := appbilling.NewCycleService(txScope, serviceRepo, planRepo, invoiceRepo, actionTrigger, log).
		WithLookahead(cfg.Billing.InvoiceLookahead)
	dispatcher := appbilling.NewDispatcher(reminderRepo, invoiceRepo, serviceRepo, renderer, registry, runner, log)

	// Reminders whose delivery exhausts the retry budget are marked failed
	runner.OnPermanentFailure = dispatcher.HandlePermanentFailure

	// Start the worker pool
	runnerCtx, runnerCancel := context.WithCancel(context.Background())
	defer runnerCancel()
	if err := runner.Start(runnerCtx); err != nil {
		log.Fatal("Failed to start job runner", zap.Error(err))
	}
	log.Info("Job runner started",
		zap.Int("workers", cfg.Jobs.Workers),
		zap.Int("max_attempts", policy.MaxAttempts),
	)

	// Billing sweeps on cron schedules
	cronTrigger := scheduler.NewCronTrigger(log)
	if cfg.Billing.Enabled {
		if err := cronTrigger.AddSweep(cfg.Billing.InvoiceCron, "due-invoices", func(ctx context.Context) error {
			_, err := cycleService.RunDueInvoiceSweep(ctx)
			return err
		}); err != nil {
			log.Fatal("Failed to schedule due-invoice sweep", zap.Error(err))
		}
		if err := cronTrigger.AddSweep(cfg.Billing.EnforcementCron, "overdue-enforcement", func(ctx context.Context) error {
			_, err := cycleService.RunOverdueEnforcementSweep(ctx)
			return err
		}); err != nil {
			log.Fatal("Failed to schedule overdue-enforcement sweep", zap.Error(err))
		}
		if err := cronTrigger.AddSweep(cfg.Billing.ReminderCron, "reminder-dispatch", func(ctx context.Context) error {
			_, err := dispatcher.DispatchDue(ctx)
			return err
		}); err != nil {
			log.Fatal("Failed to schedule reminder dispatch", zap.Error(err))
		}
		cronTrigger.Start()
	} else {
		log.Warn("Billing sweeps disabled by configuration")
	}

	// Wait for termination signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := cronTrigger.Stop(ctx); err != nil {
		log.Error("Cron trigger shutdown failed", zap.Error(err))
	}
	if err := runner.Stop(ctx); err != nil {
		log.Error("Job runner shutdown failed", zap.Error(err))
	}

	log.Info("Exited gracefully")
}

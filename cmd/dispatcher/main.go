package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/careline/message-dispatch/internal/auth"
	"github.com/careline/message-dispatch/internal/config"
	"github.com/careline/message-dispatch/internal/dispatch"
	"github.com/careline/message-dispatch/internal/errortrack"
	gateway "github.com/careline/message-dispatch/internal/gateways"
	"github.com/careline/message-dispatch/internal/repository"
	"github.com/careline/message-dispatch/internal/rules"
	"github.com/careline/message-dispatch/internal/services"
	"github.com/careline/message-dispatch/pkg/logger"
	"github.com/careline/message-dispatch/pkg/pg"
	"github.com/careline/message-dispatch/pkg/prom"
	"github.com/careline/message-dispatch/pkg/redis"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {

	err := config.Load(argContainsEnvPath())
	if err != nil {
		logger.Error("failed to load config", "error", err)
		return
	}

	readConf := pg.Config{
		User:     config.Get().PostgresReadUser,
		Host:     config.Get().PostgresReadHost,
		Port:     config.Get().PostgresReadPort,
		Password: config.Get().PostgresReadPassword,
		Database: config.Get().PostgresReadDatabase,
	}
	writeConf := pg.Config{
		User:     config.Get().PostgresWriteUser,
		Host:     config.Get().PostgresWriteHost,
		Port:     config.Get().PostgresWritePort,
		Password: config.Get().PostgresWritePassword,
		Database: config.Get().PostgresWriteDatabase,
	}

	pgDebug := false
	if config.Get().AppEnv == "dev" {
		pgDebug = true
	}
	db, err := pg.CreateReadWrite(readConf, writeConf, pgDebug)
	if err != nil {
		logger.Error("failed connecting to pg", "error", err)
		return
	}

	redisAdap, err := redis.NewRedisAdapter("default", config.Get().RedisUniversalKeyPrefix, &redis.Options{
		Addrs:      []string{config.Get().RedisAddr},
		ClientName: "default",
		DB:         config.Get().RedisDatabase,
		Username:   config.Get().RedisUsername,
		Password:   config.Get().RedisPassword,
	})
	if err != nil {
		logger.Error("failed connecting to redis", "error", err)
		return
	}

	provider, err := gateway.NewClient(&gateway.Config{
		BaseURL:                 config.Get().ProviderBaseUrl,
		Timeout:                 config.Get().ProviderTimeout,
		MaxRetries:              3,
		RetryDelay:              100 * time.Millisecond,
		MaxConns:                100,
		CircuitBreakerThreshold: 5,
		CircuitBreakerTimeout:   60 * time.Second,
	})
	if err != nil {
		logger.Error("failed to create provider client", "error", err)
		return
	}

	executor := rules.NewHTTPExecutor(rules.Config{
		BaseURL: config.Get().RulesEngineBaseUrl,
		Timeout: config.Get().RulesEngineTimeout,
	})

	var errorSink errortrack.Sink = errortrack.Noop{}
	if config.Get().ErrorTrackerWebhook != "" {
		errorSink = errortrack.NewWebhookSink(config.Get().ErrorTrackerWebhook, 5*time.Second)
	}

	ruleRepo := repository.NewMessageRuleRepository(db)
	receiverRepo := repository.NewMessageReceiverRepository(db)
	requestRepo := repository.NewMessageRequestRepository(db)
	broadcastRepo := repository.NewManualBroadcastMessageRepository(db)
	orgConfigRepo := repository.NewOrganisationConfigRepository(db)
	subjectRepo := repository.NewSubjectRepository(db)
	userRepo := repository.NewUserRepository(db)

	authService := auth.NewService(userRepo, orgConfigRepo, config.Get().AdminUserName)
	receiverService := services.NewReceiverService(receiverRepo, subjectRepo, userRepo, provider)
	requestService := services.NewRequestService(requestRepo, receiverRepo, config.Get().DispatchClaimTTL)
	sendLock := dispatch.NewSendLock(redisAdap, config.Get().DispatchClaimTTL)

	messagingService := services.NewMessagingService(
		ruleRepo,
		broadcastRepo,
		subjectRepo,
		receiverService,
		requestService,
		executor,
		provider,
		sendLock,
		errorSink,
		services.MessagingConfig{
			ContactPageSize: config.Get().ContactPageSize,
			MaxSendAttempts: config.Get().DispatchMaxSendAttempts,
		},
	)

	dispatcher := dispatch.NewDispatcher(authService, orgConfigRepo, messagingService, errorSink, config.Get().DispatchInterval)

	var hostname string
	hostname, err = os.Hostname()
	if err != nil {
		hostname = "unknown"
	}
	err = prom.Create(hostname, config.Get().AppEnv, config.Get().PromNamespace)
	if err != nil {
		logger.Error("failed to create prometheus metrics", "error", err)
		return
	}

	go func() {
		prom.ListenAndServer(config.Get().MetricsAddr, "/metrics")
	}()

	dispatcher.Start()

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	<-c
	dispatcher.Stop()
}

func argContainsEnvPath() string {
	for _, v := range os.Args {
		if strings.Contains(v, "--env=") {
			s := strings.Split(v, "=")
			if _, err := os.Open(s[1]); err != nil {
				logger.Error("failed to open the passed env file, got error" + err.Error())
				return ""
			}
			return s[1]
		}
	}
	return ""
}

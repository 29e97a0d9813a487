package main

import (
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/careline/message-dispatch/internal/auth"
	"github.com/careline/message-dispatch/internal/config"
	"github.com/careline/message-dispatch/internal/errortrack"
	gateway "github.com/careline/message-dispatch/internal/gateways"
	"github.com/careline/message-dispatch/internal/handlers"
	"github.com/careline/message-dispatch/internal/repository"
	"github.com/careline/message-dispatch/internal/rules"
	"github.com/careline/message-dispatch/internal/services"
	xhttp "github.com/careline/message-dispatch/pkg/http"
	"github.com/careline/message-dispatch/pkg/logger"
	"github.com/careline/message-dispatch/pkg/pg"
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

	s := xhttp.NewServer(xhttp.DefaultServerOption)
	s.Server.ReadBufferSize = 1024 * 16
	s.Server.WriteBufferSize = 1024 * 16
	s.Use(xhttp.CompressMiddleware(6))
	s.Use(xhttp.TimeoutMiddleware(time.Second * 5))
	s.Use(xhttp.RequestLoggerMiddleware)
	s.Use(xhttp.RecoverMiddleware)
	s.Router = xhttp.CreateDefaultRouter()

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

	messagingService := services.NewMessagingService(
		ruleRepo,
		broadcastRepo,
		subjectRepo,
		receiverService,
		requestService,
		executor,
		provider,
		nil,
		errorSink,
		services.MessagingConfig{
			ContactPageSize: config.Get().ContactPageSize,
			MaxSendAttempts: config.Get().DispatchMaxSendAttempts,
		},
	)

	broadcastHandler := handlers.NewBroadcastHandler(messagingService, authService)
	ruleHandler := handlers.NewRuleHandler(ruleRepo, authService)
	receiverHandler := handlers.NewReceiverHandler(requestService, authService)
	healthHandler := handlers.NewHealthHandler()

	g := s.Router.Group("/api")
	handlers.RegisterBroadcastRoutes(g, broadcastHandler)
	handlers.RegisterRuleRoutes(g, ruleHandler)
	handlers.RegisterReceiverRoutes(g, receiverHandler)
	handlers.RegisterHealthRoutes(g, healthHandler)

	c := make(chan os.Signal, 1)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)

	go func() {
		var err = s.ListenAndServe(config.Get().HttpListenAddr)
		if err != nil {
			logger.Error("error in running http-server", "error", err)
		}
	}()

	<-c
	s.Shutdown()
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

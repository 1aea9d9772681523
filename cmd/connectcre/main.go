package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/IBM/sarama"
	"github.com/joho/godotenv"

	"github.com/noahjacobs/connectcre-platform-sub001/internal/app/directory"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/app/messenger"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/app/policies"
	authsvc "github.com/noahjacobs/connectcre-platform-sub001/internal/app/services/auth"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/account"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/auth"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/domain/messaging"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/infra/broker/kafka"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/infra/config"
	mongodb "github.com/noahjacobs/connectcre-platform-sub001/internal/infra/db/mongo"
	ginserver "github.com/noahjacobs/connectcre-platform-sub001/internal/infra/http/gin"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/infra/notify"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/infra/obs"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/infra/security"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/infra/storage/memory"
	"github.com/noahjacobs/connectcre-platform-sub001/internal/infra/storage/s3"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	_ = godotenv.Load(".env")

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "configuration error:", err)
		os.Exit(1)
	}
	logger := obs.NewLogger(cfg.Env)

	app, cleanup, err := buildApplication(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	metrics := obs.NewMetrics()
	app.hub.WithStats(metrics)
	go app.hub.Sweep(ctx, 10*time.Minute, cfg.SessionTTL)

	server := ginserver.NewServer(cfg,
		obs.Middleware{Logger: logger, Metrics: metrics},
		obs.HealthHandlers{Checks: app.readiness},
		ginserver.Handlers{
			Auth:           ginserver.AuthHandler{Service: app.auth, Hub: app.hub, Logger: logger},
			Messaging:      ginserver.MessagingHandler{Hub: app.hub, Logger: logger},
			Profile:        ginserver.ProfileHandler{Accounts: app.accounts, Uploader: app.uploader, Logger: logger},
			AuthMiddleware: ginserver.AuthMiddleware{Service: app.auth, Logger: logger}.Handle,
		})

	if cfg.StorageMode == "memory" {
		path := getenv("DIRECTORY_FIXTURES", filepath.Join("data", "directory.json"))
		if err := seedDirectoryFixtures(ctx, path, app, logger); err != nil {
			logger.Warn("directory fixtures load failed", "error", err, "path", path)
		}
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("http shutdown failed", "error", err)
		}
	}()

	logger.Info("HTTP server starting", "addr", cfg.HTTPAddr, "storage", cfg.StorageMode)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("http server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("HTTP server stopped")
}

type application struct {
	auth      *authsvc.Service
	hub       *messenger.Hub
	accounts  account.Repository
	orgs      account.OrgRepository
	uploader  s3.Uploader
	readiness map[string]func() error
}

func buildApplication(cfg config.Config, logger *slog.Logger) (*application, func(), error) {
	var (
		accounts  account.Repository
		orgs      account.OrgRepository
		sessions  auth.SessionStore
		threads   messaging.Repository
		dirStore  directory.Store
		readiness = map[string]func() error{}
		cleanups  []func()
	)

	switch cfg.StorageMode {
	case "mongo":
		client, err := mongodb.New(cfg.MongoURI, cfg.MongoDB)
		if err != nil {
			return nil, nil, fmt.Errorf("mongo connect: %w", err)
		}
		accountRepo := mongodb.NewAccountRepository(client.DB)
		orgRepo := mongodb.NewOrgRepository(client.DB)
		accounts = accountRepo
		orgs = orgRepo
		sessions = mongodb.NewSessionStore(client.DB)
		threads = mongodb.NewThreadRepository(client.DB)
		dirStore = mongodb.DirectoryStore{Accounts: accountRepo, Orgs: orgRepo}
		readiness["mongo"] = func() error {
			pingCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			return client.Ping(pingCtx)
		}
	default:
		accountRepo := memory.NewAccountRepository()
		orgRepo := memory.NewOrgRepository()
		accounts = accountRepo
		orgs = orgRepo
		sessions = memory.NewSessionStore()
		threads = memory.NewThreadRepository()
		dirStore = memory.DirectoryStore{Accounts: accountRepo, Orgs: orgRepo}
	}

	var notifier policies.Notifier = notify.LogNotifier{Logger: logger}
	if len(cfg.KafkaBrokers) > 0 {
		producer, err := kafka.NewProducer(cfg.KafkaBrokers, sarama.NewConfig())
		if err != nil {
			logger.Warn("kafka unavailable, falling back to log notifier", "error", err)
		} else {
			notifier = notify.KafkaNotifier{Producer: producer, TopicPrefix: cfg.KafkaTopicPrefix, Logger: logger}
			cleanups = append(cleanups, func() { _ = producer.Close() })
		}
	}

	var uploader s3.Uploader = s3.NoopUploader{}
	if store, err := s3.NewAssetStore(cfg.S3Endpoint, cfg.S3UseSSL, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicEndpoint, logger); err != nil {
		logger.Warn("object storage unavailable", "error", err)
	} else {
		uploader = store
	}

	app := &application{
		auth: &authsvc.Service{
			Accounts:   accounts,
			Orgs:       orgs,
			Sessions:   sessions,
			Passwords:  security.BcryptHasher{Cost: cfg.BcryptCost},
			Tokens:     security.RandomTokenGenerator{},
			SessionTTL: cfg.SessionTTL,
			Logger:     logger,
		},
		hub:       messenger.NewHub(threads, dirStore, notifier, logger),
		accounts:  accounts,
		orgs:      orgs,
		uploader:  uploader,
		readiness: readiness,
	}
	cleanup := func() {
		for _, fn := range cleanups {
			fn()
		}
	}
	return app, cleanup, nil
}

// seedDirectoryFixtures imports demo accounts and organizations so a fresh
// memory-mode process has someone to message.
func seedDirectoryFixtures(ctx context.Context, path string, app *application, logger *slog.Logger) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			logger.Info("directory fixtures file not found, skipping", "path", path)
			return nil
		}
		return fmt.Errorf("read fixtures: %w", err)
	}

	var fixtures directoryFixtures
	if err := json.Unmarshal(data, &fixtures); err != nil {
		return fmt.Errorf("decode fixtures: %w", err)
	}

	hasher := security.BcryptHasher{}
	for _, fx := range fixtures.Accounts {
		hash, err := hasher.Hash(fx.Password)
		if err != nil {
			logger.Error("fixture password hash failed", "account_id", fx.ID, "error", err)
			continue
		}
		acct, err := account.NewAccount(account.CreateParams{
			ID:           account.ID(fx.ID),
			Email:        fx.Email,
			Name:         fx.Name,
			AvatarURL:    fx.AvatarURL,
			PasswordHash: hash,
		})
		if err != nil {
			logger.Error("fixture account invalid", "account_id", fx.ID, "error", err)
			continue
		}
		if err := app.accounts.Save(ctx, acct); err != nil {
			logger.Error("cannot store fixture account", "account_id", fx.ID, "error", err)
			continue
		}
		logger.Info("account fixture imported", "account_id", acct.ID)
	}
	for _, fx := range fixtures.Orgs {
		org := &account.Organization{
			ID:         fx.ID,
			Name:       fx.Name,
			LogoURL:    fx.LogoURL,
			ManagerIDs: append([]string(nil), fx.ManagerIDs...),
			CreatedAt:  time.Now().UTC(),
		}
		if err := app.orgs.Save(ctx, org); err != nil {
			logger.Error("cannot store fixture org", "org_id", fx.ID, "error", err)
			continue
		}
		logger.Info("org fixture imported", "org_id", org.ID)
	}
	return nil
}

type directoryFixtures struct {
	Accounts []accountFixture `json:"accounts"`
	Orgs     []orgFixture     `json:"orgs"`
}

type accountFixture struct {
	ID        string `json:"id"`
	Email     string `json:"email"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
	Password  string `json:"password"`
}

type orgFixture struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	LogoURL    string   `json:"logo_url"`
	ManagerIDs []string `json:"manager_ids"`
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

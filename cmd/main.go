package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"

	"github.com/targoninc/venel-api/auth"
	"github.com/targoninc/venel-api/avatar"
	"github.com/targoninc/venel-api/gate"
	"github.com/targoninc/venel-api/infrastructure/web"
	"github.com/targoninc/venel-api/internal"
	"github.com/targoninc/venel-api/live"
	"github.com/targoninc/venel-api/repositories"
	"github.com/targoninc/venel-api/services"
	"github.com/targoninc/venel-api/storage"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Fatal error: %v\n", err)
		os.Exit(1)
	}
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting so deferred cleanup (database close, presence
// drain) always executes before the process exits. Only unrecoverable
// startup configuration is fatal; per-request conditions never are.
func run() error {
	_ = godotenv.Load()

	config, err := internal.Load()
	if err != nil {
		return fmt.Errorf("config error: %w", err)
	}
	log := internal.Logger(config.LogLevel)

	db, err := badger.Open(badger.DefaultOptions(config.BadgerFilepath).
		WithLoggingLevel(badger.WARNING))
	if err != nil {
		return fmt.Errorf("database opening failed: %w", err)
	}
	defer func() {
		log.Info("Closing BadgerDB...")
		_ = db.Close()
	}()

	// Collaborator store and the gate over it.
	roleRepository := repositories.NewRoleRepository(db)
	userRepository := repositories.NewUserRepository(db, roleRepository)
	channelRepository := repositories.NewChannelRepository(db)
	messageRepository := repositories.NewMessageRepository(db, log, config.LimitMessages)
	accessGate := gate.NewAccessGate(channelRepository, roleRepository)

	// Attachment store: the encryption key derives from FILE_SECRET once,
	// here, and startup fails fast when the secret is absent. With
	// attachments disabled the store stays nil and uploads are refused.
	var files *storage.CryptoStore
	if config.AttachmentsEnabled {
		files, err = storage.NewCryptoStore(config.FileFolder, config.FileSecret)
		if err != nil {
			return fmt.Errorf("attachment store: %w", err)
		}
	}

	// Live gateway.
	presence := live.NewPresence()
	defer presence.Drain()
	bindings := live.NewBindingStore(config.BindingTokenTTL)
	broadcaster := live.NewBroadcaster(log, presence)
	avatars := avatar.NewProcessor(config.AvatarMaxBytes, config.AvatarMaxDim, config.AvatarQuality)
	chatService := services.NewChatService(log, userRepository, channelRepository,
		messageRepository, accessGate, files, avatars, broadcaster)
	dispatcher := live.NewDispatcher(log, presence, chatService)
	gateway := live.NewGateway(log, bindings, presence, dispatcher,
		config.MaxPayloadSize, config.ConnectionBufferSize)

	// Collaborator REST surface.
	tokens := auth.NewTokenIssuer(config.JwtSecret, config.AuthTokenDuration)
	authService := services.NewAuthService(userRepository, roleRepository, tokens, bindings)
	webServer := web.NewServer(log, authService, tokens, userRepository,
		messageRepository, accessGate, files)

	mux := http.NewServeMux()
	mux.Handle("/live", gateway)
	webServer.Register(mux)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	address := fmt.Sprintf("%s:%d", config.Host, config.Port)
	server := &http.Server{Addr: address, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		log.Info("Starting server", "address", address, "at", time.Now().UTC())
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("Shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errChan:
		return err
	}
}

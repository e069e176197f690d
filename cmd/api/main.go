package main

import (
	"context"
	"log"
	"os"
	"time"

	"cloud.google.com/go/firestore"
	fbapp "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"google.golang.org/api/option"

	"github.com/nyxscore/connectone-sub003/internal/adapter/api"
	"github.com/nyxscore/connectone-sub003/internal/adapter/api/handler"
	apimiddleware "github.com/nyxscore/connectone-sub003/internal/adapter/api/middleware"
	"github.com/nyxscore/connectone-sub003/internal/adapter/api/router"
	"github.com/nyxscore/connectone-sub003/internal/adapter/repository"
	domainrepo "github.com/nyxscore/connectone-sub003/internal/domain/repository"
	"github.com/nyxscore/connectone-sub003/internal/infrastructure/firebase"
	"github.com/nyxscore/connectone-sub003/internal/infrastructure/notification"
	"github.com/nyxscore/connectone-sub003/internal/infrastructure/websocket"
	"github.com/nyxscore/connectone-sub003/internal/usecase"
	"github.com/nyxscore/connectone-sub003/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		txRepo     domainrepo.TransactionRepository
		chatRepo   domainrepo.ChatRepository
		blockRepo  domainrepo.BlockRepository
		authClient *fbauth.Client
	)

	switch cfg.StoreBackend {
	case "memory":
		log.Printf("Using in-memory store backend")
		txRepo = repository.NewMemoryTransactionRepository()
		chatRepo = repository.NewMemoryChatRepository()
		blockRepo = repository.NewMemoryBlockRepository()

	default:
		var opt option.ClientOption
		if serviceAccountJSON := os.Getenv("FIREBASE_SERVICE_ACCOUNT_JSON"); serviceAccountJSON != "" {
			opt = option.WithCredentialsJSON([]byte(serviceAccountJSON))
		} else {
			serviceAccountPath := os.Getenv("FIREBASE_SERVICE_ACCOUNT_PATH")
			if serviceAccountPath == "" {
				log.Fatalf("FIREBASE_SERVICE_ACCOUNT_JSON or FIREBASE_SERVICE_ACCOUNT_PATH is required for the firestore backend")
			}
			opt = option.WithCredentialsFile(serviceAccountPath)
		}

		firebaseApp, err := fbapp.NewApp(ctx, &fbapp.Config{ProjectID: cfg.FirebaseProject}, opt)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase: %v", err)
		}

		authClient, err = firebaseApp.Auth(ctx)
		if err != nil {
			log.Fatalf("Failed to initialize Firebase Auth: %v", err)
		}

		firestoreClient, err := firestore.NewClient(ctx, cfg.FirebaseProject, opt)
		if err != nil {
			log.Fatalf("Failed to create Firestore client: %v", err)
		}
		defer firestoreClient.Close()

		txRepo = repository.NewFirestoreTransactionRepository(firestoreClient)
		chatRepo = repository.NewFirestoreChatRepository(firestoreClient)
		blockRepo = repository.NewFirestoreBlockRepository(firestoreClient)
	}

	dispatcher := notification.NewDispatcher()

	wsManager := websocket.NewManager(dispatcher)
	wsManager.Start(ctx)

	transactionUseCase := usecase.NewTransactionUseCase(txRepo, chatRepo, dispatcher)
	chatUseCase := usecase.NewChatUseCase(chatRepo, blockRepo, dispatcher)
	blockUseCase := usecase.NewBlockUseCase(blockRepo, chatRepo)

	scheduler := usecase.NewTimeoutScheduler(transactionUseCase, txRepo, cfg.SchedulerInterval, map[string]time.Duration{
		"auto_confirm": cfg.AutoConfirmAfter,
		"auto_cancel":  cfg.AutoCancelAfter,
	})
	scheduler.Start(ctx)

	devTokens := firebase.NewDevTokenGenerator(cfg.DevTokenSecret)

	handler.Setup(transactionUseCase, chatUseCase, blockUseCase)
	handler.SetupWebSocketHandler(wsManager)
	handler.SetupHealthHandler()
	handler.SetupDevTokenHandler(devTokens)

	e := echo.New()
	e.Validator = api.NewValidator()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())
	e.Use(apimiddleware.NewIPRateLimiter(60, time.Minute).Middleware())

	authMiddleware := apimiddleware.NewAuthMiddleware(authClient, devTokens)
	adminMiddleware := apimiddleware.NewAdminMiddleware()

	router.Setup(e, authMiddleware, adminMiddleware)
	if cfg.Environment == "development" {
		router.SetupDevRouter(e)
	}

	log.Printf("Starting server on port %s", cfg.ServerPort)
	if err := e.Start(":" + cfg.ServerPort); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}

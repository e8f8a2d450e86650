package app

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"reveal-backend/internal/blob"
	"reveal-backend/internal/config"
	"reveal-backend/internal/db"
	"reveal-backend/internal/handlers"
	"reveal-backend/internal/services"
	"reveal-backend/internal/storage"
	"reveal-backend/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

// Server bundles the fiber app with the services behind it.
type Server struct {
	App    *fiber.App
	Hub    *handlers.Hub
	Users  *services.UserService
	Photos *services.PhotoService
	Wallet *services.WalletService
	Tokens *services.TokenIssuer
}

// OpenStore picks the storage backend named by cfg.StorageDriver.
func OpenStore(ctx context.Context, cfg config.Config) (storage.Store, error) {
	switch cfg.StorageDriver {
	case "", "memory":
		log.Println("Using in-memory storage")
		return storage.NewMemoryStore(), nil
	case "postgres":
		pool, err := db.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		store, err := storage.NewPostgresStore(ctx, pool)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil
	case "sqlite":
		conn, err := db.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		store, err := storage.NewSQLiteStore(ctx, conn)
		if err != nil {
			conn.Close()
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage driver %q", cfg.StorageDriver)
	}
}

// OpenBlobs picks where uploads are written, named by cfg.BlobDriver.
func OpenBlobs(ctx context.Context, cfg config.Config) (blob.Store, error) {
	switch cfg.BlobDriver {
	case "", "disk":
		return blob.NewDisk(cfg.UploadDir, cfg.BaseURL), nil
	case "s3":
		log.Printf("Using S3 bucket %q for uploads", cfg.S3.Bucket)
		return blob.NewS3(ctx, blob.S3Config(cfg.S3))
	default:
		return nil, fmt.Errorf("unknown blob driver %q", cfg.BlobDriver)
	}
}

// New wires services and routes on top of store and blobs.
func New(cfg config.Config, store storage.Store, blobs blob.Store) *Server {
	hub := handlers.NewHub()
	s := &Server{
		Hub:    hub,
		Users:  services.NewUserService(store),
		Photos: services.NewPhotoService(store, services.NewPreviewRenderer(), blobs),
		Wallet: services.NewWalletService(store, hub),
		Tokens: services.NewTokenIssuer(cfg.JWTSecret, cfg.JWTTTL),
	}
	identity := &handlers.Identity{Users: s.Users, Tokens: s.Tokens, AllowUserIDParam: cfg.AllowUserIDParam}

	// Fiber App
	app := fiber.New(fiber.Config{
		ErrorHandler: handlers.ErrorHandler,
		BodyLimit:    cfg.BodyLimit,
	})
	s.App = app

	// Middleware
	app.Use(logger.New())
	app.Use(recover.New())
	origins := strings.Join(cfg.CORSOrigins, ",")
	app.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: origins != "*",
	}))

	// Serve uploaded originals and previews
	if disk, ok := blobs.(*blob.Disk); ok {
		if err := os.MkdirAll(disk.Dir, 0755); err != nil {
			log.Printf("Warning: failed to create upload dir: %v", err)
		}
		app.Static("/uploads", disk.Dir)
	}

	// Auth
	auth := app.Group("/auth")
	auth.Post("/register", handlers.RegisterHandler(s.Users, s.Tokens))
	auth.Post("/login", handlers.LoginHandler(s.Users, s.Tokens))

	// Photos
	app.Get("/photos", identity.Optional, handlers.ListPhotosHandler(s.Photos))
	app.Post("/photos", identity.Require, handlers.CreatePhotoHandler(s.Photos))
	app.Post("/photos/upload", identity.Require, handlers.UploadPhotoHandler(s.Photos))
	app.Get("/photos/:id", identity.Require, handlers.GetPhotoHandler(s.Photos))

	// Wallet
	app.Post("/unlock", identity.Require, handlers.UnlockHandler(s.Wallet))
	app.Get("/wallet", identity.Require, handlers.GetWalletHandler(s.Wallet))
	app.Post("/wallet/add", identity.Require, handlers.AddTokensHandler(s.Wallet))
	app.Get("/wallet/transactions", identity.Require, handlers.TransactionsHandler(s.Wallet))

	// Health Check
	app.Get("/health", func(c *fiber.Ctx) error {
		if err := store.Ping(c.Context()); err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "storage unavailable")
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// WebSocket Route
	// Note: Middleware order matters. WSUpgradeMiddleware checks if it's a WS
	// request, identity resolves the user before the upgrade.
	app.Use("/ws", handlers.WSUpgradeMiddleware)
	app.Use("/ws", identity.Require)
	app.Get("/ws", handlers.WebSocketHandler(hub, s.Wallet))

	return s
}

// Run serves on PORT until SIGINT or SIGTERM.
func Run() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg := config.Load()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", ":"+cfg.Port)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}
	return Serve(ctx, cfg, ln)
}

// Serve opens storage, serves on ln and shuts down gracefully once ctx is
// done. The shutdown error, if any, is returned.
func Serve(ctx context.Context, cfg config.Config, ln net.Listener) error {
	store, err := OpenStore(ctx, cfg)
	if err != nil {
		ln.Close()
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer store.Close()

	blobs, err := OpenBlobs(ctx, cfg)
	if err != nil {
		ln.Close()
		return fmt.Errorf("failed to open upload storage: %w", err)
	}

	srv := New(cfg, store, blobs)
	if cfg.SeedDemo {
		if err := services.SeedDemo(ctx, srv.Users, srv.Photos); err != nil {
			log.Printf("Warning: failed to seed demo data: %v", err)
		}
	}

	// Start Server
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- srv.App.Listener(ln)
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done(): // Block until signal
	}

	log.Println("Gracefully shutting down...")
	err = srv.App.Shutdown()
	utils.LogError(err, "Shutdown")
	log.Println("Server shutdown complete")
	return err
}

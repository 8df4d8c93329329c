package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"provelt-badge-service/handlers"
	"provelt-badge-service/middleware"
	"provelt-badge-service/models"
	"provelt-badge-service/services"
	"provelt-badge-service/utils"
	"provelt-badge-service/workers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  No .env file found, reading environment variables directly")
	}

	app := fiber.New(fiber.Config{
		BodyLimit: 10 * 1024 * 1024, // 10MB — proof media is uploaded elsewhere
	})

	// 🔐❗ GLOBAL: Only Gateway requests allowed — no exceptions
	app.Use(middleware.GatewayAuthMiddleware())

	allowedOriginsEnv := os.Getenv("ALLOWED_ORIGINS")
	if allowedOriginsEnv == "" {
		log.Println("⚠️  ALLOWED_ORIGINS environment variable not set, using default: http://localhost:3000")
		allowedOriginsEnv = "http://localhost:3000"
	}
	allowedOriginsList := strings.Split(allowedOriginsEnv, ",")
	for i, origin := range allowedOriginsList {
		allowedOriginsList[i] = strings.TrimSpace(origin)
	}
	allowedOriginsString := strings.Join(allowedOriginsList, ",")

	app.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOriginsString,
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS,PATCH,HEAD",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Requested-With, X-Request-ID, User-Agent, Cache-Control, X-Service-Token, X-User-ID, X-User-Roles, X-Wallet-Address",
		ExposeHeaders:    "Content-Length, Content-Type, Authorization, X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, X-RateLimit-Reset, Retry-After",
		AllowCredentials: true,
		MaxAge:           86400, // 24 hours
	}))

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL environment variable not set")
	}

	if err := utils.InitR2(); err != nil {
		log.Fatal("failed to initialize R2 client:", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatal("failed to connect to database:", err)
	}

	if err := db.AutoMigrate(
		&models.Submission{},
		&models.BadgeRecord{},
		&models.Challenge{},
		&models.ProfileMirror{},
		&models.CompletionLog{},
	); err != nil {
		log.Fatal("failed to migrate database:", err)
	}

	// --- Ledger wiring: registry → executor → minter (picked once) ---
	ledgerCfg := services.LoadLedgerConfig()
	registry := services.NewEndpointRegistry(ledgerCfg.Network, ledgerCfg.RPCOverride)
	executor := services.NewRPCExecutor(registry)

	var minter services.LedgerMinter
	if ledgerCfg.MintConfigured() && ledgerCfg.HasSigner() {
		minter = services.NewRealMinter(ledgerCfg, executor)
		log.Printf("✅ Real minting enabled on %s (tree %s)", ledgerCfg.Network, utils.RedactAddress(ledgerCfg.TreeAddress))
	} else {
		minter = services.NewSimulatedMinter(ledgerCfg.Network)
		log.Println("🧪 Ledger not configured — running in simulated mint mode")
	}

	metadataService := services.NewMetadataService()
	verifier := services.NewLogVerifier(executor)
	limiter := services.NewRateLimiter()

	approvalService := services.NewApprovalService(db, metadataService, minter)
	mintService := services.NewMintService(db, ledgerCfg, minter, registry, verifier, metadataService)
	badgeService := services.NewBadgeService(db)

	// --- Profile mirror sync (wallet addresses for mint recipients) ---
	profileSyncClient := workers.NewProfileSyncClient(db)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go workers.PollProfiles(ctx, profileSyncClient, 30*time.Second)

	services.StartMaintenanceScheduler(limiter, registry)

	handlers.SetupBadgeRoutes(app, approvalService, mintService, badgeService, limiter)

	go func() {
		if err := app.Listen(":5300"); err != nil {
			log.Printf("Server error: %v", err)
		}
	}()

	log.Println("✅ Server running on http://localhost:5300")
	log.Println("✅ Profile sync polling running (every 30s)")
	log.Println("✅ GatewayAuthMiddleware enforced globally — all requests must come from Gateway")
	log.Printf("✅ CORS configured for origins: %s", allowedOriginsString)

	<-ctx.Done()
	log.Println("Shutting down server...")
}

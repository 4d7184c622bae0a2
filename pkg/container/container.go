package container

import (
	"context"
	"fmt"
	"log"
	"time"

	"photobooth-backend/internal/config"
	eventHandler "photobooth-backend/internal/domains/event/handler"
	eventRepo "photobooth-backend/internal/domains/event/repository"
	eventService "photobooth-backend/internal/domains/event/service"
	infraCache "photobooth-backend/internal/infrastructure/cache"
	infraDB "photobooth-backend/internal/infrastructure/database"
	"photobooth-backend/internal/infrastructure/email"
	"photobooth-backend/internal/infrastructure/queue"
	"photobooth-backend/internal/infrastructure/realtime"
	"photobooth-backend/internal/infrastructure/storage"
	"photobooth-backend/pkg/cache"
	"photobooth-backend/pkg/database"

	"github.com/hibiken/asynq"
)

// ========================================
// CONTAINER STRUCT
// ========================================

// Container chứa TẤT CẢ dependencies của application.
// Dùng chung cho cmd/api và cmd/worker.
type Container struct {
	// ========================================
	// INFRASTRUCTURE LAYER
	// ========================================
	Config *config.Config
	DB     *infraDB.PostgresDB     // nil khi DB_DRIVER=memory
	Redis  *infraCache.RedisClient // nil khi DB_DRIVER=memory
	Cache  cache.Cache             // rate limiter counters
	Blobs  storage.BlobStore
	Hub    *realtime.Hub
	Tasks  *queue.TaskClient  // nil khi SMTP tắt
	Email  email.EmailService // nil khi SMTP tắt, chỉ worker dùng

	// ========================================
	// REPOSITORY LAYER
	// ========================================
	Tx        database.Transactor
	EventRepo eventRepo.EventRepository
	PhotoRepo eventRepo.PhotoRepository

	// ========================================
	// SERVICE LAYER
	// ========================================
	EventService *eventService.EventService

	// ========================================
	// HANDLER LAYER
	// ========================================
	EventHandler *eventHandler.Handler
}

// ========================================
// CONSTRUCTOR: BUILD CONTAINER
// ========================================

// NewContainer build dependency graph theo thứ tự:
// Config → Database → Cache → Storage → Repositories → Services → Handlers
func NewContainer() (*Container, error) {
	log.Println("🔧 Initializing DI Container...")

	c := &Container{}

	// ========================================
	// STEP 1: LOAD CONFIGURATION
	// ========================================
	log.Println("📋 Loading configuration...")

	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	c.Config = cfg
	log.Printf("✅ Config loaded (Environment: %s)", cfg.App.Environment)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// ========================================
	// STEP 2: DATABASE + CACHE
	// ========================================
	if err := c.initDataStores(ctx); err != nil {
		c.Cleanup()
		return nil, err
	}

	// ========================================
	// STEP 3: BLOB STORAGE
	// ========================================
	log.Printf("🪣 Initializing %s storage...", cfg.Storage.Backend)

	blobs, err := storage.New(ctx, cfg.Storage)
	if err != nil {
		c.Cleanup()
		return nil, fmt.Errorf("failed to init storage: %w", err)
	}
	c.Blobs = blobs
	log.Println("✅ Storage ready")

	// ========================================
	// STEP 4: SERVICES + HANDLERS
	// ========================================
	c.initServices()
	c.initHandlers()

	log.Println("🎉 DI Container initialized successfully")
	return c, nil
}

// initDataStores: postgres + redis, hoặc in-memory cho local dev
func (c *Container) initDataStores(ctx context.Context) error {
	cfg := c.Config

	if cfg.Database.Driver == "memory" {
		log.Println("⚠️  DB_DRIVER=memory: metadata is not persisted, rate limits are per process")
		store := eventRepo.NewMemoryStore()
		c.Tx = store
		c.EventRepo = store.Events()
		c.PhotoRepo = store.Photos()
		c.Cache = infraCache.NewMemoryCache()
		return nil
	}

	log.Println("🗄️  Connecting to PostgreSQL...")

	db := infraDB.NewPostgresDB(cfg.Database.PoolConfig())
	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := db.HealthCheck(ctx); err != nil {
		db.Close()
		return fmt.Errorf("database health check failed: %w", err)
	}
	c.DB = db
	log.Println("✅ Database connected")

	c.Tx = database.NewPoolTransactor(db.Pool)
	c.EventRepo = eventRepo.NewEventRepository()
	c.PhotoRepo = eventRepo.NewPhotoRepository()

	log.Println("🔴 Connecting to Redis...")

	c.Redis = infraCache.NewRedisClient(cfg.Redis.Host, cfg.Redis.Password, cfg.Redis.DB)
	if err := c.Redis.Connect(ctx); err != nil {
		// Redis failure không critical: rate limiter fail-open
		log.Printf("⚠️  Redis connection failed (non-critical): %v", err)
	} else {
		log.Println("✅ Redis connected")
	}
	c.Cache = c.Redis

	if cfg.SMTP.Enabled() {
		c.Tasks = queue.NewTaskClient(c.RedisOpt())
		c.Email = email.NewSMTPEmailService(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From)
		log.Printf("✅ Owner link emails enabled via %s:%s", cfg.SMTP.Host, cfg.SMTP.Port)
	}

	return nil
}

// RedisOpt - connection options cho asynq client/server/scheduler
func (c *Container) RedisOpt() asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     c.Config.Redis.Host,
		Password: c.Config.Redis.Password,
		DB:       c.Config.Redis.DB,
	}
}

func (c *Container) initServices() {
	log.Println("⚙️  Initializing services...")

	cfg := c.Config
	c.Hub = realtime.NewHub()

	c.EventService = eventService.NewService(eventService.Dependencies{
		Tx:       c.Tx,
		Events:   c.EventRepo,
		Photos:   c.PhotoRepo,
		Blobs:    c.Blobs,
		Images:   storage.NewImageProcessor(cfg.Event.MaxUploadBytes, cfg.Event.AllowedContentTypes),
		Notifier: c.Hub,
	}, eventService.Config{
		Retention:      cfg.Event.Retention,
		SweepBatchSize: cfg.Sweeper.BatchSize,
	})

	log.Println("✅ Services initialized")
}

func (c *Container) initHandlers() {
	log.Println("🎯 Initializing handlers...")

	var mailer eventHandler.OwnerMailer
	if c.Tasks != nil {
		mailer = c.Tasks
	}

	c.EventHandler = eventHandler.NewHandler(c.EventService, c.Hub, mailer, eventHandler.Config{
		PublicURL:      c.Config.App.PublicURL,
		MaxUploadBytes: c.Config.Event.MaxUploadBytes,
		UploadTimeout:  c.Config.Event.UploadTimeout,
	})

	log.Println("✅ Handlers initialized")
}

// HealthCheck kiểm tra database và cache. Memory driver luôn healthy.
func (c *Container) HealthCheck(ctx context.Context) map[string]string {
	status := map[string]string{"database": "ok", "cache": "ok"}

	if c.DB != nil {
		if err := c.DB.HealthCheck(ctx); err != nil {
			status["database"] = err.Error()
		}
	}
	if c.Cache != nil {
		if err := c.Cache.Ping(ctx); err != nil {
			status["cache"] = err.Error()
		}
	}
	return status
}

// Cleanup dọn dẹp resources khi shutdown
func (c *Container) Cleanup() {
	log.Println("🧹 Cleaning up container resources...")

	if c.DB != nil {
		c.DB.Close()
		log.Println("✅ Database connections closed")
	}

	if c.Tasks != nil {
		if err := c.Tasks.Close(); err != nil {
			log.Printf("⚠️  Failed to close task client: %v", err)
		}
	}

	if c.Redis != nil {
		if err := c.Redis.Close(); err != nil {
			log.Printf("⚠️  Failed to close Redis: %v", err)
		} else {
			log.Println("✅ Redis connections closed")
		}
	}

	log.Println("✅ Container cleanup completed")
}

package server

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/PeterChen712/EcoSortify-sub002/internal/auth"
	"github.com/PeterChen712/EcoSortify-sub002/internal/collection"
	"github.com/PeterChen712/EcoSortify-sub002/internal/config"
	"github.com/PeterChen712/EcoSortify-sub002/internal/record"
	"github.com/PeterChen712/EcoSortify-sub002/internal/stats"
	"github.com/PeterChen712/EcoSortify-sub002/internal/stream"
	"github.com/PeterChen712/EcoSortify-sub002/internal/syncgw"
)

type Server struct {
	App         *fiber.App
	Cfg         config.Config
	DB          *pgxpool.Pool
	Redis       *redis.Client
	Stream      *stream.Hub
	Coordinator *record.Coordinator
	Gateway     *syncgw.Gateway
}

func NewServer(cfg config.Config, db *pgxpool.Pool, redisClient *redis.Client) *Server {
	app := fiber.New()
	app.Use(recover.New())
	app.Use(logger.New())

	hub := stream.NewHub(redisClient)
	store := record.NewSQLStore(db)
	coord := record.NewCoordinator(store, hub, record.Options{
		Workers:   cfg.IngestWorkers,
		QueueSize: cfg.IngestQueueSize,
	})
	agg := stats.NewAggregator(db)
	gw := syncgw.NewGateway(agg, syncgw.NewPGProfileSource(db), syncgw.NewRedisRemote(redisClient))

	s := &Server{
		App:         app,
		Cfg:         cfg,
		DB:          db,
		Redis:       redisClient,
		Stream:      hub,
		Coordinator: coord,
		Gateway:     gw,
	}

	registerRoutes(s, store, agg)
	return s
}

func registerRoutes(s *Server, store *record.SQLStore, agg *stats.Aggregator) {
	s.App.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	jwtMiddleware := auth.JWTMiddleware(s.Cfg.JWTSecret)

	auth.RegisterRoutes(s.App.Group("/auth"), auth.NewService(s.Cfg.JWTSecret, s.DB))
	record.RegisterRoutes(s.App.Group("/recording"), s.Coordinator, store, jwtMiddleware)
	collection.RegisterRoutes(s.App.Group("/collection"), collection.NewService(s.DB), jwtMiddleware)
	stats.RegisterRoutes(s.App.Group("/stats"), agg, jwtMiddleware)
	syncgw.RegisterRoutes(s.App.Group("/sync"), s.Gateway, jwtMiddleware)
	stream.RegisterRoutes(s.App.Group("/stream"), s.Stream)
}

// Shutdown drains in-flight recording work and tears down sync listeners.
func (s *Server) Shutdown(ctx context.Context) {
	if s.Coordinator != nil {
		_ = s.Coordinator.Close(ctx)
	}
	if s.Gateway != nil {
		s.Gateway.Close()
	}
}

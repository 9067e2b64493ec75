package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/afec/formation-portal/internal/auth"
	"github.com/afec/formation-portal/internal/config"
	"github.com/afec/formation-portal/internal/database"
	"github.com/afec/formation-portal/internal/handler"
	"github.com/afec/formation-portal/internal/mailer"
	"github.com/afec/formation-portal/internal/queue"
	"github.com/afec/formation-portal/internal/repository"
	"github.com/afec/formation-portal/internal/router"
)

func main() {
	// .env is optional; real deployments export variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting disabled")
	}

	users := repository.NewUserRepo(db)
	roles := repository.NewRoleRepo(db)

	codec := auth.NewTokenCodec(
		cfg.AuthSecret, cfg.RefreshSecret, cfg.ResetSecret,
		cfg.AccessTTL, cfg.RefreshTTL, cfg.ResetTTL,
	)
	hasher := auth.NewHasher(cfg.BcryptCost)
	notifier := queue.NewPublisher(cfg.AMQPURL)
	svc := auth.NewService(users, roles, codec, hasher, notifier)

	// Background worker turning queued reset requests into outgoing mail.
	go func() {
		if err := queue.StartPasswordResetConsumer(cfg.AMQPURL, mailer.NewSender(cfg)); err != nil {
			log.Printf("reset-consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Logger())
	e.Use(echomw.Recover())

	router.Register(e, router.Deps{
		Auth:      handler.NewAuthHandler(cfg, svc),
		Admin:     handler.NewAdminHandler(users),
		Codec:     codec,
		Roles:     roles,
		RateLimit: config.LoadRateLimitConfig(),
		Redis:     rdb,
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}

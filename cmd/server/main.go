package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lager-backend/internal/config"
	"lager-backend/internal/database"
	"lager-backend/internal/events"
	"lager-backend/internal/idempotency"
	"lager-backend/internal/server"

	"github.com/redis/go-redis/v9"
)

func main() {
	cfg := config.Load()
	db := database.Init(cfg)

	var guard idempotency.Guard = idempotency.NewMemoryGuard(idempotency.DefaultTTL)
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
		})
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		err := client.Ping(ctx).Err()
		cancel()
		if err != nil {
			log.Fatalf("could not connect to redis at %s: %v", cfg.RedisAddr, err)
		}
		defer client.Close()
		guard = idempotency.NewRedisGuard(client, idempotency.DefaultTTL)
		log.Println("transaction idempotency guard: redis", cfg.RedisAddr)
	} else {
		log.Println("[WARN] REDIS_ADDR not set, idempotency keys are kept in process")
	}

	var publisher events.Publisher = events.Nop{}
	if cfg.KafkaBroker != "" {
		publisher = events.NewKafkaPublisher(cfg.KafkaBroker, cfg.KafkaTopic)
		log.Printf("stock movement events: kafka %s topic %s", cfg.KafkaBroker, cfg.KafkaTopic)
	}
	defer publisher.Close()

	app := server.New(server.Deps{
		Config:    cfg,
		DB:        db,
		Guard:     guard,
		Publisher: publisher,
		AccessLog: true,
	})

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Println("shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Println("shutdown:", err)
		}
	}()

	log.Printf("listening on :%s", cfg.HTTPPort)
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		log.Fatal(err)
	}
}

package main

import (
	"context"
	"log"

	"menuforge/config"
	httpapi "menuforge/internal/api/http"
	"menuforge/internal/export"
	"menuforge/internal/service"
	"menuforge/internal/storage"
)

func main() {
	db := config.MustInitPostgres()
	defer db.Close()

	redisClient := config.MustInitRedis()
	defer redisClient.Close()

	repo := storage.NewPostgresRepository(db)
	if err := repo.EnsureSchema(); err != nil {
		log.Fatal("Failed to ensure schema:", err)
	}

	writer := config.NewKafkaWriter("menu-changes")
	defer writer.Close()
	publisher := storage.NewKafkaPublisher(writer)

	store := service.NewMenuStore(repo, publisher, config.CurrencySymbol())
	votes := storage.NewRedisVoteStore(redisClient)
	qr := service.DefaultQRGenerator{BaseURL: config.PublicBaseURL()}

	renderer, err := export.NewRenderer(export.NewHTTPImageFetcher())
	if err != nil {
		log.Fatal("Failed to build page renderer:", err)
	}
	exporter := export.NewExporter(renderer)

	hub := httpapi.NewHub()
	handler := httpapi.NewHandler(store, repo, votes, qr, exporter, hub)

	reader := config.NewKafkaReader("menu-changes", "menuforge")
	defer reader.Close()
	consumer := service.NewConsumer(reader, store, hub)
	go consumer.Start(context.Background())

	httpapi.StartServer(config.HTTPAddr(), httpapi.NewRouter(handler))
}

package main

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/andenet/shop-backend/internal/api"
	"github.com/andenet/shop-backend/internal/config"
	"github.com/andenet/shop-backend/internal/orders"
	"github.com/andenet/shop-backend/internal/payment"
	"github.com/andenet/shop-backend/internal/store"
)

func init() {
	log.SetFormatter(&log.JSONFormatter{})
	log.SetLevel(log.InfoLevel)
}

func main() {
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		log.Fatal("Failed to connect to MongoDB: ", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		log.Fatal("Failed to ping MongoDB: ", err)
	}
	db := client.Database(cfg.Mongo.Database)

	orderStore := store.NewMongoOrderStore(db)
	if err := orderStore.EnsureIndexes(ctx); err != nil {
		log.Fatal("Failed to create order indexes: ", err)
	}
	cartStore := store.NewMongoCartStore(db)

	chapa := payment.NewChapaClient(cfg.Chapa)
	mpesa := payment.NewMpesaClient(cfg.Mpesa)

	svc := orders.NewService(orderStore, cartStore, chapa, mpesa)
	handler := api.NewHandler(svc, cfg.Server.FrontendURL)
	router := api.NewRouter(handler, api.NewAuth(cfg.Auth))

	log.WithFields(log.Fields{
		"port":     cfg.Server.Port,
		"database": cfg.Mongo.Database,
	}).Info("Shop API starting")

	if err := router.Run(":" + cfg.Server.Port); err != nil {
		log.Fatal("Failed to start server: ", err)
	}
}

package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/joho/godotenv"

	"github.com/dukapay/dukapay-gobackend/internal/config"
	"github.com/dukapay/dukapay-gobackend/internal/db"
	"github.com/dukapay/dukapay-gobackend/internal/handlers"
	"github.com/dukapay/dukapay-gobackend/internal/mpesa"
	"github.com/dukapay/dukapay-gobackend/internal/services"
	"github.com/dukapay/dukapay-gobackend/internal/store"
)

func main() {
	// Load .env
	if err := godotenv.Load(".env"); err != nil {
		log.Printf("Warning: Error loading .env: %s", err)
	}

	uri := os.Getenv("MONGOURI")
	if uri == "" {
		log.Fatal("MONGOURI environment variable not set")
	}

	ctx := context.Background()
	client, err := db.Connect(ctx, uri)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			log.Printf("Error disconnecting from MongoDB: %v", err)
		}
	}()

	database := client.Database("dukapaydb")

	ledger := store.NewMongoLedger(database)
	indexCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := ledger.EnsureIndexes(indexCtx); err != nil {
		log.Fatalf("Failed to ensure transaction indexes: %v", err)
	}
	orders := store.NewMongoOrderStore(database)

	merchantConfig := config.NewEnvProvider()
	gateway := mpesa.NewClient(10 * time.Second)
	paymentService := services.NewPaymentService(merchantConfig, gateway, ledger, orders)

	jwtSecret := []byte(os.Getenv("JWT_SECRET"))
	paymentHandler := handlers.NewPaymentHandler(paymentService, jwtSecret)
	orderHandler := handlers.NewOrderHandler(orders)

	router := handlers.NewRouter(paymentHandler, orderHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	server := &http.Server{
		Addr:         "0.0.0.0:" + port,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	log.Printf("Server running on port %s", port)
	log.Fatal(server.ListenAndServe())
}

package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/moyijulius/crime-report-platform/config"
	"github.com/moyijulius/crime-report-platform/databases"
	"github.com/moyijulius/crime-report-platform/models"
)

// Creates the default admin and officer accounts, or resets their password
// and role when they already exist.
//
// Usage:
//
//	SEED_ADMIN_PASSWORD=... SEED_OFFICER_PASSWORD=... go run scripts/seed_users.go
//	go run scripts/seed_users.go hash <password>
func main() {
	if len(os.Args) == 3 && os.Args[1] == "hash" {
		hash, err := bcrypt.GenerateFromPassword([]byte(os.Args[2]), bcrypt.DefaultCost)
		if err != nil {
			fmt.Printf("Error generating hash: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("Bcrypt Hash: %s\n", hash)
		return
	}

	conf := config.New()
	seeds := []models.User{
		{Username: "admin", Email: "admin@example.com", Phone: "1234567890", Role: models.RoleAdmin, Password: os.Getenv("SEED_ADMIN_PASSWORD")},
		{Username: "officer", Email: "officer@example.com", Phone: "0987654321", Role: models.RoleOfficer, Password: os.Getenv("SEED_OFFICER_PASSWORD")},
	}
	for _, u := range seeds {
		if len(u.Password) < 6 {
			fmt.Println("SEED_ADMIN_PASSWORD and SEED_OFFICER_PASSWORD must be set to at least 6 characters")
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := databases.NewClient(conf)
	if err != nil {
		zap.S().Fatalw("failed to create database client", "error", err)
	}
	if err := client.Connect(ctx); err != nil {
		zap.S().Fatalw("failed to connect to database", "error", err)
	}
	defer func() { _ = client.Disconnect(context.Background()) }()

	users := databases.NewUserDatabase(databases.NewDatabase(conf, client))
	if err := users.EnsureIndexes(ctx); err != nil {
		zap.S().Fatalw("failed to create user indexes", "error", err)
	}
	for _, u := range seeds {
		if err := seed(ctx, users, u); err != nil {
			zap.S().Fatalw("failed to seed user", "email", u.Email, "error", err)
		}
	}
}

func seed(ctx context.Context, users databases.UserDatabase, u models.User) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now()

	_, err = users.FindOneAndUpdate(ctx, bson.M{"email": u.Email}, bson.M{"$set": bson.M{
		"password":  string(hash),
		"role":      u.Role,
		"updatedAt": now,
	}})
	if err == nil {
		zap.S().Infow("reset seeded user", "email", u.Email, "role", u.Role)
		return nil
	}
	if !errors.Is(err, databases.ErrNotFound) {
		return err
	}

	u.Password = string(hash)
	u.CreatedAt = now
	u.UpdatedAt = now
	if _, err := users.InsertOne(ctx, u); err != nil {
		return err
	}
	zap.S().Infow("created seeded user", "email", u.Email, "role", u.Role)
	return nil
}

package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os"

	"tictactoe_live/internal/db"
	"tictactoe_live/internal/domain"
	"tictactoe_live/internal/repository"
	"tictactoe_live/internal/service"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load()

	username := flag.String("username", "testuser", "username to create")
	tgID := flag.Int64("tg-id", 1234567890, "telegram id, 0 for none")
	flag.Parse()

	// expects DATABASE_URL and JWT_SECRET env vars
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Fatal("DATABASE_URL not set")
	}
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		log.Fatal("JWT_SECRET not set")
	}

	pool := db.Connect(dsn)
	defer pool.Close()

	repo := repository.NewUserRepository(pool)
	ctx := context.Background()

	u, err := repo.GetByUsername(ctx, *username)
	switch {
	case err == nil:
		log.Printf("user already exists id=%d\n", u.ID)
	case errors.Is(err, repository.ErrUserNotFound):
		u = &domain.User{
			TgID:      *tgID,
			Username:  *username,
			FirstName: "Tester",
		}
		if err := repo.Create(ctx, u); err != nil {
			log.Fatalf("create user failed: %v", err)
		}
		log.Printf("user created id=%d\n", u.ID)
	default:
		log.Fatalf("lookup failed: %v", err)
	}

	service.InitJWT(secret)
	token, err := service.GenerateJWT(u.ID, u.Username)
	if err != nil {
		log.Fatalf("failed to generate token: %v", err)
	}
	log.Printf("token=%s\n", token)
}

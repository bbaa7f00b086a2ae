package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"

	"github.com/oksasatya/go-task-tracker/config"
	"github.com/oksasatya/go-task-tracker/internal/application"
	"github.com/oksasatya/go-task-tracker/internal/container"
	"github.com/oksasatya/go-task-tracker/internal/domain/apperror"
	"github.com/oksasatya/go-task-tracker/internal/domain/entity"
	pginfra "github.com/oksasatya/go-task-tracker/internal/infrastructure/postgres"
	"github.com/oksasatya/go-task-tracker/pkg/helpers"
)

// seed creates a demo account with a handful of sample tasks. Running it twice
// reuses the account and adds another batch of tasks.
func main() {
	_ = godotenv.Load()
	cfg := config.Load()
	cfg.DBDriver = "postgres"
	cfg.StorageDriver = "local"
	cfg.GoogleClientID = ""
	logger := helpers.NewLogger(cfg.AppName, cfg.Env)
	ctx := context.Background()

	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), pginfra.PoolConfig{
		MaxConns:        cfg.DBMaxConns,
		MinConns:        cfg.DBMinConns,
		MaxConnLifetime: cfg.DBMaxConnLife,
		ConnectAttempts: cfg.DBConnTries,
	})
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := pginfra.RunMigrations(cfg.PostgresDSN(), logger); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	c, err := container.Build(ctx, cfg, logger, container.Infra{Pool: pool})
	if err != nil {
		log.Fatalf("failed to build application: %v", err)
	}

	email := "demo@example.com"
	password := "password123"
	name := "Demo User"

	sess, err := c.AuthService.Register(ctx, application.RegisterInput{Email: email, Password: password, Name: name})
	if errors.Is(err, apperror.ErrDuplicateIdentity) {
		sess, err = c.AuthService.Login(ctx, email, password)
	}
	if err != nil {
		log.Fatalf("failed to seed user: %v", err)
	}
	fmt.Printf("seeded user: id=%s email=%s name=%s password=%s\n", sess.User.ID, email, name, password)

	today := time.Now().UTC()
	samples := []application.TaskInput{
		{Title: "Write project brief", Description: "Outline goals and scope", DueDate: today.AddDate(0, 0, 1).Format(entity.DateLayout), Priority: string(entity.PriorityHigh)},
		{Title: "Review pull requests", DueDate: today.AddDate(0, 0, 3).Format(entity.DateLayout), Status: string(entity.StatusInProgress)},
		{Title: "Plan team offsite", Description: "Pick venue and dates", Priority: string(entity.PriorityLow)},
		{Title: "Renew domain", DueDate: today.AddDate(0, 0, -2).Format(entity.DateLayout), Status: string(entity.StatusCompleted)},
	}
	for _, in := range samples {
		t, err := c.TaskService.Create(ctx, sess.User.ID, in)
		if err != nil {
			log.Fatalf("failed to seed task %q: %v", in.Title, err)
		}
		fmt.Printf("seeded task: id=%s title=%q priority=%s status=%s\n", t.ID, t.Title, t.Priority, t.Status)
	}
}

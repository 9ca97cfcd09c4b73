// adminctl provisions admin users: it hashes the given password and inserts
// the account into the admin_users table. Run it once per admin, then add the
// email to KN_ADMIN_EMAILS so the allow-list lets the account in.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"github.com/knwebagency/backend/internal/auth"
	"github.com/knwebagency/backend/internal/config"
	"github.com/knwebagency/backend/internal/db"
	"github.com/knwebagency/backend/pkg"
)

func main() {
	env := flag.String("env", "development", "environment [prod | production | dev | development]")
	configPath := flag.String("config", "./config.toml", "path for the TOML config file")
	email := flag.String("email", "", "admin email")
	password := flag.String("password", "", "admin password, will be stored bcrypt-hashed")
	unconfirmed := flag.Bool("unconfirmed", false, "create the account unconfirmed (cannot log in yet)")
	flag.Parse()

	if *email == "" || *password == "" {
		log.Fatalln("both -email and -password are required")
	}

	cfg, err := config.Load(*env, *configPath)
	if err != nil {
		log.Fatalf("load config: %s", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost: cfg.PostgresHost,
		DBPort: cfg.PostgresPort,
		DBName: cfg.PostgresDBName,
	})
	if err != nil {
		log.Fatalf("new db pool: %s", err)
	}
	defer dbPool.Close()

	passwordHash, err := pkg.HashPassword(*password)
	if err != nil {
		log.Fatalf("hash password: %s", err)
	}

	id, err := auth.NewUsersRepo(dbPool).Add(ctx, *email, passwordHash, !*unconfirmed)
	if err != nil {
		log.Fatalf("add admin user: %s", err)
	}

	log.Printf("admin user %s created, id %d", *email, id)
}

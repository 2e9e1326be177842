// Command accountctl creates accounts directly against the database. It is
// an operator tool for seeding: the password is prompted on the terminal and
// hashed with the same parameters the server uses.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"

	"golang.org/x/term"

	"github.com/avolkov/uniadmin/internal/common"
	"github.com/avolkov/uniadmin/internal/server/auth"
	"github.com/avolkov/uniadmin/internal/server/config"
	"github.com/avolkov/uniadmin/internal/server/models"
	"github.com/avolkov/uniadmin/internal/server/repositories/repomanager"
)

func main() {
	cfg := &config.Config{}
	cfg.LoadDefaults()

	var email string
	flag.StringVar(&cfg.DatabaseDriver, "k", cfg.DatabaseDriver, "database driver (pgx or sqlite)")
	flag.StringVar(&cfg.DatabaseDSN, "d", cfg.DatabaseDSN, "database DSN")
	flag.StringVar(&email, "e", "", "account email")
	flag.Parse()

	if email == "" {
		log.Fatal("account email is required (-e)")
	}

	password, err := promptPassword()
	if err != nil {
		log.Fatalf("reading password: %v", err)
	}

	ctx := context.Background()

	db, rm, err := repomanager.Open(cfg.DatabaseDriver, cfg.DatabaseDSN)
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	defer db.Close()

	if err := rm.RunMigrations(ctx, db); err != nil {
		log.Fatalf("migration error: %v", err)
	}

	hash, err := auth.NewPasswordHasher(cfg.HashParams()).Hash(ctx, password)
	if err != nil {
		log.Fatalf("hashing password: %v", err)
	}

	account, err := rm.Accounts(db).Create(ctx, &models.Account{Email: email, PasswordHash: hash})
	if err != nil {
		if errors.Is(err, common.ErrorAlreadyExists) {
			log.Fatalf("email %s already in use", email)
		}
		log.Fatalf("creating account: %v", err)
	}

	fmt.Printf("created account id=%d email=%s\n", account.ID, account.Email)
}

func promptPassword() (string, error) {
	fmt.Fprint(os.Stderr, "Password: ")
	first, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	fmt.Fprint(os.Stderr, "Repeat password: ")
	second, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return "", err
	}

	if string(first) != string(second) {
		return "", errors.New("passwords do not match")
	}
	if len(first) == 0 {
		return "", errors.New("password must not be empty")
	}
	return string(first), nil
}

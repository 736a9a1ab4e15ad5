package main

import (
	"context"
	"flag"
	"fmt"

	"github.com/joho/godotenv"

	"ms-reservation/internal/config"
	"ms-reservation/internal/database"
	"ms-reservation/internal/database/migrations"
	"ms-reservation/internal/logger"
)

func main() {
	action := flag.String("action", "up", "migration action: up, down, to, force or version")
	version := flag.Int("version", 0, "target version for -action=to and -action=force")
	dir := flag.String("dir", "", "migrations directory (defaults to the embedded migrations)")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.NewLogger("")
	defer log.Close()

	if *dir == "" {
		*dir = cfg.Database.MigrationsDir
	}

	bunDB, err := database.Connect(context.Background(), cfg.Database, log)
	if err != nil {
		log.Fatal("DATABASE", err.Error())
	}

	runner := migrations.NewRunner(bunDB, migrations.Options{Dir: *dir}, log)
	defer runner.Close()

	switch *action {
	case "up":
		err = runner.Up()
	case "down":
		err = runner.Down()
	case "to":
		if *version < 0 {
			err = fmt.Errorf("-version must not be negative for -action=to")
		} else {
			err = runner.To(uint(*version))
		}
	case "force":
		err = runner.Force(*version)
	case "version":
		var (
			current uint
			dirty   bool
		)
		current, dirty, err = runner.Version()
		if err == nil {
			log.Info("MIGRATION", fmt.Sprintf("Current schema version %d (dirty: %t)", current, dirty))
		}
	default:
		err = fmt.Errorf("unknown action %q", *action)
	}
	if err != nil {
		log.Fatal("MIGRATION", err.Error())
	}
	log.Info("MIGRATION", fmt.Sprintf("Migration action %q completed", *action))
}

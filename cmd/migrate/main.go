package main

import (
	"flag"

	"github.com/chronobill/chronobill/internal/config"
	"github.com/chronobill/chronobill/internal/logger"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	migrate "github.com/rubenv/sql-migrate"
)

func main() {
	var (
		dir  = flag.String("dir", "migrations", "directory holding migration files")
		down = flag.Bool("down", false, "roll back the most recent migration")
	)
	flag.Parse()

	cfg, err := config.NewConfig()
	if err != nil {
		panic(err)
	}

	log, err := logger.NewLogger(cfg)
	if err != nil {
		panic(err)
	}

	db, err := sqlx.Connect("postgres", cfg.Postgres.GetDSN())
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer db.Close()

	source := &migrate.FileMigrationSource{Dir: *dir}

	if *down {
		n, err := migrate.ExecMax(db.DB, "postgres", source, migrate.Down, 1)
		if err != nil {
			log.Fatalf("migration rollback failed: %v", err)
		}
		log.Infow("rolled back migrations", "count", n)
		return
	}

	n, err := migrate.Exec(db.DB, "postgres", source, migrate.Up)
	if err != nil {
		log.Fatalf("migration failed: %v", err)
	}
	log.Infow("applied migrations", "count", n)
}

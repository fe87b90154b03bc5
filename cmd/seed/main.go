package main

import (
	"context"
	"flag"
	"log"
	"os"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/participa-vecinal/participa/config"
	"github.com/participa-vecinal/participa/internal/domain/entity"
	pginfra "github.com/participa-vecinal/participa/internal/infrastructure/postgres"
	"github.com/participa-vecinal/participa/pkg/helpers"
)

type rollFile struct {
	Padron []struct {
		DNI       string `yaml:"dni"`
		Nombre    string `yaml:"nombre"`
		Apellido  string `yaml:"apellido"`
		Localidad string `yaml:"localidad"`
	} `yaml:"padron"`
}

// seed loads the electoral roll into Postgres. Entries are upserted by dni so
// the command can be re-run after editing the file.
func main() {
	path := flag.String("file", "db/seed/padron.yaml", "roll YAML file")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.Load()
	logger := helpers.NewLogger(cfg.AppName+"-seed", cfg.Env)

	raw, err := os.ReadFile(*path)
	if err != nil {
		log.Fatalf("read %s: %v", *path, err)
	}
	var f rollFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		log.Fatalf("parse %s: %v", *path, err)
	}

	ctx := context.Background()
	pool, err := pginfra.NewPool(ctx, cfg.PostgresDSN(), cfg.DBMaxConns, cfg.DBMinConns, cfg.DBMaxConnLife)
	if err != nil {
		log.Fatalf("failed to connect to postgres: %v", err)
	}
	defer pool.Close()
	if err := pginfra.Migrate(cfg.PostgresDSN(), cfg.MigrationsDir, logger); err != nil {
		log.Fatalf("migration failed: %v", err)
	}

	roll := pginfra.NewRollRepository(pool)
	seeded, skipped := 0, 0
	for _, p := range f.Padron {
		e := &entity.RollEntry{
			DNI:       entity.NormalizeDNI(p.DNI),
			Nombre:    p.Nombre,
			Apellido:  p.Apellido,
			Localidad: p.Localidad,
		}
		if e.DNI == "" {
			skipped++
			logger.WithField("raw_dni", p.DNI).Warn("skipping entry without digits")
			continue
		}
		if err := roll.Upsert(ctx, e); err != nil {
			log.Fatalf("upsert dni %s: %v", e.DNI, err)
		}
		seeded++
	}
	logger.WithField("seeded", seeded).WithField("skipped", skipped).Info("roll seeded")
}

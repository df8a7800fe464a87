// Command pipeline-seed upserts pipeline definitions from a YAML file.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"pipeline_backend/internal/pipelines/repository"
	"pipeline_backend/platform/config"
	"pipeline_backend/platform/db"
	"pipeline_backend/platform/logger"
	"pipeline_backend/platform/validator"

	"gopkg.in/yaml.v3"
)

type seedFile struct {
	Pipelines []repository.PipelineDefinition `yaml:"pipelines" validate:"required,min=1,dive"`
}

func main() {
	file := flag.String("file", "seeds/pipelines.yaml", "YAML file with pipeline definitions")
	migrate := flag.Bool("migrate", true, "run database migrations before seeding")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	log := logger.New(cfg.Env)

	f, err := os.Open(*file)
	if err != nil {
		log.Error("failed to open seed file", "file", *file, "error", err)
		os.Exit(1)
	}
	defer f.Close()

	defs, err := parseDefinitions(f, validator.New())
	if err != nil {
		log.Error("invalid seed file", "file", *file, "error", err)
		os.Exit(1)
	}

	ctx := context.Background()
	if *migrate {
		if err := db.RunMigrations(ctx, cfg, cfg.MigrationsDir); err != nil {
			log.Error("failed to run database migrations", "error", err)
			os.Exit(1)
		}
	}

	pool, err := db.NewPool(ctx, cfg)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	repo := repository.New(pool)
	for _, def := range defs {
		id, err := repo.UpsertPipeline(ctx, def)
		if err != nil {
			log.Error("failed to upsert pipeline", "pipeline", def.Name, "error", err)
			os.Exit(1)
		}
		log.Info("pipeline seeded", "pipeline", def.Name, "id", id, "stages", len(def.Stages))
	}
}

func parseDefinitions(r io.Reader, val *validator.Validator) ([]repository.PipelineDefinition, error) {
	var seed seedFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&seed); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}

	if err := val.Struct(seed); err != nil {
		return nil, fmt.Errorf("validate: %s", strings.Join(validator.Describe(err), "; "))
	}

	for _, def := range seed.Pipelines {
		seen := make(map[string]struct{}, len(def.Stages))
		for _, stage := range def.Stages {
			if _, dup := seen[stage.Name]; dup {
				return nil, fmt.Errorf("pipeline %q: duplicate stage %q", def.Name, stage.Name)
			}
			seen[stage.Name] = struct{}{}
		}
	}
	return seed.Pipelines, nil
}

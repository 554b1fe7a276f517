package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/mockielts/mockielts-backend/internal/config"
	"github.com/mockielts/mockielts-backend/internal/database"
	"github.com/mockielts/mockielts-backend/internal/logger"
	"github.com/mockielts/mockielts-backend/internal/model"
	"github.com/mockielts/mockielts-backend/internal/repository"
	"github.com/mockielts/mockielts-backend/internal/service"
	"github.com/mockielts/mockielts-backend/internal/validator"
)

func main() {
	var (
		files   multiFlag
		author  string
		publish bool
	)
	flag.Var(&files, "file", "Test document to import (repeatable)")
	flag.StringVar(&author, "author", "seed", "created_by recorded on the imported tests")
	flag.BoolVar(&publish, "publish", true, "Publish tests after import")
	flag.Parse()
	if len(files) == 0 {
		files = multiFlag{"fixtures/sample_test.json"}
	}

	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	testService := service.NewTestService(repository.NewTestRepository(pool), rdb, log)

	fmt.Printf("=== Importing %d test(s) ===\n", len(files))
	for _, path := range files {
		req, err := readDocument(path)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("Invalid test document")
		}

		test, err := testService.Create(ctx, author, *req)
		if err != nil {
			log.Fatal().Err(err).Str("file", path).Msg("Failed to create test")
		}
		if publish {
			if test, err = testService.Publish(ctx, test.ID); err != nil {
				log.Fatal().Err(err).Str("file", path).Msg("Failed to publish test")
			}
		}

		summary := test.Summary()
		fmt.Printf("%s  %-9s  %s  (%d sections)\n", test.ID, test.Status, test.Title, len(summary.Sections))
	}
}

// readDocument loads and validates a {title, structure} document.
func readDocument(path string) (*model.CreateTestRequest, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var req model.CreateTestRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	if fields := validator.Struct(&req); fields != nil {
		return nil, fmt.Errorf("validation failed: %v", fields)
	}
	return &req, nil
}

type multiFlag []string

func (m *multiFlag) String() string { return fmt.Sprint(*m) }

func (m *multiFlag) Set(v string) error {
	*m = append(*m, v)
	return nil
}

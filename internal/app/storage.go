package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/prk-tuition/homework-service/internal/cache"
	"github.com/prk-tuition/homework-service/internal/config"
	"github.com/prk-tuition/homework-service/internal/database"
	"github.com/prk-tuition/homework-service/internal/importer"
	"github.com/prk-tuition/homework-service/internal/repository"
	"github.com/prk-tuition/homework-service/internal/repository/sheetstore"
	"github.com/prk-tuition/homework-service/internal/sheets"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// Storage holds the repositories of the configured backend together with
// the connections they need.
type Storage struct {
	importer.Repositories
	db    *sql.DB
	base  *repository.PostgresRepository
	redis *redis.Client
}

func NewStorage(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*Storage, error) {
	s := &Storage{}
	if cfg.Cache.Driver == config.CacheDriverRedis || cfg.Auth.SessionStore == config.CacheDriverRedis {
		client, err := newRedis(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		s.redis = client
		log.Info().Str("addr", cfg.Redis.Addr).Msg("Connected to Redis")
	}

	switch cfg.Storage.Driver {
	case config.StorageDriverSheets:
		gw, err := s.openSheets(ctx, cfg, log)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.Repositories = sheetRepositories(gw, cfg.Storage.Sheets, log)
		log.Info().Msg("Using spreadsheet storage")

	default:
		db, err := database.NewPostgres(cfg.Database)
		if err != nil {
			s.Close()
			return nil, err
		}
		s.db = db
		s.base = repository.NewPostgresRepository(db, log)
		s.Repositories = importer.Repositories{
			Users:         repository.NewUserRepository(db, log),
			Questions:     repository.NewQuestionRepository(db, log),
			Answers:       repository.NewAnswerRepository(db, log),
			Announcements: repository.NewAnnouncementRepository(db, log),
		}
		log.Info().Msg("Database connection established")
	}

	return s, nil
}

func (s *Storage) openSheets(ctx context.Context, cfg *config.Config, log zerolog.Logger) (*sheets.Gateway, error) {
	backend, err := sheets.NewGoogleBackend(ctx, cfg.Storage.Sheets.CredentialsBase64, cfg.Storage.Sheets.RequestTimeout, log)
	if err != nil {
		return nil, err
	}
	return sheets.NewGateway(backend, s.cache(cfg, log), log), nil
}

func (s *Storage) cache(cfg *config.Config, log zerolog.Logger) cache.Cache {
	if cfg.Cache.Driver == config.CacheDriverRedis && s.redis != nil {
		return cache.NewRedisCache(s.redis, "homework:", cfg.Cache.TTL, log)
	}
	return cache.NewMemoryCache(cfg.Cache.TTL)
}

func sheetRepositories(gw *sheets.Gateway, ids config.SheetsConfig, log zerolog.Logger) importer.Repositories {
	return importer.Repositories{
		Users:         sheetstore.NewUserRepository(gw, ids.UsersID, log),
		Questions:     sheetstore.NewQuestionRepository(gw, ids.QuestionsID, log),
		Answers:       sheetstore.NewAnswerRepository(gw, ids.AnswersID, log),
		Announcements: sheetstore.NewAnnouncementRepository(gw, ids.AnnouncementsID, log),
	}
}

// Ping checks the connections the repositories depend on. The spreadsheet
// backend has no connection to check.
func (s *Storage) Ping(ctx context.Context) error {
	if s.base != nil {
		if err := s.base.Ping(ctx); err != nil {
			return fmt.Errorf("database unavailable: %w", err)
		}
	}
	if s.redis != nil {
		if err := s.redis.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis unavailable: %w", err)
		}
	}
	return nil
}

func (s *Storage) Close() {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.redis != nil {
		_ = s.redis.Close()
	}
}

func newRedis(ctx context.Context, cfg config.RedisConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return client, nil
}

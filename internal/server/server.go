package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"

	"github.com/victornm/tweetle/internal/api"
	"github.com/victornm/tweetle/internal/catalog"
	"github.com/victornm/tweetle/internal/domain"
	"github.com/victornm/tweetle/internal/event"
	"github.com/victornm/tweetle/internal/game"
	"github.com/victornm/tweetle/internal/progress"
	"github.com/victornm/tweetle/internal/storage/pgkv"
	"github.com/victornm/tweetle/internal/storage/rediskv"
	"github.com/victornm/tweetle/internal/storage/sqlitekv"
	"github.com/victornm/tweetle/internal/telemetry"
)

const (
	StorageMemory   = "memory"
	StorageRedis    = "redis"
	StoragePostgres = "postgres"
	StorageSQLite   = "sqlite"
)

type Config struct {
	HTTP struct {
		Port int32
	}

	GRPC struct {
		Port int32
	}

	Log struct {
		Level string
	}

	Game struct {
		Timezone string
		Lookback int
		ShareURL string
	}

	Catalog struct {
		Path string
	}

	Storage struct {
		Backend string
	}

	Redis struct {
		Progress struct {
			Addrs  []string
			Pass   string
			Prefix string
		}

		Pubsub struct {
			Addrs  []string
			Pass   string
			Prefix string
		}
	}

	Postgres struct {
		Progress struct {
			Addr string
			User string
			Pass string
			Name string
		}
	}

	SQLite struct {
		Path string
	}
}

// DefaultConfig returns the configuration of a single-node server keeping progress in memory.
func DefaultConfig() Config {
	var c Config
	c.HTTP.Port = 8080
	c.GRPC.Port = 9090
	c.Log.Level = "info"
	c.Game.Timezone = "UTC"
	c.Game.ShareURL = "https://tweetle.app"
	c.Storage.Backend = StorageMemory
	c.Redis.Progress.Prefix = "tweetle"
	c.Redis.Pubsub.Prefix = "tweetle"
	c.SQLite.Path = "tweetle.db"
	return c
}

type Server struct {
	c Config

	eb  *event.Bus
	loc *time.Location

	infra struct {
		redis struct {
			progress redis.UniversalClient
			pubsub   redis.UniversalClient
		}

		postgres *pgxpool.Pool
		sqlite   *sql.DB
	}

	catalog  *catalog.Catalog
	progress progress.Backend

	service struct {
		game *game.Service
	}

	http *http.Server
	grpc *grpc.Server
}

func Init(c Config) (*Server, error) {
	s := &Server{c: c}

	loc, err := time.LoadLocation(c.Game.Timezone)
	if err != nil {
		return nil, fmt.Errorf("server: game timezone %q: %w", c.Game.Timezone, err)
	}
	s.loc = loc

	s.catalog, err = LoadCatalog(c.Catalog.Path)
	if err != nil {
		return nil, fmt.Errorf("server: %w", err)
	}

	s.eb = event.NewBus()
	s.eb.Subscribe(domain.EventNameGameFinished, telemetry.CountGameFinished)

	if err := s.initInfra(); err != nil {
		return nil, fmt.Errorf("server: init infra: %w", err)
	}

	s.initService()
	s.initAPI()
	return s, nil
}

// LoadCatalog loads the puzzle file at path, or the embedded puzzles when path is empty.
func LoadCatalog(path string) (*catalog.Catalog, error) {
	if path == "" {
		return catalog.Default()
	}

	c, err := catalog.LoadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog %s: %w", path, err)
	}

	return c, nil
}

func (s *Server) initInfra() error {
	if err := s.initRedis(); err != nil {
		return fmt.Errorf("redis: %w", err)
	}

	switch s.c.Storage.Backend {
	case StorageMemory, "":
		s.progress = progress.NewMemoryBackend()
	case StorageRedis:
		s.progress = rediskv.New(rediskv.Config{
			Redis:  s.infra.redis.progress,
			Prefix: s.c.Redis.Progress.Prefix,
		})
	case StoragePostgres:
		if err := s.initPostgres(); err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
	case StorageSQLite:
		if err := s.initSQLite(); err != nil {
			return fmt.Errorf("sqlite: %w", err)
		}
	default:
		return fmt.Errorf("unknown storage backend %q", s.c.Storage.Backend)
	}

	slog.Info("server: progress storage ready", "backend", s.c.Storage.Backend)
	return nil
}

func (s *Server) initRedis() error {
	connect := func(name string, addrs []string, pass string) (redis.UniversalClient, error) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		r := redis.NewUniversalClient(&redis.UniversalOptions{
			Addrs:    addrs,
			Password: pass,
		})

		if err := telemetry.MonitorRedis(name, r); err != nil {
			return nil, err
		}

		if err := r.Ping(ctx).Err(); err != nil {
			return nil, err
		}

		return r, nil
	}

	var err error
	if s.c.Storage.Backend == StorageRedis {
		s.infra.redis.progress, err = connect("progress", s.c.Redis.Progress.Addrs, s.c.Redis.Progress.Pass)
		if err != nil {
			return fmt.Errorf("progress: %w", err)
		}
	}

	// Notifications are optional.
	if len(s.c.Redis.Pubsub.Addrs) > 0 {
		s.infra.redis.pubsub, err = connect("pubsub", s.c.Redis.Pubsub.Addrs, s.c.Redis.Pubsub.Pass)
		if err != nil {
			return fmt.Errorf("pubsub: %w", err)
		}
	}

	return nil
}

func (s *Server) initPostgres() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pc := s.c.Postgres.Progress
	cc, err := pgxpool.ParseConfig(fmt.Sprintf("postgres://%s:%s@%s/%s", pc.User, pc.Pass, pc.Addr, pc.Name))
	if err != nil {
		return err
	}

	db, err := pgxpool.NewWithConfig(ctx, cc)
	if err != nil {
		return err
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return err
	}

	b := pgkv.New(pgkv.Config{DB: db})
	if err := b.Migrate(ctx); err != nil {
		db.Close()
		return err
	}

	s.infra.postgres = db
	s.progress = b
	return nil
}

func (s *Server) initSQLite() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := sqlitekv.Open(ctx, s.c.SQLite.Path)
	if err != nil {
		return err
	}

	s.infra.sqlite = db
	s.progress = sqlitekv.New(db)
	return nil
}

func (s *Server) initService() {
	s.service.game = game.NewService(game.Config{
		Catalog:  s.catalog,
		EventBus: s.eb,
		Lookback: s.c.Game.Lookback,
	})
}

func (s *Server) initAPI() {
	e := gin.New()
	e.GET("/metrics", gin.WrapH(promhttp.Handler()))
	pprof.Register(e, "/debug/pprof")
	e.Use(gin.Recovery())

	s.grpc = grpc.NewServer(telemetry.GRPCServerInterceptor())

	c := api.Config{
		Router:       e,
		GRPC:         s.grpc,
		EventBus:     s.eb,
		Game:         s.service.game,
		Progress:     s.progress,
		Now:          s.Now,
		ShareURL:     s.c.Game.ShareURL,
		PubsubPrefix: s.c.Redis.Pubsub.Prefix,
	}
	if s.infra.redis.pubsub != nil {
		c.Redis = s.infra.redis.pubsub
	}
	api.New(c)

	s.http = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.c.HTTP.Port),
		Handler:           e,
		ReadHeaderTimeout: 60 * time.Second,
	}
}

// Now is the server clock in the game's timezone.
func (s *Server) Now() time.Time {
	return time.Now().In(s.loc)
}

func (s *Server) Start() {
	ctx := context.TODO()

	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.c.GRPC.Port))
	if err != nil {
		slog.ErrorContext(ctx, "grpc server: listen failed", "error", err)
		panic(err)
	}

	var eg errgroup.Group
	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: gRPC listening on port %d", s.c.GRPC.Port))
		return s.grpc.Serve(lis)
	})

	eg.Go(func() error {
		slog.InfoContext(ctx, fmt.Sprintf("server: HTTP listening on port %d", s.c.HTTP.Port))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	err = eg.Wait()
	if err != nil {
		slog.ErrorContext(ctx, "server: shutdown with error", "error", err)
	}
}

func (s *Server) Shutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.grpc.GracefulStop()
	if err := s.http.Shutdown(ctx); err != nil {
		slog.ErrorContext(ctx, "server: shutdown HTTP failed", "error", err)
	}

	s.eb.Stop()

	for name, r := range map[string]redis.UniversalClient{
		"progress": s.infra.redis.progress,
		"pubsub":   s.infra.redis.pubsub,
	} {
		if r == nil {
			continue
		}
		if err := r.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close redis failed", "client", name, "error", err)
		}
	}

	if s.infra.postgres != nil {
		s.infra.postgres.Close()
	}

	if s.infra.sqlite != nil {
		if err := s.infra.sqlite.Close(); err != nil {
			slog.ErrorContext(ctx, "server: close sqlite failed", "error", err)
		}
	}

	slog.InfoContext(ctx, "server: shutdown completed")
}

package cli

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"assessment-engine/internal/app"
	"assessment-engine/internal/config"
	"assessment-engine/internal/domain"
	"assessment-engine/internal/engine"
	"assessment-engine/internal/infra/memory"
	pgstore "assessment-engine/internal/infra/postgres"
	rediscache "assessment-engine/internal/infra/redis"
	transport "assessment-engine/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
)

// NewServeCmd builds the CLI subcommand to start the server.
func NewServeCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the assessment server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var (
		assessments app.AssessmentRepository
		submissions app.SubmissionStore
		results     app.ResultStore
		access      engine.AccessChecker
	)
	if cfg.Postgres.URL != "" {
		pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
		db := bun.NewDB(sqldb, pgdialect.New())

		assessments = pgstore.NewAssessmentLoader(pool)
		submissions = pgstore.NewSubmissionStore(db)
		results = pgstore.NewResultStore(db)
		// Purchase lookups come from the payments service; until that
		// integration lands the paid gate runs against recorded grants.
		access = memory.NewStaticAccessChecker()
	} else {
		assessments = memory.NewStaticAssessmentRepository(sampleAssessments())
		submissions = memory.NewSubmissionStore()
		results = memory.NewResultStore()
		access = memory.NewStaticAccessChecker()
	}

	source := app.NewMeritListSource(results)
	ttl := config.TTLDuration(cfg.MeritList.TTL, 10*time.Minute)
	var meritLists app.MeritListProvider
	if redisClient != nil {
		meritLists = rediscache.NewMeritListCache(redisClient, source, ttl)
	} else {
		meritLists = memory.NewMeritListCache(source, ttl)
	}

	service := app.NewAssessmentService(assessments, submissions, results, meritLists, access)
	handler := transport.NewHandler(service)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	handler.Register(mux)
	mux.HandleFunc("/ws/meritlist", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting assessment engine on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleAssessments seeds the in-memory repository for demos and local runs
// without Postgres.
func sampleAssessments() map[string]domain.Assessment {
	oneAttempt := 1
	return map[string]domain.Assessment{
		"demo-quiz": {
			ID:     "demo-quiz",
			Kind:   domain.KindQuiz,
			Title:  "Demo quiz",
			IsFree: true,
			Questions: []domain.Question{
				{
					ID:             "q1",
					Type:           domain.QuestionSingle,
					Prompt:         "What is 2 + 2?",
					Options:        []string{"3", "4", "5"},
					CorrectOptions: []int{1},
					PositiveMarks:  2,
					NegativeMark:   0.5,
				},
				{
					ID:             "q2",
					Type:           domain.QuestionMultiple,
					Prompt:         "Which are even?",
					Options:        []string{"2", "3", "4"},
					CorrectOptions: []int{0, 2},
					PositiveMarks:  3,
					NegativeMark:   1,
				},
			},
			DurationSeconds: 600,
			AttemptLimit:    &oneAttempt,
		},
	}
}

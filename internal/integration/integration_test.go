package integration

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"assessment-engine/internal/app"
	"assessment-engine/internal/domain"
	pgstore "assessment-engine/internal/infra/postgres"
	pgmigrations "assessment-engine/internal/infra/postgres/migrations"
	infraredis "assessment-engine/internal/infra/redis"
	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"
)

type allowAll struct{}

func (allowAll) HasAccess(context.Context, string, string) (bool, error) { return true, nil }

func TestSubmitAndRankEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db := bunDB(pgURL)
	defer db.Close()
	migrateAndSeed(t, ctx, db, sampleAssessment())

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}

	results := pgstore.NewResultStore(db)
	meritLists := infraredis.NewMeritListCache(redisClient, app.NewMeritListSource(results), 5*time.Minute)
	service := app.NewAssessmentService(
		pgstore.NewAssessmentLoader(pool),
		pgstore.NewSubmissionStore(db),
		results,
		meritLists,
		allowAll{},
	)

	// Two learners, one correct and one wrong on the single question.
	first, err := service.Submit(ctx, app.SubmitRequest{
		UserID:           "alice",
		AssessmentID:     "series-1",
		Answers:          map[string][]int{"q1": {1}},
		TimeTakenSeconds: 30,
	})
	if err != nil {
		t.Fatalf("submit alice: %v", err)
	}
	if first.TotalScore != 4 || first.ReviewStatus != domain.ReviewPending {
		t.Fatalf("unexpected alice result: %+v", first)
	}
	if _, err := service.Submit(ctx, app.SubmitRequest{
		UserID:           "bob",
		AssessmentID:     "series-1",
		Answers:          map[string][]int{"q1": {0}},
		TimeTakenSeconds: 45,
	}); err != nil {
		t.Fatalf("submit bob: %v", err)
	}

	// Second attempt by alice trips the limit of 1.
	_, err = service.Submit(ctx, app.SubmitRequest{
		UserID:       "alice",
		AssessmentID: "series-1",
		Answers:      map[string][]int{"q1": {1}},
	})
	if !errors.Is(err, domain.ErrNoAttemptsLeft) {
		t.Fatalf("expected ErrNoAttemptsLeft, got %v", err)
	}

	entries, err := service.MeritList(ctx, "series-1")
	if err != nil {
		t.Fatalf("merit list: %v", err)
	}
	if len(entries) != 2 || entries[0].UserID != "alice" || entries[0].Rank != 1 || entries[1].Rank != 2 {
		t.Fatalf("unexpected merit list: %+v", entries)
	}

	// Review path: assign then approve with a manual override; the amended
	// score flows into the next ranking read.
	if _, err := service.Review(ctx, app.ReviewRequest{SubmissionID: first.SubmissionID, Action: domain.ReviewAssign}); err != nil {
		t.Fatalf("assign: %v", err)
	}
	override := -2.0
	reviewed, err := service.Review(ctx, app.ReviewRequest{
		SubmissionID: first.SubmissionID,
		Action:       domain.ReviewApprove,
		Comment:      "sheet mismatch",
		ManualScore:  &override,
	})
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if reviewed.Version != 2 || reviewed.ReviewStatus != domain.ReviewApproved {
		t.Fatalf("unexpected reviewed result: %+v", reviewed)
	}

	entries, err = service.MeritList(ctx, "series-1")
	if err != nil {
		t.Fatalf("merit list after review: %v", err)
	}
	if entries[0].UserID != "bob" || entries[1].TotalScore != override {
		t.Fatalf("expected bob leading after override, got %+v", entries)
	}
}

func bunDB(dsn string) *bun.DB {
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	return bun.NewDB(sqldb, pgdialect.New())
}

func migrateAndSeed(t *testing.T, ctx context.Context, db *bun.DB, assessment domain.Assessment) {
	t.Helper()
	migrator := migrate.NewMigrator(db, pgmigrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	data, err := json.Marshal(assessment)
	if err != nil {
		t.Fatalf("marshal assessment: %v", err)
	}
	if _, err := db.ExecContext(ctx, `INSERT INTO assessments (id, data) VALUES (?, ?::jsonb) ON CONFLICT (id) DO UPDATE SET data=EXCLUDED.data`, assessment.ID, string(data)); err != nil {
		t.Fatalf("insert assessment: %v", err)
	}
}

func sampleAssessment() domain.Assessment {
	oneAttempt := 1
	return domain.Assessment{
		ID:     "series-1",
		Kind:   domain.KindTestSeries,
		Title:  "Mains mock 1",
		IsFree: true,
		Questions: []domain.Question{
			{
				ID:             "q1",
				Type:           domain.QuestionSingle,
				Prompt:         "What is 2 + 2?",
				Options:        []string{"3", "4", "5"},
				CorrectOptions: []int{1},
				PositiveMarks:  4,
				NegativeMark:   1,
			},
		},
		DurationSeconds: 3600,
		AttemptLimit:    &oneAttempt,
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "assess", "POSTGRES_PASSWORD": "assesspass", "POSTGRES_DB": "assessdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://assess:assesspass@%s:%s/assessdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

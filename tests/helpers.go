package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"github.com/teamtrack/teamtrack-api/internal/auth"
	"github.com/teamtrack/teamtrack-api/internal/handler"
	"github.com/teamtrack/teamtrack-api/internal/repo"
	"github.com/teamtrack/teamtrack-api/internal/service"
	"github.com/teamtrack/teamtrack-api/internal/storage"
)

// SetupTestDB создает тестовую БД с помощью testcontainers
func SetupTestDB(t *testing.T) (*pgxpool.Pool, func()) {
	t.Helper()
	ctx := context.Background()

	// Находим путь к миграциям
	_, filename, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filename))
	migrationsPath := filepath.Join(projectRoot, "migrations")

	// Создаем PostgreSQL контейнер
	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		postgres.WithInitScripts(filepath.Join(migrationsPath, "0001_init.up.sql")),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("Failed to start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("Failed to get connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect to database: %v", err)
	}

	if err := pool.Ping(ctx); err != nil {
		t.Fatalf("Failed to ping database: %v", err)
	}

	cleanup := func() {
		pool.Close()
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	}

	return pool, cleanup
}

// TruncateTables очищает все таблицы
func TruncateTables(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	ctx := context.Background()

	_, err := pool.Exec(ctx,
		"TRUNCATE task_history, tasks, article_history, article_images, articles, users RESTART IDENTITY CASCADE")
	if err != nil {
		t.Fatalf("Failed to truncate tables: %v", err)
	}
}

// SetupServer поднимает полный HTTP-стек поверх тестовой БД
func SetupServer(t *testing.T, pool *pgxpool.Pool) *httptest.Server {
	t.Helper()

	logger := zap.NewNop()

	blobs, err := storage.NewLocal(t.TempDir())
	if err != nil {
		t.Fatalf("Failed to init upload dir: %v", err)
	}

	taskRepo := repo.NewTaskRepo(pool)
	articleRepo := repo.NewArticleRepo(pool)
	userRepo := repo.NewUserRepo(pool)

	tokens := auth.NewTokenManager("e2e-secret", time.Hour)
	authMW := auth.NewMiddleware(tokens, userRepo, logger)

	r := handler.NewRouter(handler.Deps{
		Logger:      logger,
		Tasks:       service.NewTaskService(taskRepo, userRepo, blobs),
		Articles:    service.NewArticleService(articleRepo, blobs),
		Users:       service.NewUserService(userRepo, blobs),
		Tokens:      tokens,
		AuthMW:      authMW,
		Blobs:       blobs,
		CORSOrigins: []string{"*"},
	})

	server := httptest.NewServer(r)
	t.Cleanup(server.Close)
	return server
}

// RegisterUser регистрирует пользователя и возвращает клиента с кукой сессии
func RegisterUser(t *testing.T, server *httptest.Server, username string) (*http.Client, int64) {
	t.Helper()

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatal(err)
	}
	client := &http.Client{Jar: jar}

	body, _ := json.Marshal(map[string]string{
		"username":  username,
		"full_name": "Test " + username,
		"email":     username + "@example.com",
		"password":  "secret123",
		"shift":     "day",
	})

	resp, err := client.Post(server.URL+"/api/auth/register", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		raw, _ := io.ReadAll(resp.Body)
		t.Fatalf("register failed: %d %s", resp.StatusCode, raw)
	}

	var user struct {
		ID int64 `json:"user_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		t.Fatal(err)
	}
	return client, user.ID
}

// PromoteUser выдает пользователю повышенную роль напрямую в БД
func PromoteUser(t *testing.T, pool *pgxpool.Pool, userID int64) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		"UPDATE users SET role_id = 2 WHERE user_id = $1", userID)
	if err != nil {
		t.Fatalf("Failed to promote user: %v", err)
	}
}

// MultipartBody собирает multipart-форму из пар ключ-значение
func MultipartBody(t *testing.T, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return buf, mw.FormDataContentType()
}

// DoMultipart шлет multipart-запрос указанным методом
func DoMultipart(t *testing.T, client *http.Client, method, url string, fields map[string]string) *http.Response {
	t.Helper()

	body, contentType := MultipartBody(t, fields)
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := client.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

func DecodeJSON(t *testing.T, resp *http.Response, dst any) {
	t.Helper()
	defer resp.Body.Close()

	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
}

// BackdateDeletion сдвигает deleted_at задачи в прошлое
func BackdateDeletion(t *testing.T, pool *pgxpool.Pool, taskID int64, age time.Duration) {
	t.Helper()

	_, err := pool.Exec(context.Background(),
		"UPDATE tasks SET deleted_at = now() - $2::interval WHERE id = $1",
		taskID, fmt.Sprintf("%d seconds", int(age.Seconds())))
	if err != nil {
		t.Fatalf("Failed to backdate deletion: %v", err)
	}
}

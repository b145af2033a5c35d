package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/magabrotheeeer/character-matters/internal/migrations"
	"github.com/magabrotheeeer/character-matters/internal/models"
)

// setupTestDatabase поднимает PostgreSQL в контейнере и применяет миграции.
func setupTestDatabase(t *testing.T) *Storage {
	t.Helper()
	if testing.Short() {
		t.Skip("postgres integration test skipped in short mode")
	}
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		),
	)
	require.NoError(t, err, "failed to start container")
	t.Cleanup(func() {
		if err := pgContainer.Terminate(context.Background()); err != nil {
			t.Logf("failed to terminate container: %s", err)
		}
	})

	dsn, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	storage, err := New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = storage.Close() })

	root, err := filepath.Abs("../../..")
	require.NoError(t, err)
	require.NoError(t, migrations.Run(storage.DB, filepath.Join(root, "migrations")))
	require.NoError(t, CheckDatabaseReady(ctx, storage))
	return storage
}

// testDataFactory создаёт тестовые данные через Storage.
type testDataFactory struct {
	storage *Storage
}

func (f *testDataFactory) user(t *testing.T, email string, role models.Role) *models.User {
	t.Helper()
	u, err := f.storage.CreateUser(context.Background(), models.User{
		Email:        email,
		PasswordHash: "hashed",
		Name:         "Test " + email,
		Role:         role,
	})
	require.NoError(t, err)
	return u
}

func (f *testDataFactory) category(t *testing.T, name string) *models.Category {
	t.Helper()
	c, err := f.storage.CreateCategory(context.Background(), models.Category{Name: name, Type: models.CategoryBoth})
	require.NoError(t, err)
	return c
}

func (f *testDataFactory) ebook(t *testing.T, title string, price float64, categoryID, createdBy string) *models.Ebook {
	t.Helper()
	e, err := f.storage.CreateEbook(context.Background(), models.Ebook{
		Title:       title,
		Author:      "Author",
		Description: "About " + title,
		CoverImage:  "/uploads/cover.png",
		FileURL:     "/uploads/book.pdf",
		Price:       price,
		CategoryID:  categoryID,
		CreatedBy:   createdBy,
	})
	require.NoError(t, err)
	return e
}

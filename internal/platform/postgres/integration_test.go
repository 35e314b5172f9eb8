//go:build integration

package postgres

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/phrazzld/temba-api/internal/domain"
	"github.com/phrazzld/temba-api/internal/store"
	"github.com/phrazzld/temba-api/internal/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

var (
	containerOnce sync.Once
	sharedDSN     string
	containerErr  error
)

// setupTestDB starts one postgres container for the whole run, migrates
// it and returns a pool closed at test cleanup.
func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()

	containerOnce.Do(func() {
		sharedDSN, containerErr = startContainer()
		if containerErr == nil {
			containerErr = Migrate(context.Background(), sharedDSN, "up", discardLogger())
		}
	})
	require.NoError(t, containerErr)

	pool, err := pgxpool.New(context.Background(), sharedDSN)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func startContainer() (string, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "temba",
				"POSTGRES_PASSWORD": "temba",
				"POSTGRES_DB":       "temba",
			},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	if err != nil {
		return "", fmt.Errorf("start container: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		return "", fmt.Errorf("container host: %w", err)
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		return "", fmt.Errorf("mapped port: %w", err)
	}
	return fmt.Sprintf("postgres://temba:temba@%s:%s/temba?sslmode=disable", host, port.Port()), nil
}

// seedOrg creates an org and a user to own the rows of one test.
func seedOrg(t *testing.T, stores *store.Stores) (*domain.Org, *domain.User) {
	t.Helper()
	ctx := context.Background()

	org := &domain.Org{Name: "Org " + uuid.NewString(), PrimaryLanguage: "eng", Languages: []string{"eng", "fra"}}
	require.NoError(t, stores.Orgs.Create(ctx, org))

	user := &domain.User{Email: uuid.NewString() + "@example.com"}
	require.NoError(t, stores.Users.Create(ctx, user))
	return org, user
}

func TestIntegration_ContactsAndGroups(t *testing.T) {
	pool := setupTestDB(t)
	stores := NewStores(pool, discardLogger())
	tx := NewTxManager(pool, discardLogger())
	ctx := context.Background()
	org, user := seedOrg(t, stores)

	var contact *domain.Contact
	err := tx.RunInTx(ctx, func(ctx context.Context) error {
		group, err := stores.Groups.GetOrCreate(ctx, org, user, "Reporters")
		if err != nil {
			return err
		}
		contact, err = stores.Contacts.GetOrCreate(ctx, org, user, "Ann", []domain.URN{"tel:+250788000001"}, "eng")
		if err != nil {
			return err
		}
		return stores.Contacts.UpdateStaticGroups(ctx, contact, user, []*domain.ContactGroup{group})
	})
	require.NoError(t, err)

	found, err := stores.Contacts.GetByURN(ctx, org.ID, "tel:+250788000001")
	require.NoError(t, err)
	assert.Equal(t, contact.UUID, found.UUID)
	require.Len(t, found.Groups, 1)
	assert.Equal(t, "Reporters", found.Groups[0].Name)

	listed, err := stores.Contacts.List(ctx, org.ID, store.ListOptions{Limit: 10})
	require.NoError(t, err)
	require.Len(t, listed, 1)
	require.Len(t, listed[0].URNs, 1)
	assert.Equal(t, domain.URN("tel:+250788000001"), listed[0].URNs[0].Identity)
}

func TestIntegration_RollbackDiscardsWrites(t *testing.T) {
	pool := setupTestDB(t)
	stores := NewStores(pool, discardLogger())
	tx := NewTxManager(pool, discardLogger())
	ctx := context.Background()
	org, user := seedOrg(t, stores)

	err := tx.RunInTx(ctx, func(ctx context.Context) error {
		if _, err := stores.Labels.GetOrCreate(ctx, org, user, "Spam"); err != nil {
			return err
		}
		return store.ErrInvalidEntity
	})
	require.ErrorIs(t, err, store.ErrInvalidEntity)

	_, err = stores.Labels.GetByName(ctx, org.ID, "Spam")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestIntegration_TaskStore(t *testing.T) {
	pool := setupTestDB(t)
	ts := NewPostgresTaskStore(pool, discardLogger())
	ctx := context.Background()

	tk := stubTask{id: uuid.New(), payload: []byte(`{"org_id":1,"broadcast_id":2}`)}
	require.NoError(t, ts.SaveTask(ctx, tk))

	pending, err := ts.GetPendingTasks(ctx)
	require.NoError(t, err)
	ids := idsOf(pending, func(r task.Record) uuid.UUID { return r.ID })
	assert.Contains(t, ids, tk.id)

	require.NoError(t, ts.UpdateTaskStatus(ctx, tk.id, task.TaskStatusProcessing, ""))
	processing, err := ts.GetProcessingTasks(ctx, time.Hour)
	require.NoError(t, err)
	assert.NotContains(t, idsOf(processing, func(r task.Record) uuid.UUID { return r.ID }), tk.id)

	assert.ErrorIs(t, ts.UpdateTaskStatus(ctx, uuid.New(), task.TaskStatusFailed, "x"), task.ErrTaskNotFound)
}

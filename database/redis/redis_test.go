package redis_test

import (
	"context"
	"sync"
	"testing"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/sagarc03/filevault"
	"github.com/sagarc03/filevault/database/databasetest"
	"github.com/sagarc03/filevault/database/redis"
)

var (
	testAddr     string
	testAddrOnce sync.Once
)

// getSharedTestServer starts one redis container for the package and returns
// its address.
func getSharedTestServer(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("skipping redis container test in short mode")
	}

	testAddrOnce.Do(func() {
		ctx := context.Background()

		container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForListeningPort("6379/tcp"),
			},
			Started: true,
		})
		if err != nil {
			t.Fatalf("failed to start redis container: %v", err)
		}

		endpoint, err := container.Endpoint(ctx, "")
		if err != nil {
			_ = testcontainers.TerminateContainer(container)
			t.Fatalf("failed to get redis endpoint: %v", err)
		}

		testAddr = endpoint
	})

	if testAddr == "" {
		t.Fatal("redis container unavailable")
	}

	return testAddr
}

// setupTestDatabase returns a database under a unique key prefix.
func setupTestDatabase(t *testing.T) *redis.Database {
	t.Helper()

	addr := getSharedTestServer(t)
	db, err := redis.Connect(context.Background(), "redis://"+addr+"/0", "test-"+uuid.NewString())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

func TestRepo(t *testing.T) {
	db := setupTestDatabase(t)

	databasetest.RunStoreTests(t, func(*testing.T) filevault.MetadataStore {
		return db.Store()
	})
}

func TestLedger(t *testing.T) {
	databasetest.RunLedgerTests(t, func(t *testing.T) filevault.OrphanLedger {
		return setupTestDatabase(t).Ledger()
	})
}

func TestDatabase_MigrateAndValidate(t *testing.T) {
	db := setupTestDatabase(t)
	ctx := context.Background()

	assert.NoError(t, db.Migrate(ctx))
	assert.NoError(t, db.Validate(ctx))
	assert.NoError(t, db.Ping(ctx))
}

func TestRepo_SkipsStaleIndexEntries(t *testing.T) {
	addr := getSharedTestServer(t)
	ctx := context.Background()

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { _ = client.Close() })

	prefix := "test-" + uuid.NewString()
	store := redis.New(client, prefix).Store()

	ownerID := "alice"
	require.NoError(t, client.ZAdd(ctx, prefix+":owner:"+ownerID, goredis.Z{Score: 1, Member: uuid.NewString()}).Err())

	result, err := store.QueryByOwner(ctx, ownerID, filevault.ListQuery{})
	require.NoError(t, err)
	assert.Empty(t, result.Items)
}

func TestConnect_InvalidDSN(t *testing.T) {
	_, err := redis.Connect(context.Background(), "not-a-url", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse dsn")
}

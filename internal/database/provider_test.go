package database

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/undangan/rsvp-service/internal/config"
)

// lazyClient builds a client without contacting a server; the driver only
// dials when an operation runs.
func lazyClient(t *testing.T) *mongo.Client {
	t.Helper()
	c, err := mongo.Connect(context.Background(), options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Disconnect(context.Background()) })
	return c
}

func testConfig() (config.ProjectConfig, config.MongoDBConfig) {
	return config.ProjectConfig{ProjectID: "undangan-test"},
		config.MongoDBConfig{URI: "mongodb://example:27017", Database: "undangan_test", Timeout: time.Second}
}

func TestProvider_InitializesOnceUnderConcurrency(t *testing.T) {
	var calls int32
	client := lazyClient(t)
	project, mcfg := testConfig()
	p := NewProvider(project, mcfg, WithDialer(func(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
		atomic.AddInt32(&calls, 1)
		time.Sleep(10 * time.Millisecond)
		return client, nil
	}))
	require.False(t, p.Ready())

	var wg sync.WaitGroup
	handles := make([]*Handle, 16)
	for i := range handles {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h, err := p.Acquire(context.Background())
			assert.NoError(t, err)
			handles[i] = h
		}(i)
	}
	wg.Wait()

	require.Equal(t, int32(1), atomic.LoadInt32(&calls))
	for _, h := range handles {
		require.Same(t, handles[0], h)
	}
	require.Equal(t, "undangan_test", handles[0].DB.Name())
	require.Equal(t, "undangan-test", handles[0].ProjectID)
	require.Equal(t, "rsvp-messages", handles[0].Collection("rsvp-messages").Name())
	require.True(t, p.Ready())
}

func TestProvider_DoesNotCacheFailure(t *testing.T) {
	var calls int32
	client := lazyClient(t)
	project, mcfg := testConfig()
	p := NewProvider(project, mcfg, WithDialer(func(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
		if atomic.AddInt32(&calls, 1) == 1 {
			return nil, errors.New("connection refused")
		}
		return client, nil
	}))

	_, err := p.Acquire(context.Background())
	require.ErrorContains(t, err, "connection refused")
	require.False(t, p.Ready())

	h, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NotNil(t, h)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestProvider_NotConfigured(t *testing.T) {
	project, mcfg := testConfig()
	mcfg.URI = ""
	dialed := false
	p := NewProvider(project, mcfg, WithDialer(func(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
		dialed = true
		return nil, nil
	}))

	_, err := p.Acquire(context.Background())
	require.ErrorIs(t, err, ErrNotConfigured)
	require.False(t, dialed)
}

func TestProvider_CloseAllowsReconnect(t *testing.T) {
	var calls int32
	project, mcfg := testConfig()
	p := NewProvider(project, mcfg, WithDialer(func(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
		atomic.AddInt32(&calls, 1)
		return mongo.Connect(ctx, options.Client().ApplyURI("mongodb://127.0.0.1:1"))
	}))

	require.NoError(t, p.Close(context.Background()))
	_, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.NoError(t, p.Close(context.Background()))
	require.False(t, p.Ready())
	h, err := p.Acquire(context.Background())
	require.NoError(t, err)
	require.Equal(t, int32(2), atomic.LoadInt32(&calls))
	require.NoError(t, h.Client.Disconnect(context.Background()))
}

func TestConnectMongo_InvalidURI(t *testing.T) {
	_, err := ConnectMongo(context.Background(), "bogus://nowhere", time.Second)
	require.ErrorContains(t, err, "mongo connect")
}

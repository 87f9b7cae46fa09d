package infrastructure

import (
	"context"
	"errors"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const queueKey = "terminal:transactions"

func TestRedisSource_FetchDecodesEnvelopes(t *testing.T) {
	client, mock := redismock.NewClientMock()
	source := NewRedisSource(client, queueKey)
	ctx := context.Background()

	envelope := `{"id":"msg-1","signature":"sha256=abc","payload":{"transaction_id":"tx-1","machine_id":"m-1","amount":5}}`
	bare := `{"transaction_id":"tx-2","machine_id":"m-1","amount":7}`
	mock.ExpectLPopCount(queueKey, 10).SetVal([]string{envelope, bare})

	msgs, err := source.Fetch(ctx, 10)
	require.NoError(t, err)
	require.Len(t, msgs, 2)

	assert.Equal(t, "msg-1", msgs[0].ID())
	assert.Equal(t, "sha256=abc", msgs[0].Signature())
	assert.JSONEq(t, `{"transaction_id":"tx-1","machine_id":"m-1","amount":5}`, string(msgs[0].Data()))

	assert.Empty(t, msgs[1].ID())
	assert.Empty(t, msgs[1].Signature())
	assert.Equal(t, bare, string(msgs[1].Data()))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSource_EmptyListIsEmptyCycle(t *testing.T) {
	client, mock := redismock.NewClientMock()
	source := NewRedisSource(client, queueKey)

	mock.ExpectLPopCount(queueKey, 10).RedisNil()

	msgs, err := source.Fetch(context.Background(), 10)
	require.NoError(t, err)
	assert.Empty(t, msgs)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSource_FetchError(t *testing.T) {
	client, mock := redismock.NewClientMock()
	source := NewRedisSource(client, queueKey)

	mock.ExpectLPopCount(queueKey, 10).SetErr(errors.New("connection refused"))

	_, err := source.Fetch(context.Background(), 10)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestRedisSource_NakRequeuesRawElement(t *testing.T) {
	client, mock := redismock.NewClientMock()
	source := NewRedisSource(client, queueKey)
	ctx := context.Background()

	raw := `{"id":"msg-9","payload":{"transaction_id":"tx-9"}}`
	mock.ExpectLPopCount(queueKey, 1).SetVal([]string{raw})
	mock.ExpectRPush(queueKey, raw).SetVal(1)

	msgs, err := source.Fetch(ctx, 1)
	require.NoError(t, err)
	require.Len(t, msgs, 1)

	require.NoError(t, msgs[0].Ack(ctx))
	require.NoError(t, msgs[0].Nak(ctx))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRedisSource_Ping(t *testing.T) {
	client, mock := redismock.NewClientMock()
	source := NewRedisSource(client, queueKey)

	mock.ExpectPing().SetVal("PONG")
	assert.NoError(t, source.Ping(context.Background()))

	mock.ExpectPing().SetErr(errors.New("down"))
	assert.Error(t, source.Ping(context.Background()))
}

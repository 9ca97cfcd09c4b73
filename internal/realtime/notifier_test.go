package realtime

import (
	"context"
	"testing"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifier_NotifyChange(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	notifier := NewNotifier(rdb)

	mock.ExpectPublish(ChannelLeads, "changed").SetVal(1)
	notifier.NotifyChange(context.Background(), ChannelLeads)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestNotifier_NotifyChange_publishErrorSwallowed(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	notifier := NewNotifier(rdb)

	mock.ExpectPublish(ChannelContactMessages, "changed").SetErr(assert.AnError)

	// must not panic or surface the error
	notifier.NotifyChange(context.Background(), ChannelContactMessages)

	require.NoError(t, mock.ExpectationsWereMet())
}

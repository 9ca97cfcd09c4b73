package realtime

import (
	"context"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

// Channels carrying table change events from the write path to the
// dashboard syncer. One channel per watched table.
const (
	ChannelContactMessages = "knweb:changed:contact_messages"
	ChannelLeads           = "knweb:changed:leads"
	ChannelStarterSlots    = "knweb:changed:starter_offer_slots"
)

// WatchedChannels lists all channels the dashboard syncer subscribes to.
var WatchedChannels = []string{
	ChannelContactMessages,
	ChannelLeads,
	ChannelStarterSlots,
}

// ChangeNotifier is implemented by the write-side repos to signal that a
// watched table changed. The payload is irrelevant, subscribers re-query.
type ChangeNotifier interface {
	NotifyChange(ctx context.Context, channel string)
}

type Notifier struct {
	rdb *redis.Client
}

func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// NotifyChange publishes a change event. Best effort: a pub/sub failure is
// logged and swallowed, the write that triggered it already succeeded.
func (n *Notifier) NotifyChange(ctx context.Context, channel string) {
	if err := n.rdb.Publish(ctx, channel, "changed").Err(); err != nil {
		log.Errorf("notify change on %s: %s", channel, err)
	}
}

var _ ChangeNotifier = (*Notifier)(nil)

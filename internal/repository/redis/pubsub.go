package redis

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

type FacilitiesPubSub struct {
	rdb     *redis.Client
	channel string
}

func NewFacilitiesPubSub(rdb *redis.Client) *FacilitiesPubSub {
	return &FacilitiesPubSub{
		rdb:     rdb,
		channel: ChannelFacilitiesChanged(),
	}
}

type facilityChangedMsg struct {
	Type       string `json:"type"`
	FacilityID int64  `json:"facility_id"`
	TsUnix     int64  `json:"ts_unix"`
}

func (p *FacilitiesPubSub) PublishFacilityChanged(ctx context.Context, facilityID int64) error {
	msg := facilityChangedMsg{
		Type:       "facility_changed",
		FacilityID: facilityID,
		TsUnix:     time.Now().Unix(),
	}

	b, _ := json.Marshal(msg)

	return p.rdb.Publish(ctx, p.channel, b).Err()
}

func (p *FacilitiesPubSub) Subscribe(ctx context.Context, handler func(ctx context.Context, facilityID int64)) error {
	sub := p.rdb.Subscribe(ctx, p.channel)
	defer sub.Close()

	ch := sub.Channel(redis.WithChannelSize(256))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case m, ok := <-ch:
			if !ok {
				return nil
			}
			var ev facilityChangedMsg
			if err := json.Unmarshal([]byte(m.Payload), &ev); err == nil &&
				ev.FacilityID != 0 {
				handler(ctx, ev.FacilityID)
			}
		}
	}
}

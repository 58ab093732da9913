// SubRewind - Plex Rewind Subtitle Automation
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/subrewind

/*
bus.go - Activity Event Bus

An in-process Watermill pub/sub carrying the agent's notable moments:
session lifecycle, rewind detections, subtitle commands, listener drops. The
broker's own consumer folds the stream into a bounded ring buffer that backs
GET /api/v1/activity; additional subscribers can attach to the same topic
without touching the producers.

Record never blocks a tick: the gochannel output buffer absorbs bursts and a
full pipe drops the entry with a warning rather than stalling the monitor
loop.
*/

//nolint:staticcheck // File documentation, not package doc
package bus

import (
	"context"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/tomtom215/subrewind/internal/logging"
)

// Topic is the single activity stream topic.
const Topic = "subrewind.activity"

// defaultCapacity is the ring buffer size when the caller passes zero.
const defaultCapacity = 200

// Event is one entry of the activity feed.
type Event struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Kind       string    `json:"kind"`
	PlaybackID string    `json:"playback_id,omitempty"`
	Device     string    `json:"device,omitempty"`
	Title      string    `json:"title,omitempty"`
	Detail     string    `json:"detail,omitempty"`
}

// Broker publishes activity events and keeps the recent window for HTTP
// readers. Safe for concurrent use.
type Broker struct {
	pubsub *gochannel.GoChannel

	mu       sync.RWMutex
	recent   []Event
	capacity int
}

// NewBroker creates a broker whose Recent window holds up to capacity
// entries.
func NewBroker(capacity int) *Broker {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Broker{
		pubsub: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: 64,
		}, newWatermillLogger()),
		capacity: capacity,
	}
}

// Record builds and publishes one activity event. It implements the monitor
// layer's ActivityRecorder seam and never blocks its caller meaningfully: a
// publish failure is logged and dropped.
func (b *Broker) Record(kind, playbackID, device, title, detail string) {
	event := Event{
		ID:         uuid.NewString(),
		Timestamp:  time.Now().UTC(),
		Kind:       kind,
		PlaybackID: playbackID,
		Device:     device,
		Title:      title,
		Detail:     detail,
	}

	payload, err := json.Marshal(event)
	if err != nil {
		logging.Warn().Err(err).Str("kind", kind).Msg("Activity event marshal failed")
		return
	}

	msg := message.NewMessage(event.ID, payload)
	msg.Metadata.Set("kind", kind)
	if err := b.pubsub.Publish(Topic, msg); err != nil {
		logging.Warn().Err(err).Str("kind", kind).Msg("Activity event publish failed")
	}
}

// Run subscribes the broker's own feed consumer and folds events into the
// ring buffer until the context ends. Runs as a supervised service.
func (b *Broker) Run(ctx context.Context) error {
	messages, err := b.pubsub.Subscribe(ctx, Topic)
	if err != nil {
		return err
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			b.consume(msg)
		}
	}
}

func (b *Broker) consume(msg *message.Message) {
	defer msg.Ack()

	var event Event
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		logging.Warn().Err(err).Str("message_uuid", msg.UUID).Msg("Activity event unmarshal failed")
		return
	}

	b.mu.Lock()
	b.recent = append(b.recent, event)
	if len(b.recent) > b.capacity {
		b.recent = b.recent[len(b.recent)-b.capacity:]
	}
	b.mu.Unlock()
}

// Recent returns up to limit events, newest first. limit <= 0 means the
// whole window.
func (b *Broker) Recent(limit int) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.recent)
	if limit <= 0 || limit > n {
		limit = n
	}

	out := make([]Event, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, b.recent[i])
	}
	return out
}

// Close shuts the pub/sub down; pending subscribers' channels close.
func (b *Broker) Close() error {
	return b.pubsub.Close()
}

// Package pubsub carries decoded turn reports from the agent to in-process
// consumers (logging, the archive) over a watermill GoChannel.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/nstehr/rampart/rampart-core/telemetry"
)

// TopicTurnReports is the topic every decoded report is published on.
const TopicTurnReports = "turn_reports"

// Metadata keys copied from the report so subscribers can filter without
// decoding the payload.
const (
	metaKeyPlayer = "player"
	metaKeyTurn   = "turn"
)

// ReportHandler consumes one report. An error is logged; the message is still
// acknowledged so one bad consumer cannot stall the bus.
type ReportHandler func(ctx context.Context, report telemetry.TurnReport) error

// Bus wraps a watermill GoChannel publisher and subscriber.
type Bus struct {
	pub message.Publisher
	sub message.Subscriber
}

// NewBus creates an in-memory bus. Watermill logs go to stderr.
func NewBus() *Bus {
	logger := watermill.NewStdLogger(false, false)
	goChannel := gochannel.NewGoChannel(gochannel.Config{OutputChannelBuffer: 64}, logger)
	return &Bus{pub: goChannel, sub: goChannel}
}

// PublishReport sends a copy of report to every subscriber.
func (b *Bus) PublishReport(report *telemetry.TurnReport) error {
	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(metaKeyPlayer, strconv.Itoa(report.Player))
	msg.Metadata.Set(metaKeyTurn, strconv.Itoa(report.Turn))
	return b.pub.Publish(TopicTurnReports, msg)
}

// SubscribeReports runs handler for every report on a background goroutine
// until ctx is cancelled or the bus is closed. It returns once subscribed.
func (b *Bus) SubscribeReports(ctx context.Context, handler ReportHandler) error {
	messages, err := b.sub.Subscribe(ctx, TopicTurnReports)
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", TopicTurnReports, err)
	}

	go func() {
		for msg := range messages {
			var report telemetry.TurnReport
			if err := json.Unmarshal(msg.Payload, &report); err != nil {
				slog.Error("undecodable turn report", "msg_id", msg.UUID, "error", err)
			} else if err := handler(ctx, report); err != nil {
				slog.Error("turn report handler failed",
					"msg_id", msg.UUID,
					"player", msg.Metadata.Get(metaKeyPlayer),
					"turn", msg.Metadata.Get(metaKeyTurn),
					"error", err)
			}
			msg.Ack()
		}
		slog.Debug("turn report subscription ended")
	}()
	return nil
}

// Close shuts down the bus and ends all subscriptions.
func (b *Bus) Close() error {
	return b.sub.Close()
}

package events

import (
	"context"
	"fmt"

	"parkly/pkg/kafka"
	"parkly/pkg/logger"
	"parkly/pkg/model"
)

// AuditHandler turns every slot event into one structured audit log line.
// Payloads that do not decode are permanent failures and go to the DLQ
// without retries.
func AuditHandler(log *logger.Logger) kafka.MessageHandler {
	return func(ctx context.Context, msg kafka.Message) error {
		var event model.SlotEvent
		if err := msg.DecodeValue(&event); err != nil {
			return kafka.NewPermanentError("undecodable slot event", err)
		}
		if event.Type != model.EventSlotBooked && event.Type != model.EventSlotUpdated {
			return kafka.NewPermanentError(fmt.Sprintf("unknown slot event type %q", event.Type), nil)
		}

		attrs := []any{
			"event_id", msg.GetEventID(),
			"type", event.Type,
			"session_id", event.SessionID,
			"booking_id", event.Booking.ID,
			"location", event.Booking.LocationName,
			"index", event.Booking.SlotIndex,
			"vehicle_number", event.Booking.VehicleNumber,
			"duration_hours", event.Booking.DurationHours,
			"occurred_at", event.OccurredAt,
		}
		if event.Booking.Cost != nil {
			attrs = append(attrs, "cost", *event.Booking.Cost)
		}
		if event.Booking.UpdatedBy != "" {
			attrs = append(attrs, "updated_by", event.Booking.UpdatedBy)
		}

		log.Info("Slot audit", attrs...)
		return nil
	}
}

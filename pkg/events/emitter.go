// Package events handles event emission for client lifecycle changes
package events

import (
	"context"
	"encoding/json"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/clover/pkg/kafka"
	"github.com/Ramsey-B/clover/pkg/tracing"
)

// SchemaVersion is the current event schema version
const SchemaVersion = "1.0"

// Emitter publishes client lifecycle events. It satisfies dedup.EventSink.
type Emitter struct {
	producer *kafka.Producer
	logger   ectologger.Logger
}

// NewEmitter creates a new event emitter
func NewEmitter(producer *kafka.Producer, logger ectologger.Logger) *Emitter {
	return &Emitter{
		producer: producer,
		logger:   logger,
	}
}

// EmitClientMerged emits a client.merged event after duplicates have been
// consolidated into the primary.
func (e *Emitter) EmitClientMerged(ctx context.Context, primaryID string, duplicateIDs []string, mergedCount int) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitClientMerged")
	defer span.End()

	mergeData := map[string]any{
		"schema_version": SchemaVersion,
		"merged_count":   mergedCount,
	}
	dataJSON, _ := json.Marshal(mergeData)

	event := &kafka.ClientEvent{
		EventType:     "client.merged",
		ClientID:      primaryID,
		Data:          dataJSON,
		SourceClients: duplicateIDs,
	}

	if err := e.producer.PublishClientEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit client.merged event")
		return err
	}

	return nil
}

// EmitClientDeleted emits a client.deleted event for a removed duplicate.
func (e *Emitter) EmitClientDeleted(ctx context.Context, clientID string) error {
	ctx, span := tracing.StartSpan(ctx, "events.Emitter.EmitClientDeleted")
	defer span.End()

	event := &kafka.ClientEvent{
		EventType: "client.deleted",
		ClientID:  clientID,
	}

	if err := e.producer.PublishClientEvent(ctx, event); err != nil {
		e.logger.WithContext(ctx).WithError(err).Error("Failed to emit client.deleted event")
		return err
	}

	return nil
}

package main

import (
	"context"

	"go.uber.org/zap"
)

type Consumer interface {
	Consume(ctx context.Context, qids ...string) error
}

// boltAuditConsumer drains mirrored audit entries from the queue and
// persists them into the local bolt trail.
type boltAuditConsumer struct {
	logger *zap.Logger
	queue  Queuer
	trail  AuditTrail
}

func NewBoltAuditConsumer(logger *zap.Logger, q Queuer, trail AuditTrail) Consumer {
	return &boltAuditConsumer{logger, q, trail}
}

func (bc *boltAuditConsumer) Consume(ctx context.Context, qids ...string) error {
	var entry LogEntry
	var err error
	var qid string
	for {
		qid, entry, err = bc.queue.Pop(ctx, qids...)
		if err != nil && ctx.Err() != nil {
			bc.logger.Info("consumer: queue pop call: context is done: exit", zap.String("reason", ctx.Err().Error()))
			return nil
		}

		if err != nil {
			bc.logger.Error("consumer: error on queue pop call", zap.Error(err))
			continue
		}

		if qid != AuditQueue {
			bc.logger.Warn("consumer: received entry on unknown queue id", zap.String("qid", qid), zap.Any("entry", entry))
			continue
		}

		if err = bc.trail.Append(ctx, entry); err != nil {
			bc.logger.Error("consumer: failed to persist audit entry", zap.Any("entry", entry), zap.Error(err))
		}
	}
}

package main

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ForcedReturnAction labels audit entries written by the forced-return workflow.
const ForcedReturnAction = "FORCED_RETURN"

// ForceReturn closes a borrowing on behalf of an administrator. Steps run
// strictly sequentially: fetch the current record, stamp the return date and
// write the full record back, resolve the user and book from the cached
// snapshots, append the audit entry, then re-fetch the borrowings snapshot.
//
// When either participant lookup misses the audit entry is skipped and the
// return still stands. An audit write failure never rolls back the return.
// Mutations are serialized per borrowing identity so concurrent invocations
// on the same borrowing cannot interleave; across sequential invocations the
// last written timestamp wins upstream.
func (cs *ConsoleService) ForceReturn(ctx context.Context, borrowingID string) (Borrowing, error) {
	unlock := cs.lockBorrowing(borrowingID)
	defer unlock()

	borrowing, err := cs.store.GetOneBorrowing(ctx, borrowingID)
	if err != nil {
		cs.logger.Error("forced return: failed to fetch borrowing", zap.String("borrowing.id", borrowingID), zap.Error(err))
		return Borrowing{}, fmt.Errorf("fetch borrowing %s: %w", borrowingID, err)
	}

	borrowing.ReturnDate = cs.clock.Now().UTC().Format(time.RFC3339)
	updated, err := cs.store.UpdateBorrowing(ctx, borrowingID, borrowing)
	if err != nil {
		cs.logger.Error("forced return: failed to update borrowing", zap.String("borrowing.id", borrowingID), zap.Error(err))
		return Borrowing{}, fmt.Errorf("update borrowing %s: %w", borrowingID, err)
	}

	cs.writeAuditEntry(ctx, borrowing)

	if err := cs.refreshBorrowings(ctx); err != nil {
		return updated, err
	}
	return updated, nil
}

// writeAuditEntry resolves both participants from the cached snapshots and
// appends the audit record upstream plus onto the local audit mirror queue.
// A missed lookup skips the entry entirely, which is the known gap of the
// workflow: the return succeeds without leaving an audit trace.
func (cs *ConsoleService) writeAuditEntry(ctx context.Context, borrowing Borrowing) {
	user, userFound := cs.lookupUser(borrowing.UserID)
	book, bookFound := cs.lookupBook(borrowing.BookID)
	if !userFound || !bookFound {
		cs.logger.Warn("forced return: participant lookup missed, no audit entry written",
			zap.String("borrowing.id", borrowing.ID),
			zap.Bool("user.found", userFound),
			zap.Bool("book.found", bookFound),
		)
		return
	}

	entry := LogEntry{
		Date:    borrowing.ReturnDate,
		UserID:  user.ID,
		Action:  ForcedReturnAction,
		Details: fmt.Sprintf("forced return of %q (%s) borrowed by %s", book.Title, book.Author, user.Email),
	}

	if err := cs.store.AddLogEntry(ctx, entry); err != nil {
		cs.logger.Error("forced return: failed to append audit entry", zap.String("borrowing.id", borrowing.ID), zap.Error(err))
	}

	if err := cs.queue.Push(ctx, AuditQueue, entry); err != nil {
		cs.logger.Error("forced return: failed to push audit entry to queue", zap.String("qid", AuditQueue), zap.Error(err))
	}
}

// lockBorrowing serializes mutations per borrowing identity.
func (cs *ConsoleService) lockBorrowing(id string) func() {
	cs.returnsMu.Lock()
	m, ok := cs.returning[id]
	if !ok {
		m = &sync.Mutex{}
		cs.returning[id] = m
	}
	cs.returnsMu.Unlock()
	m.Lock()
	return m.Unlock
}

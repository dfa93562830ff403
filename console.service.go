package main

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ConsoleServiceProvider exposes the operations behind the admin console intents.
type ConsoleServiceProvider interface {
	Load(ctx context.Context) error
	Snapshot() ConsoleSnapshot
	AddBook(ctx context.Context, draft BookDraft) (Book, error)
	UpdateBook(ctx context.Context, id string, book Book) (Book, error)
	DeleteBook(ctx context.Context, id string) error
	ForceReturn(ctx context.Context, borrowingID string) (Borrowing, error)
}

// ConsoleSnapshot is the read-only view served to presentation collaborators.
// Each collection keeps the upstream response order and stays valid until the
// next completed re-fetch.
type ConsoleSnapshot struct {
	Books      []Book      `json:"books"`
	Users      []User      `json:"users"`
	Borrowings []Borrowing `json:"borrowings"`
}

// ConsoleService holds the cached snapshots of the upstream collections and
// orchestrates their re-fetch after each mutation. Snapshots are replaced
// wholesale by completed fetches, never merged.
type ConsoleService struct {
	logger *zap.Logger
	config *Config
	clock  Clocker
	store  LibraryStore
	queue  Queuer

	mu         sync.RWMutex
	books      []Book
	users      []User
	borrowings []Borrowing

	returnsMu sync.Mutex
	returning map[string]*sync.Mutex
}

func NewConsoleService(logger *zap.Logger, config *Config, clock Clocker, store LibraryStore, queue Queuer) *ConsoleService {
	return &ConsoleService{
		logger:    logger,
		config:    config,
		clock:     clock,
		store:     store,
		queue:     queue,
		returning: make(map[string]*sync.Mutex),
	}
}

// Load fetches the three collections concurrently. Each fetch independently
// replaces its slice of state, so one failing collection never prevents the
// other two from populating. The first failure is reported to the caller.
func (cs *ConsoleService) Load(ctx context.Context) error {
	var g errgroup.Group
	g.Go(func() error { return cs.refreshBooks(ctx) })
	g.Go(func() error { return cs.refreshUsers(ctx) })
	g.Go(func() error { return cs.refreshBorrowings(ctx) })
	return g.Wait()
}

// Snapshot returns a copy of the current cached collections.
func (cs *ConsoleService) Snapshot() ConsoleSnapshot {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	snapshot := ConsoleSnapshot{
		Books:      make([]Book, len(cs.books)),
		Users:      make([]User, len(cs.users)),
		Borrowings: make([]Borrowing, len(cs.borrowings)),
	}
	copy(snapshot.Books, cs.books)
	copy(snapshot.Users, cs.users)
	copy(snapshot.Borrowings, cs.borrowings)
	return snapshot
}

// AddBook parses the form draft into a domain record and submits it. A parse
// failure is returned as-is so the caller can surface the faulty field and
// keep the draft intact. On success the books snapshot is re-fetched.
func (cs *ConsoleService) AddBook(ctx context.Context, draft BookDraft) (Book, error) {
	book, err := draft.Parse()
	if err != nil {
		return Book{}, err
	}

	created, err := cs.store.AddBook(ctx, book)
	if err != nil {
		cs.logger.Error("console: failed to create book", zap.String("book.title", book.Title), zap.Error(err))
		return Book{}, err
	}

	if err := cs.refreshBooks(ctx); err != nil {
		cs.logger.Error("console: failed to refresh books after create", zap.Error(err))
	}
	return created, nil
}

// UpdateBook submits the full edited record as a replacement then re-fetches
// the books snapshot. Partial edits are the presentation side's concern.
func (cs *ConsoleService) UpdateBook(ctx context.Context, id string, book Book) (Book, error) {
	updated, err := cs.store.UpdateBook(ctx, id, book)
	if err != nil {
		cs.logger.Error("console: failed to update book", zap.String("book.id", id), zap.Error(err))
		return Book{}, err
	}

	if err := cs.refreshBooks(ctx); err != nil {
		cs.logger.Error("console: failed to refresh books after update", zap.Error(err))
	}
	return updated, nil
}

// DeleteBook removes a book record. The delete is rejected locally, before
// any request goes out, while the cached record still references active
// borrowings. On success the books snapshot is re-fetched.
func (cs *ConsoleService) DeleteBook(ctx context.Context, id string) error {
	book, ok := cs.lookupBook(id)
	if !ok {
		return ErrBookNotFound
	}

	if len(book.BorrowedBy) > 0 {
		return ErrBookBorrowed
	}

	if err := cs.store.DeleteBook(ctx, id); err != nil {
		cs.logger.Error("console: failed to delete book", zap.String("book.id", id), zap.Error(err))
		return err
	}

	if err := cs.refreshBooks(ctx); err != nil {
		cs.logger.Error("console: failed to refresh books after delete", zap.Error(err))
	}
	return nil
}

func (cs *ConsoleService) refreshBooks(ctx context.Context) error {
	books, err := cs.store.GetAllBooks(ctx)
	if err != nil {
		cs.logger.Error("console: failed to fetch books", zap.Error(err))
		return fmt.Errorf("fetch books: %w", err)
	}
	cs.mu.Lock()
	cs.books = books
	cs.mu.Unlock()
	return nil
}

func (cs *ConsoleService) refreshUsers(ctx context.Context) error {
	users, err := cs.store.GetAllUsers(ctx)
	if err != nil {
		cs.logger.Error("console: failed to fetch users", zap.Error(err))
		return fmt.Errorf("fetch users: %w", err)
	}
	cs.mu.Lock()
	cs.users = users
	cs.mu.Unlock()
	return nil
}

func (cs *ConsoleService) refreshBorrowings(ctx context.Context) error {
	borrowings, err := cs.store.GetAllBorrowings(ctx)
	if err != nil {
		cs.logger.Error("console: failed to fetch borrowings", zap.Error(err))
		return fmt.Errorf("fetch borrowings: %w", err)
	}
	cs.mu.Lock()
	cs.borrowings = borrowings
	cs.mu.Unlock()
	return nil
}

// lookupBook resolves a book from the cached snapshot only.
func (cs *ConsoleService) lookupBook(id string) (Book, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	for _, book := range cs.books {
		if book.ID == id {
			return book, true
		}
	}
	return Book{}, false
}

// lookupUser resolves a user from the cached snapshot only.
func (cs *ConsoleService) lookupUser(id string) (User, bool) {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	for _, user := range cs.users {
		if user.ID == id {
			return user, true
		}
	}
	return User{}, false
}

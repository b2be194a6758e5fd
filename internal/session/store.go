// internal/session/store.go
package session

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Annany2002/nebula-workbench/internal/core"
	"github.com/Annany2002/nebula-workbench/internal/domain"
	"github.com/Annany2002/nebula-workbench/internal/engine"
	"github.com/Annany2002/nebula-workbench/internal/introspect"
	"github.com/Annany2002/nebula-workbench/internal/logger"
	"github.com/Annany2002/nebula-workbench/internal/policy"
	"github.com/Annany2002/nebula-workbench/internal/samples"
)

var (
	customLog = logger.NewLogger()
)

// StateKey is the key the session state is persisted under.
const StateKey = "workbench-session"

const maxImportNameAttempts = 8

// KeyValueStore is the durable storage the session state is written to.
type KeyValueStore interface {
	GetItem(ctx context.Context, key string) (string, bool, error)
	SetItem(ctx context.Context, key, value string) error
	RemoveItem(ctx context.Context, key string) error
}

// Store owns every known database and the single active connection.
//
// Lock order: Store.mu before database.mu. Engine and network calls are
// never made while Store.mu is held.
type Store struct {
	opener    engine.Opener
	evaluator policy.Evaluator
	kv        KeyValueStore

	mu        sync.RWMutex
	databases map[string]*database
	pending   map[string]struct{}
	removing  map[string]struct{}
	active    *connection

	persistMu sync.Mutex
}

// NewStore creates an empty session. Call Init to load persisted state.
func NewStore(opener engine.Opener, evaluator policy.Evaluator, kv KeyValueStore) *Store {
	return &Store{
		opener:    opener,
		evaluator: evaluator,
		kv:        kv,
		databases: make(map[string]*database),
		pending:   make(map[string]struct{}),
		removing:  make(map[string]struct{}),
	}
}

func now() time.Time {
	return time.Now().UTC()
}

// Create opens a new engine for name, introspects it and makes it active.
func (s *Store) Create(ctx context.Context, name, description string) (domain.DatabaseMetadata, error) {
	if !core.IsValidIdentifier(name) {
		return domain.DatabaseMetadata{}, domain.Errorf(domain.ErrInvalidInput,
			"invalid database name '%s': use letters, digits and underscores (max %d)", name, core.MaxIdentifierLength)
	}

	s.mu.Lock()
	if _, exists := s.databases[name]; exists {
		s.mu.Unlock()
		return domain.DatabaseMetadata{}, domain.Errorf(domain.ErrDuplicateName, "db with name: %s already exists", name)
	}
	if _, exists := s.pending[name]; exists {
		s.mu.Unlock()
		return domain.DatabaseMetadata{}, domain.Errorf(domain.ErrDuplicateName, "db with name: %s already exists", name)
	}
	s.pending[name] = struct{}{}
	s.mu.Unlock()
	defer s.unreserve(name)

	return s.build(ctx, name, description, "")
}

// Import builds a new database from the sample script sampleKey under a
// freshly generated unique name and makes it active.
func (s *Store) Import(ctx context.Context, sampleKey, description string) (domain.DatabaseMetadata, error) {
	script, err := samples.Script(sampleKey)
	if err != nil {
		return domain.DatabaseMetadata{}, err
	}

	name, err := s.reserveImportName(sampleKey)
	if err != nil {
		return domain.DatabaseMetadata{}, err
	}
	defer s.unreserve(name)

	return s.build(ctx, name, description, script)
}

func (s *Store) reserveImportName(sampleKey string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := 0; i < maxImportNameAttempts; i++ {
		suffix := strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
		name := sampleKey + "_" + suffix
		if _, exists := s.databases[name]; exists {
			continue
		}
		if _, exists := s.pending[name]; exists {
			continue
		}
		s.pending[name] = struct{}{}
		return name, nil
	}
	return "", domain.Errorf(domain.ErrDuplicateName, "could not generate a unique name for sample '%s'", sampleKey)
}

func (s *Store) unreserve(name string) {
	s.mu.Lock()
	delete(s.pending, name)
	s.mu.Unlock()
}

// build opens the engine, optionally seeds it with script and introspects it.
// Nothing is committed unless every step succeeds.
func (s *Store) build(ctx context.Context, name, description, script string) (domain.DatabaseMetadata, error) {
	eng, err := s.opener.Open(ctx, name)
	if err != nil {
		customLog.Warnf("Session: Failed to open engine for '%s': %v", name, err)
		return domain.DatabaseMetadata{}, err
	}

	discard := func() {
		if cerr := eng.Close(); cerr != nil {
			customLog.Warnf("Session: Failed to close engine for '%s': %v", name, cerr)
		}
		if rerr := s.opener.Remove(context.WithoutCancel(ctx), name); rerr != nil {
			customLog.Warnf("Session: Failed to remove storage for '%s': %v", name, rerr)
		}
	}

	if script != "" {
		if _, err := eng.Exec(ctx, script); err != nil {
			customLog.Warnf("Session: Seeding '%s' failed: %v", name, err)
			discard()
			return domain.DatabaseMetadata{}, err
		}
	}

	schema, erd, err := introspect.Snapshot(ctx, eng)
	if err != nil {
		discard()
		return domain.DatabaseMetadata{}, err
	}

	db := newDatabase(name, description, now(), schema, erd)
	s.mu.Lock()
	s.databases[name] = db
	previous := s.active
	s.active = newConnection(name, eng)
	s.mu.Unlock()

	if previous != nil {
		previous.retire()
	}
	customLog.Printf("Session: Database '%s' created and active", name)

	return db.snapshot(), s.commit(ctx)
}

// Update changes the description of name and refreshes its timestamp.
func (s *Store) Update(ctx context.Context, name, description string) (domain.DatabaseMetadata, error) {
	db, err := s.lookup(name)
	if err != nil {
		return domain.DatabaseMetadata{}, err
	}
	db.describe(description, now())
	return db.snapshot(), s.commit(ctx)
}

// Remove deletes the engine storage behind name and then forgets it. The
// active connection is dropped first when it points at name. If closing the
// handle or deleting the storage fails, name stays known.
func (s *Store) Remove(ctx context.Context, name string) error {
	s.mu.Lock()
	if _, ok := s.databases[name]; !ok {
		s.mu.Unlock()
		return domain.Errorf(domain.ErrNotFound, "database '%s' not found", name)
	}
	if _, busy := s.removing[name]; busy {
		s.mu.Unlock()
		return domain.Errorf(domain.ErrInvalidInput, "database '%s' is already being removed", name)
	}
	s.removing[name] = struct{}{}
	var previous *connection
	if s.active != nil && s.active.name == name {
		previous = s.active
		s.active = nil
	}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.removing, name)
		s.mu.Unlock()
	}()

	if previous != nil {
		select {
		case <-previous.retire():
		case <-ctx.Done():
			customLog.Warnf("Session: Gave up removing '%s' while its engine was in use: %v", name, ctx.Err())
			return ctx.Err()
		}
	}

	if err := s.opener.Remove(ctx, name); err != nil {
		customLog.Warnf("Session: Failed to remove storage for '%s': %v", name, err)
		if !errors.Is(err, domain.ErrStorage) {
			err = domain.Wrap(domain.ErrStorage, err)
		}
		return err
	}

	s.mu.Lock()
	delete(s.databases, name)
	s.mu.Unlock()

	customLog.Printf("Session: Database '%s' removed", name)
	return s.commit(ctx)
}

// Connect reattaches to the storage of an existing database, refreshes its
// catalog and makes it active. History, query and policy state are kept.
func (s *Store) Connect(ctx context.Context, name string) (domain.DatabaseMetadata, error) {
	if _, err := s.lookup(name); err != nil {
		return domain.DatabaseMetadata{}, err
	}

	eng, err := s.opener.Open(ctx, name)
	if err != nil {
		customLog.Warnf("Session: Failed to open engine for '%s': %v", name, err)
		return domain.DatabaseMetadata{}, err
	}
	schema, erd, err := introspect.Snapshot(ctx, eng)
	if err != nil {
		_ = eng.Close()
		return domain.DatabaseMetadata{}, err
	}

	s.mu.Lock()
	db, ok := s.databases[name]
	if _, busy := s.removing[name]; !ok || busy {
		s.mu.Unlock()
		_ = eng.Close()
		return domain.DatabaseMetadata{}, domain.Errorf(domain.ErrNotFound, "database '%s' not found", name)
	}
	db.setCatalog(schema, erd)
	previous := s.active
	s.active = newConnection(name, eng)
	s.mu.Unlock()

	if previous != nil {
		previous.retire()
	}
	customLog.Printf("Session: Connected to '%s'", name)

	return db.snapshot(), s.commit(ctx)
}

// Reload re-reads the catalog of the active database.
func (s *Store) Reload(ctx context.Context) (domain.DatabaseMetadata, error) {
	conn, db, err := s.acquireActive()
	if err != nil {
		return domain.DatabaseMetadata{}, err
	}
	defer conn.release()

	schema, erd, err := introspect.Snapshot(ctx, conn.eng)
	if err != nil {
		return domain.DatabaseMetadata{}, err
	}
	db.setCatalog(schema, erd)

	return db.snapshot(), s.commit(ctx)
}

// acquireActive pins the active connection; callers must release it.
func (s *Store) acquireActive() (*connection, *database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == nil {
		return nil, nil, domain.Errorf(domain.ErrNoActiveConnection, "no active connection")
	}
	db, ok := s.databases[s.active.name]
	if !ok {
		return nil, nil, domain.Errorf(domain.ErrNoActiveConnection, "no active connection")
	}
	s.active.acquire()
	return s.active, db, nil
}

func (s *Store) activeDatabase() (*database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.active == nil {
		return nil, domain.Errorf(domain.ErrNoActiveConnection, "no active connection")
	}
	db, ok := s.databases[s.active.name]
	if !ok {
		return nil, domain.Errorf(domain.ErrNoActiveConnection, "no active connection")
	}
	return db, nil
}

func (s *Store) lookup(name string) (*database, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	db, ok := s.databases[name]
	if !ok {
		return nil, domain.Errorf(domain.ErrNotFound, "database '%s' not found", name)
	}
	return db, nil
}

// Databases lists every known database ordered by name.
func (s *Store) Databases() []domain.DatabaseMetadata {
	s.mu.RLock()
	list := make([]*database, 0, len(s.databases))
	for _, db := range s.databases {
		list = append(list, db)
	}
	s.mu.RUnlock()

	out := make([]domain.DatabaseMetadata, len(list))
	for i, db := range list {
		out[i] = db.snapshot()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns a snapshot of name.
func (s *Store) Get(name string) (domain.DatabaseMetadata, error) {
	db, err := s.lookup(name)
	if err != nil {
		return domain.DatabaseMetadata{}, err
	}
	return db.snapshot(), nil
}

// Active returns a snapshot of the active database; ok is false without an
// active connection.
func (s *Store) Active() (domain.DatabaseMetadata, bool) {
	db, err := s.activeDatabase()
	if err != nil {
		return domain.DatabaseMetadata{}, false
	}
	return db.snapshot(), true
}

// History returns one page of name's history and the total entry count.
func (s *Store) History(name string, opts *core.ListQueryOptions) ([]domain.QueryLogEntry, int, error) {
	db, err := s.lookup(name)
	if err != nil {
		return nil, 0, err
	}
	if opts == nil {
		opts = core.DefaultListQueryOptions()
	}

	history := db.snapshot().History
	total := len(history)
	if opts.SortOrder == "desc" {
		for i, j := 0, total-1; i < j; i, j = i+1, j-1 {
			history[i], history[j] = history[j], history[i]
		}
	}
	start, end := opts.Window(total)
	return history[start:end], total, nil
}

// Close closes the active engine handle once in-flight work has finished.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	previous := s.active
	s.active = nil
	s.mu.Unlock()

	if previous == nil {
		return nil
	}
	select {
	case <-previous.retire():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// internal/session/persist.go
package session

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Annany2002/nebula-workbench/internal/domain"
)

// persistedState is the durable form of the session. The active connection
// is never stored.
type persistedState struct {
	Databases map[string]domain.DatabaseMetadata `json:"databases"`
}

// Init replaces the in-memory databases with the persisted ones. No
// database is active afterwards.
func (s *Store) Init(ctx context.Context) error {
	raw, ok, err := s.kv.GetItem(ctx, StateKey)
	if err != nil {
		return domain.Wrap(domain.ErrStorage, err)
	}

	state := persistedState{}
	if ok && raw != "" {
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			customLog.Warnf("Session: Persisted state under '%s' is unreadable: %v", StateKey, err)
			return domain.Wrap(domain.ErrStorage, fmt.Errorf("failed to decode session state: %w", err))
		}
	}

	databases := make(map[string]*database, len(state.Databases))
	for name, meta := range state.Databases {
		meta.Name = name
		databases[name] = restoreDatabase(meta)
	}

	s.mu.Lock()
	previous := s.active
	s.active = nil
	s.databases = databases
	s.mu.Unlock()

	if previous != nil {
		previous.retire()
	}
	customLog.Printf("Session: Restored %d database(s)", len(databases))
	return nil
}

// UnsavedError reports a change that was applied in memory but could not be
// written to the key-value store.
type UnsavedError struct {
	Err error
}

func (e *UnsavedError) Error() string { return e.Err.Error() }

func (e *UnsavedError) Unwrap() error { return e.Err }

// IsUnsaved reports whether err only means the applied change was not saved.
func IsUnsaved(err error) bool {
	var unsaved *UnsavedError
	return errors.As(err, &unsaved)
}

// persist writes every database to the key-value store. Writes are
// serialized so the last write always carries the newest state. An empty
// session removes the stored state.
func (s *Store) persist(ctx context.Context) error {
	s.persistMu.Lock()
	defer s.persistMu.Unlock()

	state := persistedState{Databases: map[string]domain.DatabaseMetadata{}}
	for _, meta := range s.Databases() {
		state.Databases[meta.Name] = meta
	}

	if len(state.Databases) == 0 {
		if err := s.kv.RemoveItem(context.WithoutCancel(ctx), StateKey); err != nil {
			return domain.Wrap(domain.ErrStorage, err)
		}
		return nil
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return domain.Wrap(domain.ErrStorage, fmt.Errorf("failed to encode session state: %w", err))
	}
	if err := s.kv.SetItem(context.WithoutCancel(ctx), StateKey, string(raw)); err != nil {
		return domain.Wrap(domain.ErrStorage, err)
	}
	return nil
}

// commit persists a change that is already applied in memory.
func (s *Store) commit(ctx context.Context) error {
	if err := s.persist(ctx); err != nil {
		customLog.Warnf("Session: Change applied but not saved: %v", err)
		return &UnsavedError{Err: err}
	}
	return nil
}

// persistQuietly is used after execute and evaluate, where the outcome is
// already recorded in memory and a storage failure must not replace it.
func (s *Store) persistQuietly(ctx context.Context) {
	if err := s.persist(ctx); err != nil {
		customLog.Warnf("Session: Failed to persist session state: %v", err)
	}
}

func compact(doc json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, doc); err != nil {
		return doc
	}
	return json.RawMessage(buf.Bytes())
}

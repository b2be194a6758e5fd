// internal/session/execute.go
package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Annany2002/nebula-workbench/internal/core"
	"github.com/Annany2002/nebula-workbench/internal/domain"
	"github.com/Annany2002/nebula-workbench/internal/policy"
)

// Execution is the outcome of one Execute call.
type Execution struct {
	Results []domain.RawResult
	// Grids is the display form of Results, as stored in the result set.
	Grids []domain.DataGridValue
}

// Execute runs query against the active database. With useFilter the cached
// policy filter is spliced in first. Success and failure are both recorded
// in history; failures are then returned to the caller.
func (s *Store) Execute(ctx context.Context, query string, useFilter bool) (*Execution, error) {
	conn, db, err := s.acquireActive()
	if err != nil {
		return nil, err
	}
	defer conn.release()

	if core.IsBlank(query) {
		return nil, domain.Errorf(domain.ErrEmptyQuery, "no query to run")
	}

	db.run.Lock()
	defer db.run.Unlock()

	statement := query
	entry := domain.QueryLogEntry{Statement: query}
	if useFilter {
		if filter := db.derivedFilter(); filter != "" {
			statement = core.CombineFilter(query, filter)
			entry.StatementWithFilter = statement
		}
	}

	entry.CreatedAt = now()
	start := time.Now()
	results, execErr := conn.eng.Exec(ctx, statement)
	entry.ExecutionTime = float64(time.Since(start).Microseconds()) / 1000

	if execErr != nil {
		entry.Error = execErr.Error()
		db.recordFailure(statement, entry)
		customLog.Printf("Session: Statement failed on '%s' after %.2fms: %v", conn.name, entry.ExecutionTime, execErr)
		s.persistQuietly(ctx)
		return nil, execErr
	}

	entry.Results = make([]domain.StatementResult, len(results))
	for i, r := range results {
		entry.Results[i] = r.Summary()
	}
	grids := core.TransformResults(results)
	db.recordSuccess(statement, grids, entry)
	customLog.Debugf("Session: Ran %d statement(s) on '%s' in %.2fms", len(results), conn.name, entry.ExecutionTime)
	s.persistQuietly(ctx)
	return &Execution{Results: results, Grids: grids}, nil
}

// Evaluate compiles source against the stored input and data documents of
// the active database. On success the response and its filter are stored;
// on failure nothing changes.
func (s *Store) Evaluate(ctx context.Context, source string) (*policy.Evaluation, error) {
	db, err := s.activeDatabase()
	if err != nil {
		return nil, err
	}
	if s.evaluator == nil {
		return nil, domain.Errorf(domain.ErrPolicyEvaluation, "no policy evaluator configured")
	}

	input, data := db.policyDocuments()
	eval, err := s.evaluator.Evaluate(ctx, policy.Request{Source: source, Input: input, Data: data})
	if err != nil {
		return nil, err
	}

	db.recordEvaluation(source, eval.Raw, eval.Query)
	customLog.Printf("Session: Policy evaluated for '%s', filter %q", db.name(), eval.Query)
	s.persistQuietly(ctx)
	return eval, nil
}

// SetQuery stores the editor text of the active database.
func (s *Store) SetQuery(ctx context.Context, query string) error {
	db, err := s.activeDatabase()
	if err != nil {
		return err
	}
	db.setQuery(query)
	return s.commit(ctx)
}

// SetPolicySource stores the rule program of the active database without
// evaluating it.
func (s *Store) SetPolicySource(ctx context.Context, source string) error {
	db, err := s.activeDatabase()
	if err != nil {
		return err
	}
	db.setPolicySource(source)
	return s.commit(ctx)
}

// SetPolicyInput stores the input document sent with every evaluation.
func (s *Store) SetPolicyInput(ctx context.Context, doc json.RawMessage) error {
	db, err := s.activeDatabase()
	if err != nil {
		return err
	}
	if !core.IsJSONObject(doc) {
		return domain.Errorf(domain.ErrInvalidInput, "policy input must be a JSON object")
	}
	db.setPolicyInput(compact(doc))
	return s.commit(ctx)
}

// SetPolicyData stores the data document sent with every evaluation.
func (s *Store) SetPolicyData(ctx context.Context, doc json.RawMessage) error {
	db, err := s.activeDatabase()
	if err != nil {
		return err
	}
	if !core.IsJSONObject(doc) {
		return domain.Errorf(domain.ErrInvalidInput, "policy data must be a JSON object")
	}
	db.setPolicyData(compact(doc))
	return s.commit(ctx)
}

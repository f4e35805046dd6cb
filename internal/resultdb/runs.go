package resultdb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scenariolab/workbench/internal/design"
	"github.com/scenariolab/workbench/internal/discovery"
	"github.com/scenariolab/workbench/internal/params"
	"github.com/scenariolab/workbench/internal/results"
	"github.com/scenariolab/workbench/internal/sampling"
)

// Run statuses.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

// StudyRun is one archived execution of a study.
type StudyRun struct {
	ID           string
	Status       string
	Seed         uint64
	Sampler      string
	Scenarios    int
	Policies     int
	Replications int
	Error        string
	StartedAt    time.Time
	FinishedAt   time.Time // zero while the run is open
}

// NewStudyRun mints a run record in the running state.
func NewStudyRun(seed uint64, sampler string, scenarios, policies, replications int) *StudyRun {
	return &StudyRun{
		ID:           uuid.NewString(),
		Status:       RunStatusRunning,
		Seed:         seed,
		Sampler:      sampler,
		Scenarios:    scenarios,
		Policies:     policies,
		Replications: replications,
		StartedAt:    time.Now().UTC(),
	}
}

// InsertRun records a new run.
func (db *RunDB) InsertRun(run *StudyRun) error {
	_, err := db.Exec(`
		INSERT INTO study_runs (id, status, seed, sampler, scenarios, policies, replications, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Status, int64(run.Seed), run.Sampler,
		run.Scenarios, run.Policies, run.Replications,
		run.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// CompleteRun marks the run finished.
func (db *RunDB) CompleteRun(id string) error {
	return db.finishRun(id, RunStatusCompleted, "")
}

// FailRun marks the run failed with the reason.
func (db *RunDB) FailRun(id, reason string) error {
	return db.finishRun(id, RunStatusFailed, reason)
}

func (db *RunDB) finishRun(id, status, reason string) error {
	res, err := db.Exec(`
		UPDATE study_runs SET status = ?, error = ?, finished_at = ?
		WHERE id = ?`,
		status, reason, time.Now().UTC().Format(time.RFC3339Nano), id,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: no such run", id)
	}
	return nil
}

// GetRun fetches one run record.
func (db *RunDB) GetRun(id string) (*StudyRun, error) {
	row := db.QueryRow(`
		SELECT id, status, seed, sampler, scenarios, policies, replications,
		       COALESCE(error, ''), started_at, COALESCE(finished_at, '')
		FROM study_runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("run %s not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return run, nil
}

// ListRuns returns all runs, newest first.
func (db *RunDB) ListRuns() ([]StudyRun, error) {
	rows, err := db.Query(`
		SELECT id, status, seed, sampler, scenarios, policies, replications,
		       COALESCE(error, ''), started_at, COALESCE(finished_at, '')
		FROM study_runs ORDER BY started_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []StudyRun
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		runs = append(runs, *run)
	}
	return runs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*StudyRun, error) {
	var run StudyRun
	var seed int64
	var started, finished string
	if err := row.Scan(&run.ID, &run.Status, &seed, &run.Sampler,
		&run.Scenarios, &run.Policies, &run.Replications,
		&run.Error, &started, &finished); err != nil {
		return nil, err
	}
	run.Seed = uint64(seed)
	if t, err := time.Parse(time.RFC3339Nano, started); err == nil {
		run.StartedAt = t
	}
	if finished != "" {
		if t, err := time.Parse(time.RFC3339Nano, finished); err == nil {
			run.FinishedAt = t
		}
	}
	return &run, nil
}

// SaveResults archives every committed row of the store under the run.
func (db *RunDB) SaveResults(runID string, store *results.Store) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("save results for run %s: %w", runID, err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
		INSERT INTO experiment_results
			(run_id, experiment_id, policy_name, replication, scenario, policy, status, error, outcomes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save results for run %s: %w", runID, err)
	}
	defer stmt.Close()

	for _, rec := range store.Experiments() {
		scenario, err := json.Marshal(rec.Experiment.Scenario.Values)
		if err != nil {
			return fmt.Errorf("encode scenario %d: %w", rec.Experiment.ID, err)
		}
		policy, err := json.Marshal(rec.Experiment.Policy.Values)
		if err != nil {
			return fmt.Errorf("encode policy %d: %w", rec.Experiment.ID, err)
		}
		status := "ok"
		outcomes := []byte("null")
		if rec.Failed {
			status = "failed"
		} else {
			if outcomes, err = json.Marshal(rec.Outcome); err != nil {
				return fmt.Errorf("encode outcomes %d: %w", rec.Experiment.ID, err)
			}
		}
		if _, err := stmt.Exec(runID, rec.Experiment.ID, rec.Experiment.Policy.Name,
			rec.Experiment.Replication, string(scenario), string(policy),
			status, rec.Failure, string(outcomes)); err != nil {
			return fmt.Errorf("insert result %d: %w", rec.Experiment.ID, err)
		}
	}
	return tx.Commit()
}

// LoadResults rebuilds a results store from the archived rows of a run.
func (db *RunDB) LoadResults(runID string) (*results.Store, error) {
	rows, err := db.Query(`
		SELECT experiment_id, policy_name, replication, scenario, policy, status, COALESCE(error, ''), outcomes
		FROM experiment_results WHERE run_id = ? ORDER BY experiment_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("load results for run %s: %w", runID, err)
	}
	defer rows.Close()

	store := results.NewStore()
	for rows.Next() {
		var (
			id                          int64
			policyName                  string
			replication                 int
			scenarioJS, policyJS        string
			status, failure, outcomesJS string
		)
		if err := rows.Scan(&id, &policyName, &replication,
			&scenarioJS, &policyJS, &status, &failure, &outcomesJS); err != nil {
			return nil, fmt.Errorf("load results for run %s: %w", runID, err)
		}

		var scenarioVals, policyVals map[string]params.Value
		if err := json.Unmarshal([]byte(scenarioJS), &scenarioVals); err != nil {
			return nil, fmt.Errorf("decode scenario %d: %w", id, err)
		}
		if err := json.Unmarshal([]byte(policyJS), &policyVals); err != nil {
			return nil, fmt.Errorf("decode policy %d: %w", id, err)
		}
		exp := design.Experiment{
			ID:          id,
			Scenario:    sampling.Assignment{Values: scenarioVals},
			Policy:      sampling.Assignment{Name: policyName, Values: policyVals},
			Replication: replication,
		}

		if status == "failed" {
			err = store.AddFailure(exp, failure)
		} else {
			var outcome results.Outcome
			if jsonErr := json.Unmarshal([]byte(outcomesJS), &outcome); jsonErr != nil {
				return nil, fmt.Errorf("decode outcomes %d: %w", id, jsonErr)
			}
			err = store.AddSuccess(exp, outcome)
		}
		if err != nil {
			return nil, fmt.Errorf("load results for run %s: %w", runID, err)
		}
	}
	return store, rows.Err()
}

// SaveBoxes archives the discovery output for a run in discovery order.
func (db *RunDB) SaveBoxes(runID string, boxes []discovery.Box) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("save boxes for run %s: %w", runID, err)
	}
	defer tx.Rollback()

	for seq, box := range boxes {
		limits, err := json.Marshal(box.Limits)
		if err != nil {
			return fmt.Errorf("encode box %d: %w", seq, err)
		}
		if _, err := tx.Exec(`
			INSERT INTO discovered_boxes (run_id, seq, limits, density, coverage, mass)
			VALUES (?, ?, ?, ?, ?, ?)`,
			runID, seq, string(limits), box.Density, box.Coverage, box.Mass); err != nil {
			return fmt.Errorf("insert box %d: %w", seq, err)
		}
	}
	return tx.Commit()
}

// LoadBoxes returns a run's archived boxes in discovery order. Peeling
// trajectories are not archived.
func (db *RunDB) LoadBoxes(runID string) ([]discovery.Box, error) {
	rows, err := db.Query(`
		SELECT limits, density, coverage, mass
		FROM discovered_boxes WHERE run_id = ? ORDER BY seq`, runID)
	if err != nil {
		return nil, fmt.Errorf("load boxes for run %s: %w", runID, err)
	}
	defer rows.Close()

	var boxes []discovery.Box
	for rows.Next() {
		var limitsJS string
		var box discovery.Box
		if err := rows.Scan(&limitsJS, &box.Density, &box.Coverage, &box.Mass); err != nil {
			return nil, fmt.Errorf("load boxes for run %s: %w", runID, err)
		}
		if err := json.Unmarshal([]byte(limitsJS), &box.Limits); err != nil {
			return nil, fmt.Errorf("decode box limits: %w", err)
		}
		boxes = append(boxes, box)
	}
	return boxes, rows.Err()
}

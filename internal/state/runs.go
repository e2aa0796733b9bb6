package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/statify/internal/compiler"
)

// timeLayout sorts lexically in time order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Run is one recorded compilation.
type Run struct {
	ID         string
	SourcePath string
	CreatedAt  time.Time
	Statements int
	Phases     int
}

// VersionRecord is a stored version.
type VersionRecord struct {
	Ref          int
	Phase        int
	Name         string
	Index        int
	Kind         string
	Source       string
	Cluster      int
	Dead         bool
	Dependencies []int
}

// PhaseFile is a file read or written by a phase.
type PhaseFile struct {
	Phase    int    `json:"phase" yaml:"phase"`
	Output   bool   `json:"output" yaml:"output"`
	Filename string `json:"filename" yaml:"filename"`
}

// Compilation is everything recorded for one run.
type Compilation struct {
	SourcePath string
	Statements int
	Phases     int
	Versions   []VersionRecord
	Files      []PhaseFile
}

// NewCompilation flattens a compiler result into a Compilation.
func NewCompilation(path string, res *compiler.Result) Compilation {
	cluster := make(map[int]int)
	for i, refs := range res.Clusters {
		for _, ref := range refs {
			cluster[int(ref)] = i
		}
	}

	c := Compilation{SourcePath: path, Statements: res.Statements}
	for _, v := range res.Engine.Versions() {
		rec := VersionRecord{
			Ref:     int(v.Ref),
			Phase:   v.Phase,
			Name:    v.Name,
			Index:   v.Index,
			Kind:    v.Kind.String(),
			Source:  v.Source,
			Cluster: cluster[int(v.Ref)],
			Dead:    res.IsDead(v.Ref),
		}
		for _, d := range v.Dependencies {
			rec.Dependencies = append(rec.Dependencies, int(d))
		}
		c.Versions = append(c.Versions, rec)
	}

	phases := res.Engine.Phases()
	c.Phases = len(phases)
	for _, p := range phases {
		for _, f := range p.Inputs {
			c.Files = append(c.Files, PhaseFile{Phase: p.Index, Filename: f})
		}
		for _, f := range p.Outputs {
			c.Files = append(c.Files, PhaseFile{Phase: p.Index, Output: true, Filename: f})
		}
	}
	return c
}

// SaveCompilation records c in a single transaction and returns the new run.
func (s *Store) SaveCompilation(ctx context.Context, c Compilation) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	run := &Run{
		ID:         generateID(),
		SourcePath: c.SourcePath,
		CreatedAt:  time.Now().UTC(),
		Statements: c.Statements,
		Phases:     c.Phases,
	}
	s.logger.Debug("saving compilation", "id", run.ID, "path", run.SourcePath, "versions", len(c.Versions))

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (id, source_path, created_at, statements, phases) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.SourcePath, run.CreatedAt.Format(timeLayout), run.Statements, run.Phases,
	); err != nil {
		return nil, fmt.Errorf("failed to insert run: %w", err)
	}

	for _, v := range c.Versions {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO versions (run_id, ref, phase, name, idx, kind, source, cluster, dead)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			run.ID, v.Ref, v.Phase, v.Name, v.Index, v.Kind, v.Source, v.Cluster, v.Dead,
		); err != nil {
			return nil, fmt.Errorf("failed to insert version %s_%d: %w", v.Name, v.Index, err)
		}
		for _, d := range v.Dependencies {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO dependencies (run_id, parent_ref, child_ref) VALUES (?, ?, ?)`,
				run.ID, d, v.Ref,
			); err != nil {
				return nil, fmt.Errorf("failed to insert dependency: %w", err)
			}
		}
	}

	for _, f := range c.Files {
		direction := "input"
		if f.Output {
			direction = "output"
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO phase_files (run_id, phase, direction, filename) VALUES (?, ?, ?, ?)`,
			run.ID, f.Phase, direction, f.Filename,
		); err != nil {
			return nil, fmt.Errorf("failed to insert phase file: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit compilation: %w", err)
	}
	return run, nil
}

// ListRuns returns the most recent runs first. A limit of zero or less
// returns every run.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, source_path, created_at, statements, phases FROM runs
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list runs: %w", err)
	}
	return runs, nil
}

// GetRun returns the run with the given id.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	if s.db == nil {
		return nil, ErrNotOpen
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT id, source_path, created_at, statements, phases FROM runs WHERE id = ?`, id)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, id)
	}
	return run, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		run     Run
		created string
	)
	if err := row.Scan(&run.ID, &run.SourcePath, &created, &run.Statements, &run.Phases); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan run: %w", err)
	}
	t, err := time.Parse(timeLayout, created)
	if err != nil {
		return nil, fmt.Errorf("invalid run timestamp %q: %w", created, err)
	}
	run.CreatedAt = t
	return &run, nil
}

// GetRunVersions returns the versions of a run in creation order, with
// their dependencies.
func (s *Store) GetRunVersions(ctx context.Context, id string) ([]VersionRecord, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT ref, phase, name, idx, kind, source, cluster, dead FROM versions
		 WHERE run_id = ? ORDER BY ref`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get versions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var versions []VersionRecord
	byRef := make(map[int]int)
	for rows.Next() {
		var v VersionRecord
		if err := rows.Scan(&v.Ref, &v.Phase, &v.Name, &v.Index, &v.Kind, &v.Source, &v.Cluster, &v.Dead); err != nil {
			return nil, fmt.Errorf("failed to scan version: %w", err)
		}
		byRef[v.Ref] = len(versions)
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to get versions: %w", err)
	}
	_ = rows.Close()

	deps, err := s.db.QueryContext(ctx,
		`SELECT parent_ref, child_ref FROM dependencies WHERE run_id = ? ORDER BY child_ref, rowid`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get dependencies: %w", err)
	}
	defer func() { _ = deps.Close() }()

	for deps.Next() {
		var parent, child int
		if err := deps.Scan(&parent, &child); err != nil {
			return nil, fmt.Errorf("failed to scan dependency: %w", err)
		}
		if i, ok := byRef[child]; ok {
			versions[i].Dependencies = append(versions[i].Dependencies, parent)
		}
	}
	return versions, deps.Err()
}

// GetRunFiles returns the phase file I/O of a run.
func (s *Store) GetRunFiles(ctx context.Context, id string) ([]PhaseFile, error) {
	if _, err := s.GetRun(ctx, id); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT phase, direction, filename FROM phase_files
		 WHERE run_id = ? ORDER BY phase, direction, filename`, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get phase files: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var files []PhaseFile
	for rows.Next() {
		var (
			f         PhaseFile
			direction string
		)
		if err := rows.Scan(&f.Phase, &direction, &f.Filename); err != nil {
			return nil, fmt.Errorf("failed to scan phase file: %w", err)
		}
		f.Output = direction == "output"
		files = append(files, f)
	}
	return files, rows.Err()
}

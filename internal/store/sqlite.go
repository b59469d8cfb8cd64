package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/mlawson/shepard/internal/model"
)

// SQLite backs the graph, verdict, and tree stores with a single
// database file
type SQLite struct {
	conn *sql.DB
	Path string
}

const schema = `
CREATE TABLE IF NOT EXISTS opinions (
	id         INTEGER PRIMARY KEY,
	case_name  TEXT,
	plain_text TEXT
);

CREATE TABLE IF NOT EXISTS citations (
	citing_id INTEGER NOT NULL,
	cited_id  INTEGER NOT NULL,
	ord       INTEGER NOT NULL,
	PRIMARY KEY (citing_id, cited_id)
);

CREATE INDEX IF NOT EXISTS idx_citations_citing ON citations(citing_id, ord);

CREATE TABLE IF NOT EXISTS parentheticals (
	id           INTEGER PRIMARY KEY AUTOINCREMENT,
	described_id INTEGER NOT NULL,
	describing_id INTEGER NOT NULL,
	text         TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_parentheticals_described ON parentheticals(described_id);

CREATE TABLE IF NOT EXISTS verdicts (
	opinion_id    INTEGER NOT NULL,
	version       INTEGER NOT NULL,
	assessment    TEXT NOT NULL,
	confidence    REAL NOT NULL,
	risk_score    REAL NOT NULL,
	is_overruled  INTEGER NOT NULL,
	is_questioned INTEGER NOT NULL,
	is_criticized INTEGER NOT NULL,
	summary       TEXT,
	oracle        TEXT,
	analyzed_at   TEXT NOT NULL,
	PRIMARY KEY (opinion_id, version)
);

CREATE TABLE IF NOT EXISTS trees (
	root_id    INTEGER NOT NULL,
	max_depth  INTEGER NOT NULL,
	data       TEXT NOT NULL,
	updated_at TEXT NOT NULL,
	PRIMARY KEY (root_id, max_depth)
);
`

// OpenSQLite opens (or creates) the database with WAL mode enabled
func OpenSQLite(path string) (*SQLite, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL allows concurrent reads during traversal writes
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("setting WAL mode: %w", err)
	}

	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &SQLite{conn: conn, Path: path}, nil
}

// Close closes the database connection
func (s *SQLite) Close() error {
	return s.conn.Close()
}

// AddOpinion inserts or replaces an opinion row
func (s *SQLite) AddOpinion(ctx context.Context, id int64, caseName, plainText string) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO opinions (id, case_name, plain_text) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET case_name=excluded.case_name, plain_text=excluded.plain_text`,
		id, caseName, plainText)
	if err != nil {
		return fmt.Errorf("insert opinion %d: %w", id, err)
	}
	return nil
}

// AddCitations records the ordered outbound citations of one opinion
func (s *SQLite) AddCitations(ctx context.Context, citingID int64, citedIDs []int64) error {
	tx, err := s.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for ord, citedID := range citedIDs {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO citations (citing_id, cited_id, ord) VALUES (?, ?, ?)
			 ON CONFLICT(citing_id, cited_id) DO UPDATE SET ord=excluded.ord`,
			citingID, citedID, ord); err != nil {
			return fmt.Errorf("insert citation %d->%d: %w", citingID, citedID, err)
		}
	}

	return tx.Commit()
}

// AddParenthetical records one parenthetical description
func (s *SQLite) AddParenthetical(ctx context.Context, p model.Parenthetical) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO parentheticals (described_id, describing_id, text) VALUES (?, ?, ?)`,
		p.DescribedID, p.DescribingID, p.Text)
	if err != nil {
		return fmt.Errorf("insert parenthetical: %w", err)
	}
	return nil
}

// HasOpinion reports whether the opinion exists
func (s *SQLite) HasOpinion(ctx context.Context, id int64) (bool, error) {
	var one int
	err := s.conn.QueryRowContext(ctx, `SELECT 1 FROM opinions WHERE id = ?`, id).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query opinion %d: %w", id, err)
	}
	return true, nil
}

// OpinionText returns the stored plain text of an opinion
func (s *SQLite) OpinionText(ctx context.Context, id int64) (string, error) {
	var text sql.NullString
	err := s.conn.QueryRowContext(ctx, `SELECT plain_text FROM opinions WHERE id = ?`, id).Scan(&text)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query opinion text %d: %w", id, err)
	}
	return text.String, nil
}

// CitedIDs returns the opinions cited by id, in stored order
func (s *SQLite) CitedIDs(ctx context.Context, id int64) ([]int64, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT cited_id FROM citations WHERE citing_id = ? ORDER BY ord`, id)
	if err != nil {
		return nil, fmt.Errorf("query citations of %d: %w", id, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var cited int64
		if err := rows.Scan(&cited); err != nil {
			return nil, fmt.Errorf("scan citation: %w", err)
		}
		ids = append(ids, cited)
	}
	return ids, rows.Err()
}

// Parentheticals returns all stored descriptions of one opinion
func (s *SQLite) Parentheticals(ctx context.Context, describedID int64) ([]model.Parenthetical, error) {
	rows, err := s.conn.QueryContext(ctx,
		`SELECT described_id, describing_id, text FROM parentheticals WHERE described_id = ? ORDER BY id`,
		describedID)
	if err != nil {
		return nil, fmt.Errorf("query parentheticals of %d: %w", describedID, err)
	}
	defer rows.Close()

	var parens []model.Parenthetical
	for rows.Next() {
		var p model.Parenthetical
		if err := rows.Scan(&p.DescribedID, &p.DescribingID, &p.Text); err != nil {
			return nil, fmt.Errorf("scan parenthetical: %w", err)
		}
		parens = append(parens, p)
	}
	return parens, rows.Err()
}

// GetVerdict returns the cached verdict for (opinion, version), or nil
func (s *SQLite) GetVerdict(ctx context.Context, opinionID int64, version int) (*model.Verdict, error) {
	v := model.Verdict{OpinionID: opinionID, Version: version}
	var analyzedAt string
	err := s.conn.QueryRowContext(ctx,
		`SELECT assessment, confidence, risk_score, is_overruled, is_questioned, is_criticized, summary, oracle, analyzed_at
		 FROM verdicts WHERE opinion_id = ? AND version = ?`,
		opinionID, version).Scan(
		&v.Assessment, &v.Confidence, &v.RiskScore,
		&v.IsOverruled, &v.IsQuestioned, &v.IsCriticized,
		&v.Summary, &v.Oracle, &analyzedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query verdict %d v%d: %w", opinionID, version, err)
	}

	if t, perr := time.Parse(time.RFC3339Nano, analyzedAt); perr == nil {
		v.AnalyzedAt = t
	}
	return &v, nil
}

// PutVerdict upserts a verdict; a later put for the same (opinion,
// version) supersedes the stored row
func (s *SQLite) PutVerdict(ctx context.Context, v *model.Verdict) error {
	_, err := s.conn.ExecContext(ctx,
		`INSERT INTO verdicts (opinion_id, version, assessment, confidence, risk_score,
		                       is_overruled, is_questioned, is_criticized, summary, oracle, analyzed_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(opinion_id, version) DO UPDATE SET
		   assessment=excluded.assessment, confidence=excluded.confidence,
		   risk_score=excluded.risk_score, is_overruled=excluded.is_overruled,
		   is_questioned=excluded.is_questioned, is_criticized=excluded.is_criticized,
		   summary=excluded.summary, oracle=excluded.oracle, analyzed_at=excluded.analyzed_at`,
		v.OpinionID, v.Version, string(v.Assessment), v.Confidence, v.RiskScore,
		v.IsOverruled, v.IsQuestioned, v.IsCriticized, v.Summary, v.Oracle,
		v.AnalyzedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("put verdict %d v%d: %w", v.OpinionID, v.Version, err)
	}
	return nil
}

// LoadTree returns the persisted tree for (root, maxDepth), or nil
func (s *SQLite) LoadTree(ctx context.Context, rootID int64, maxDepth int) (*model.AnalysisTree, error) {
	var data string
	err := s.conn.QueryRowContext(ctx,
		`SELECT data FROM trees WHERE root_id = ? AND max_depth = ?`,
		rootID, maxDepth).Scan(&data)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query tree %d depth %d: %w", rootID, maxDepth, err)
	}

	var tree model.AnalysisTree
	if err := json.Unmarshal([]byte(data), &tree); err != nil {
		return nil, fmt.Errorf("unmarshal tree %d depth %d: %w", rootID, maxDepth, err)
	}
	return &tree, nil
}

// SaveTree upserts a full tree snapshot in a single statement
func (s *SQLite) SaveTree(ctx context.Context, tree *model.AnalysisTree) error {
	data, err := json.Marshal(tree)
	if err != nil {
		return fmt.Errorf("marshal tree: %w", err)
	}

	_, err = s.conn.ExecContext(ctx,
		`INSERT INTO trees (root_id, max_depth, data, updated_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(root_id, max_depth) DO UPDATE SET data=excluded.data, updated_at=excluded.updated_at`,
		tree.RootID, tree.MaxDepth, string(data), time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("save tree %d depth %d: %w", tree.RootID, tree.MaxDepth, err)
	}
	return nil
}

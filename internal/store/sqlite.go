package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/amishk599/jobagent/internal/model"

	_ "modernc.org/sqlite"
)

// timeLayout is fixed-width UTC so that lexical order in SQL equals time order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

const schema = `
CREATE TABLE IF NOT EXISTS jobs (
	content_id          TEXT PRIMARY KEY,
	title               TEXT NOT NULL,
	company             TEXT NOT NULL,
	location            TEXT NOT NULL,
	description         TEXT NOT NULL DEFAULT '',
	url                 TEXT NOT NULL DEFAULT '',
	source              TEXT NOT NULL,
	sector              TEXT,
	posted_at           TEXT,
	deadline            TEXT,
	salary              TEXT,
	relevance_score     INTEGER,
	relevance_reasoning TEXT,
	concerns            TEXT,
	highlights          TEXT,
	scraped_at          TEXT NOT NULL,
	notified_at         TEXT,
	analyzed_at         TEXT
);
CREATE INDEX IF NOT EXISTS idx_jobs_source ON jobs(source);
CREATE INDEX IF NOT EXISTS idx_jobs_relevance ON jobs(relevance_score);
CREATE INDEX IF NOT EXISTS idx_jobs_scraped ON jobs(scraped_at);

CREATE TABLE IF NOT EXISTS feedback (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	content_id TEXT NOT NULL REFERENCES jobs(content_id),
	kind       TEXT NOT NULL CHECK (kind IN ('like', 'dislike')),
	comment    TEXT,
	created_at TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_feedback_content ON feedback(content_id);
`

const jobColumns = `content_id, title, company, location, description, url, source,
	sector, posted_at, deadline, salary, relevance_score, relevance_reasoning,
	concerns, highlights, scraped_at, notified_at, analyzed_at`

// SQLiteStore is the durable home of jobs and feedback. It owns the job
// lifecycle: a row is inserted once, analyzed once, and notified once.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath and ensures
// the schema exists.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and pragmas are per connection.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging sqlite db: %w", err)
	}
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Insert stores a new job and reports whether it was new. An existing row
// with the same ContentID is left untouched. Lifecycle fields on job are
// ignored; ScrapedAt is set here.
func (s *SQLiteStore) Insert(ctx context.Context, job model.Job) (bool, error) {
	res, err := s.db.ExecContext(ctx, `INSERT OR IGNORE INTO jobs
		(content_id, title, company, location, description, url, source, sector, posted_at, deadline, salary, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		job.ContentID, job.Title, job.Company, job.Location, job.Description, job.URL, job.Source,
		nullString(job.Sector), nullTime(job.PostedAt), nullString(job.Deadline), nullString(job.Salary),
		formatTime(s.now()),
	)
	if err != nil {
		return false, fmt.Errorf("inserting job %s: %w", job.ContentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("inserting job %s: %w", job.ContentID, err)
	}
	return n == 1, nil
}

// GetUnanalyzed returns up to limit jobs that have not been analyzed, newest
// first. A non-positive limit means no limit.
func (s *SQLiteStore) GetUnanalyzed(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE analyzed_at IS NULL
		ORDER BY scraped_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying unanalyzed jobs: %w", err)
	}
	return collectJobs(rows)
}

// ApplyAnalysis records an analysis on a job that has none yet and reports
// whether it did. Already analyzed or unknown jobs are left untouched. An
// unscored result marks the job analyzed with a NULL relevance score.
func (s *SQLiteStore) ApplyAnalysis(ctx context.Context, contentID string, result model.ScoreResult) (bool, error) {
	score := sql.NullInt64{Int64: int64(result.Score), Valid: !result.Unscored}
	if score.Valid && (result.Score < 0 || result.Score > 100) {
		return false, fmt.Errorf("applying analysis to %s: score %d out of range", contentID, result.Score)
	}
	concerns, err := encodeList(result.Concerns)
	if err != nil {
		return false, fmt.Errorf("applying analysis to %s: %w", contentID, err)
	}
	highlights, err := encodeList(result.Highlights)
	if err != nil {
		return false, fmt.Errorf("applying analysis to %s: %w", contentID, err)
	}

	res, err := s.db.ExecContext(ctx, `UPDATE jobs
		SET relevance_score = ?, relevance_reasoning = ?, concerns = ?, highlights = ?, analyzed_at = ?
		WHERE content_id = ? AND analyzed_at IS NULL`,
		score, result.Reasoning, concerns, highlights, formatTime(s.now()), contentID,
	)
	if err != nil {
		return false, fmt.Errorf("applying analysis to %s: %w", contentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("applying analysis to %s: %w", contentID, err)
	}
	return n == 1, nil
}

// SelectForNotification returns analyzed, not yet notified jobs accepted by
// policy, ordered by score then recency. Unscored jobs sort after scored
// ones. A nil policy accepts every job.
func (s *SQLiteStore) SelectForNotification(ctx context.Context, policy model.DigestPolicy) ([]model.Job, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE analyzed_at IS NOT NULL AND notified_at IS NULL
		ORDER BY relevance_score IS NULL, relevance_score DESC, scraped_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("querying notification candidates: %w", err)
	}
	candidates, err := collectJobs(rows)
	if err != nil {
		return nil, err
	}
	if policy == nil {
		return candidates, nil
	}

	selected := candidates[:0]
	for _, j := range candidates {
		if policy.Include(j) {
			selected = append(selected, j)
		}
	}
	return selected, nil
}

// MarkNotified stamps the given jobs as notified in one transaction and
// returns how many transitioned. Jobs that are unknown, unanalyzed, or
// already notified are skipped.
func (s *SQLiteStore) MarkNotified(ctx context.Context, contentIDs []string) (int64, error) {
	if len(contentIDs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("marking notified: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `UPDATE jobs SET notified_at = ?
		WHERE content_id = ? AND analyzed_at IS NOT NULL AND notified_at IS NULL`)
	if err != nil {
		return 0, fmt.Errorf("marking notified: %w", err)
	}
	defer stmt.Close()

	now := formatTime(s.now())
	var total int64
	for _, id := range contentIDs {
		res, err := stmt.ExecContext(ctx, now, id)
		if err != nil {
			return 0, fmt.Errorf("marking %s notified: %w", id, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("marking %s notified: %w", id, err)
		}
		total += n
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("marking notified: %w", err)
	}
	return total, nil
}

// InsertFeedback appends a feedback record. Returns model.ErrJobNotFound if
// the referenced job is not stored.
func (s *SQLiteStore) InsertFeedback(ctx context.Context, fb model.Feedback) error {
	createdAt := fb.CreatedAt
	if createdAt.IsZero() {
		createdAt = s.now()
	}
	res, err := s.db.ExecContext(ctx, `INSERT INTO feedback (content_id, kind, comment, created_at)
		SELECT ?, ?, ?, ? WHERE EXISTS (SELECT 1 FROM jobs WHERE content_id = ?)`,
		fb.ContentID, string(fb.Kind), nullString(fb.Comment), formatTime(createdAt), fb.ContentID,
	)
	if err != nil {
		return fmt.Errorf("inserting feedback for %s: %w", fb.ContentID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("inserting feedback for %s: %w", fb.ContentID, err)
	}
	if n == 0 {
		return fmt.Errorf("inserting feedback for %s: %w", fb.ContentID, model.ErrJobNotFound)
	}
	return nil
}

// RecentLikes returns the most recently liked jobs.
func (s *SQLiteStore) RecentLikes(ctx context.Context, limit int) ([]model.FeedbackJob, error) {
	return s.recentFeedback(ctx, model.FeedbackLike, limit)
}

// RecentDislikes returns the most recently disliked jobs.
func (s *SQLiteStore) RecentDislikes(ctx context.Context, limit int) ([]model.FeedbackJob, error) {
	return s.recentFeedback(ctx, model.FeedbackDislike, limit)
}

func (s *SQLiteStore) recentFeedback(ctx context.Context, kind model.FeedbackKind, limit int) ([]model.FeedbackJob, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT j.title, j.company, COALESCE(j.sector, '')
		FROM feedback f JOIN jobs j ON j.content_id = f.content_id
		WHERE f.kind = ?
		ORDER BY f.created_at DESC, f.id DESC
		LIMIT ?`, string(kind), limit)
	if err != nil {
		return nil, fmt.Errorf("querying %s feedback: %w", kind, err)
	}
	defer rows.Close()

	var out []model.FeedbackJob
	for rows.Next() {
		var fj model.FeedbackJob
		if err := rows.Scan(&fj.Title, &fj.Company, &fj.Sector); err != nil {
			return nil, fmt.Errorf("scanning %s feedback: %w", kind, err)
		}
		out = append(out, fj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s feedback: %w", kind, err)
	}
	return out, nil
}

// GetJob returns one job by identity, or model.ErrJobNotFound.
func (s *SQLiteStore) GetJob(ctx context.Context, contentID string) (model.Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE content_id = ?`, contentID)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Job{}, fmt.Errorf("getting job %s: %w", contentID, model.ErrJobNotFound)
	}
	if err != nil {
		return model.Job{}, fmt.Errorf("getting job %s: %w", contentID, err)
	}
	return job, nil
}

// ListAnalyzed returns up to limit analyzed jobs, newest first.
func (s *SQLiteStore) ListAnalyzed(ctx context.Context, limit int) ([]model.Job, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs
		WHERE analyzed_at IS NOT NULL
		ORDER BY scraped_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying analyzed jobs: %w", err)
	}
	return collectJobs(rows)
}

// Stats returns a snapshot of store counts. AboveThreshold counts analyzed
// jobs scoring at least minRelevance.
func (s *SQLiteStore) Stats(ctx context.Context, minRelevance int) (model.Stats, error) {
	var st model.Stats
	err := s.db.QueryRowContext(ctx, `SELECT
			COUNT(*),
			COUNT(analyzed_at),
			COALESCE(SUM(CASE WHEN relevance_score >= ? THEN 1 ELSE 0 END), 0),
			COUNT(notified_at)
		FROM jobs`, minRelevance).Scan(&st.Total, &st.Analyzed, &st.AboveThreshold, &st.Notified)
	if err != nil {
		return model.Stats{}, fmt.Errorf("counting jobs: %w", err)
	}
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM feedback`).Scan(&st.Feedback); err != nil {
		return model.Stats{}, fmt.Errorf("counting feedback: %w", err)
	}
	return st, nil
}

// migrate brings databases created before analyzed_at existed up to date.
// Rows that already carry a score count as analyzed at their scrape time.
func migrate(db *sql.DB) error {
	rows, err := db.Query(`SELECT name FROM pragma_table_info('jobs')`)
	if err != nil {
		return fmt.Errorf("reading jobs columns: %w", err)
	}
	defer rows.Close()

	hasAnalyzedAt := false
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return fmt.Errorf("reading jobs columns: %w", err)
		}
		if name == "analyzed_at" {
			hasAnalyzedAt = true
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading jobs columns: %w", err)
	}
	rows.Close()

	if !hasAnalyzedAt {
		if _, err := db.Exec(`ALTER TABLE jobs ADD COLUMN analyzed_at TEXT`); err != nil {
			return fmt.Errorf("adding analyzed_at: %w", err)
		}
	}
	if _, err := db.Exec(`UPDATE jobs SET analyzed_at = scraped_at
		WHERE analyzed_at IS NULL AND relevance_score IS NOT NULL`); err != nil {
		return fmt.Errorf("backfilling analyzed_at: %w", err)
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(r rowScanner) (model.Job, error) {
	var (
		j                                         model.Job
		sector, postedAt, deadline, salary        sql.NullString
		reasoning, concerns, highlights, notified sql.NullString
		analyzed                                  sql.NullString
		score                                     sql.NullInt64
		scrapedAt                                 string
	)
	err := r.Scan(&j.ContentID, &j.Title, &j.Company, &j.Location, &j.Description, &j.URL, &j.Source,
		&sector, &postedAt, &deadline, &salary, &score, &reasoning,
		&concerns, &highlights, &scrapedAt, &notified, &analyzed)
	if err != nil {
		return model.Job{}, err
	}

	j.Sector = sector.String
	j.Deadline = deadline.String
	j.Salary = salary.String
	j.RelevanceReasoning = reasoning.String
	if score.Valid {
		v := int(score.Int64)
		j.RelevanceScore = &v
	}
	if j.PostedAt, err = parseNullTime(postedAt); err != nil {
		return model.Job{}, err
	}
	if j.NotifiedAt, err = parseNullTime(notified); err != nil {
		return model.Job{}, err
	}
	if j.AnalyzedAt, err = parseNullTime(analyzed); err != nil {
		return model.Job{}, err
	}
	if j.ScrapedAt, err = time.Parse(timeLayout, scrapedAt); err != nil {
		return model.Job{}, fmt.Errorf("parsing scraped_at %q: %w", scrapedAt, err)
	}
	if j.Concerns, err = decodeList(concerns); err != nil {
		return model.Job{}, err
	}
	if j.Highlights, err = decodeList(highlights); err != nil {
		return model.Job{}, err
	}
	return j, nil
}

func collectJobs(rows *sql.Rows) ([]model.Job, error) {
	defer rows.Close()
	var jobs []model.Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning job: %w", err)
		}
		jobs = append(jobs, j)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating jobs: %w", err)
	}
	return jobs, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: formatTime(*t), Valid: true}
}

func parseNullTime(ns sql.NullString) (*time.Time, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, ns.String)
	if err != nil {
		return nil, fmt.Errorf("parsing timestamp %q: %w", ns.String, err)
	}
	return &t, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func encodeList(items []string) (string, error) {
	if items == nil {
		items = []string{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encoding list: %w", err)
	}
	return string(b), nil
}

func decodeList(ns sql.NullString) ([]string, error) {
	if !ns.Valid || ns.String == "" {
		return nil, nil
	}
	var items []string
	if err := json.Unmarshal([]byte(ns.String), &items); err != nil {
		return nil, fmt.Errorf("decoding list %q: %w", ns.String, err)
	}
	return items, nil
}

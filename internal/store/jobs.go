package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateJob inserts a new sync job with status "running".
func (s *Store) CreateJob(ctx context.Context, kind JobKind) (*SyncJob, error) {
	now := time.Now().UTC()
	timestamp := formatTime(now)

	res, err := s.db.ExecContext(
		ctx,
		`INSERT INTO sync_jobs (kind, status, created_at, updated_at) VALUES (?, ?, ?, ?)`,
		string(kind),
		string(JobStatusRunning),
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("last insert id: %w", err)
	}
	return s.JobByID(ctx, id)
}

// JobByID fetches a sync job by identifier.
func (s *Store) JobByID(ctx context.Context, id int64) (*SyncJob, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, kind, status, trending_fetched, tasks_queued, created_at, updated_at
         FROM sync_jobs WHERE id = ?`,
		id,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// ListJobs returns the most recent jobs, newest first.
func (s *Store) ListJobs(ctx context.Context, limit int) ([]*SyncJob, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, kind, status, trending_fetched, tasks_queued, created_at, updated_at
         FROM sync_jobs ORDER BY id DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*SyncJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// UpdateJobStats records how many candidates were fetched and tasks queued.
func (s *Store) UpdateJobStats(ctx context.Context, jobID int64, trendingFetched, tasksQueued int) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE sync_jobs SET trending_fetched = ?, tasks_queued = ?, updated_at = ? WHERE id = ?`,
		trendingFetched,
		tasksQueued,
		formatTime(time.Now().UTC()),
		jobID,
	)
	if err != nil {
		return fmt.Errorf("update job stats: %w", err)
	}
	return nil
}

// TaskDraft is the enqueue-time shape of a task row.
type TaskDraft struct {
	JobID      int64
	ExternalID int64
	Payload    TaskPayload
}

// EnqueueTasks bulk-inserts task rows as pending. When the bulk insert fails
// (typically a uniqueness conflict) it falls back to inserting rows one at a
// time, silently skipping conflicting rows so re-enqueues stay idempotent.
// It returns the number of rows actually inserted.
func (s *Store) EnqueueTasks(ctx context.Context, drafts []TaskDraft) (int, error) {
	if len(drafts) == 0 {
		return 0, nil
	}
	timestamp := formatTime(time.Now().UTC())

	encoded := make([]string, len(drafts))
	for i, draft := range drafts {
		payload, err := EncodePayload(draft.Payload)
		if err != nil {
			return 0, err
		}
		encoded[i] = payload
	}

	query := `INSERT INTO sync_tasks (job_id, external_id, payload, status, attempts, created_at, updated_at) VALUES `
	args := make([]any, 0, len(drafts)*7)
	for i, draft := range drafts {
		if i > 0 {
			query += ", "
		}
		query += "(?, ?, ?, ?, 0, ?, ?)"
		args = append(args, draft.JobID, draft.ExternalID, encoded[i], string(TaskPending), timestamp, timestamp)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err == nil {
		return len(drafts), nil
	}

	inserted := 0
	for i, draft := range drafts {
		_, err := s.db.ExecContext(
			ctx,
			`INSERT INTO sync_tasks (job_id, external_id, payload, status, attempts, created_at, updated_at)
             VALUES (?, ?, ?, ?, 0, ?, ?)`,
			draft.JobID,
			draft.ExternalID,
			encoded[i],
			string(TaskPending),
			timestamp,
			timestamp,
		)
		if err != nil {
			continue
		}
		inserted++
	}
	return inserted, nil
}

// PendingTasks returns up to limit pending tasks, oldest first.
func (s *Store) PendingTasks(ctx context.Context, limit int) ([]*SyncTask, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+taskColumns+` FROM sync_tasks WHERE status = ? ORDER BY created_at, id LIMIT ?`,
		string(TaskPending),
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query pending tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*SyncTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// ClaimTask atomically transitions a task from pending to processing and
// increments its attempt counter. It reports false when the task was no
// longer pending, so two concurrent processors can never both claim it.
func (s *Store) ClaimTask(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE sync_tasks
         SET status = ?, attempts = attempts + 1, updated_at = ?
         WHERE id = ? AND status = ?`,
		string(TaskProcessing),
		formatTime(time.Now().UTC()),
		id,
		string(TaskPending),
	)
	if err != nil {
		return false, fmt.Errorf("claim task: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return affected > 0, nil
}

// MarkTaskDone transitions a task to its terminal success state.
func (s *Store) MarkTaskDone(ctx context.Context, id int64) error {
	return s.finishTask(ctx, id, TaskDone, "")
}

// MarkTaskError transitions a task to its terminal error state with a message.
func (s *Store) MarkTaskError(ctx context.Context, id int64, message string) error {
	if message == "" {
		message = "unknown error"
	}
	return s.finishTask(ctx, id, TaskError, message)
}

func (s *Store) finishTask(ctx context.Context, id int64, status TaskStatus, message string) error {
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE sync_tasks SET status = ?, last_error = ?, updated_at = ? WHERE id = ?`,
		string(status),
		nullableString(message),
		formatTime(time.Now().UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("finish task: %w", err)
	}
	return nil
}

// TaskByID fetches a task by identifier.
func (s *Store) TaskByID(ctx context.Context, id int64) (*SyncTask, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+taskColumns+` FROM sync_tasks WHERE id = ?`, id)
	task, err := scanTask(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get task: %w", err)
	}
	return task, nil
}

// TasksByJob returns all tasks belonging to a job, oldest first.
func (s *Store) TasksByJob(ctx context.Context, jobID int64) ([]*SyncTask, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+taskColumns+` FROM sync_tasks WHERE job_id = ? ORDER BY id`,
		jobID,
	)
	if err != nil {
		return nil, fmt.Errorf("query tasks by job: %w", err)
	}
	defer rows.Close()

	var tasks []*SyncTask
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

const taskColumns = "id, job_id, external_id, payload, status, attempts, last_error, created_at, updated_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*SyncJob, error) {
	var (
		job        SyncJob
		kind       string
		status     string
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&job.ID, &kind, &status, &job.TrendingFetched, &job.TasksQueued, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	job.Kind = JobKind(kind)
	job.Status = JobStatus(status)
	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	return &job, nil
}

func scanTask(scanner interface{ Scan(dest ...any) error }) (*SyncTask, error) {
	var (
		task       SyncTask
		status     string
		lastError  sql.NullString
		createdRaw string
		updatedRaw string
	)
	if err := scanner.Scan(&task.ID, &task.JobID, &task.ExternalID, &task.PayloadRaw, &status, &task.Attempts, &lastError, &createdRaw, &updatedRaw); err != nil {
		return nil, err
	}
	task.Status = TaskStatus(status)
	task.LastError = lastError.String
	if created, err := parseTimeString(createdRaw); err == nil {
		task.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		task.UpdatedAt = updated
	}
	return &task, nil
}

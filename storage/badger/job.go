package badger

import (
	"context"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/scriptorium/core"
	"github.com/poiesic/scriptorium/storage"
)

// JobStore implements storage.JobStore for BadgerDB. Jobs are keyed by document ID.
type JobStore struct {
	backend *Backend
}

var _ storage.JobStore = (*JobStore)(nil)

// NewJobStore creates a new JobStore.
func NewJobStore(backend *Backend) *JobStore {
	return &JobStore{backend: backend}
}

// Close releases resources. JobStore has no resources to release.
func (s *JobStore) Close() error {
	return nil
}

// Create stores a fresh pending job for the document.
func (s *JobStore) Create(ctx context.Context, docID core.ID) (*core.ProcessingJob, error) {
	now := time.Now().UTC()
	job := &core.ProcessingJob{
		DocumentID: docID,
		Stage:      core.StagePending,
		Progress:   core.StagePending.Progress(),
		StartedAt:  now,
		UpdatedAt:  now,
	}
	err := s.backend.Update(func(tx *badger.Txn) error {
		return tx.Set(makeJobKey(docID), storage.MarshalJob(job))
	})
	if err != nil {
		return nil, storeError("create job", err)
	}
	return job, nil
}

// Get retrieves the job of a document.
func (s *JobStore) Get(ctx context.Context, docID core.ID) (*core.ProcessingJob, error) {
	var job *core.ProcessingJob
	err := s.backend.View(func(tx *badger.Txn) error {
		var err error
		job, err = readValue(tx, makeJobKey(docID), storage.UnmarshalJob)
		if err != nil {
			return err
		}
		if job == nil {
			return storage.ErrNotFound
		}
		return nil
	})
	if err == storage.ErrNotFound {
		return nil, err
	}
	return job, storeError("get job", err)
}

func (s *JobStore) modify(op string, docID core.ID, fn func(job *core.ProcessingJob) error) error {
	err := s.backend.Update(func(tx *badger.Txn) error {
		key := makeJobKey(docID)
		job, err := readValue(tx, key, storage.UnmarshalJob)
		if err != nil {
			return err
		}
		if job == nil {
			return storage.ErrNotFound
		}
		if err := fn(job); err != nil {
			return err
		}
		job.UpdatedAt = time.Now().UTC()
		return tx.Set(key, storage.MarshalJob(job))
	})
	if err == storage.ErrNotFound {
		return err
	}
	return storeError(op, err)
}

// UpdateProgress records the current stage and progress.
// Moving to a stage the job cannot reach from its current one fails with core.ErrIllegalTransition.
func (s *JobStore) UpdateProgress(ctx context.Context, docID core.ID, stage core.Stage, progress int) error {
	return s.modify("update job progress", docID, func(job *core.ProcessingJob) error {
		if job.Stage != stage && !job.Stage.CanTransition(stage) {
			return fmt.Errorf("%w: %s to %s", core.ErrIllegalTransition, job.Stage, stage)
		}
		job.Stage = stage
		job.Progress = progress
		return nil
	})
}

// Complete moves the job to the completed stage.
func (s *JobStore) Complete(ctx context.Context, docID core.ID) error {
	return s.modify("complete job", docID, func(job *core.ProcessingJob) error {
		if job.Stage != core.StageCompleted && !job.Stage.CanTransition(core.StageCompleted) {
			return fmt.Errorf("%w: %s to %s", core.ErrIllegalTransition, job.Stage, core.StageCompleted)
		}
		now := time.Now().UTC()
		job.Stage = core.StageCompleted
		job.Progress = core.StageCompleted.Progress()
		job.CompletedAt = &now
		job.Error = ""
		return nil
	})
}

// SetError moves the job to the error stage, keeping its last progress.
func (s *JobStore) SetError(ctx context.Context, docID core.ID, msg string) error {
	return s.modify("fail job", docID, func(job *core.ProcessingJob) error {
		if job.Stage == core.StageCompleted {
			return fmt.Errorf("%w: %s to %s", core.ErrIllegalTransition, job.Stage, core.StageError)
		}
		now := time.Now().UTC()
		job.Stage = core.StageError
		job.Error = msg
		job.CompletedAt = &now
		return nil
	})
}

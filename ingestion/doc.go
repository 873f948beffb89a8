// Package ingestion turns uploaded documents into stored, embedded chunks.
//
// A Pipeline run for one document moves through a fixed sequence of stages:
//
//	pending -> downloading -> parsing -> chunking -> embedding -> storing -> completed
//
// Every stage change is checked against core.Stage.CanTransition and persisted,
// with its progress checkpoint, through the job store. Any failure moves both the
// job and the document to the error state, records the message, and returns the
// original error. Runs are not retried, and chunks stored before a failure are
// left in place.
//
// Process runs a document synchronously. Submit schedules it on the pipeline's
// worker pool so that independent documents are processed concurrently.
package ingestion

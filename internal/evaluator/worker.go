package evaluator

import (
	"context"
	"log"

	"github.com/google/uuid"

	"github.com/discoursa/debate-engine/internal/session"
)

// Job asks the worker to score one assistant turn
type Job struct {
	SessionID uuid.UUID
	TurnID    uuid.UUID
	TurnIndex int
}

// Worker runs evaluation decoupled from the turn-append path. A single
// goroutine drains the FIFO queue, so a turn's evaluation always completes
// (or fails) before the next turn's evaluation begins. A scoring failure is
// recorded as an absent score and never fails the conversational turn.
type Worker struct {
	service *Service
	repo    session.Repository
	jobs    chan Job
	done    chan struct{}
}

// NewWorker creates a Worker with the given queue depth
func NewWorker(service *Service, repo session.Repository, queueSize int) *Worker {
	if queueSize <= 0 {
		queueSize = 64
	}
	return &Worker{
		service: service,
		repo:    repo,
		jobs:    make(chan Job, queueSize),
		done:    make(chan struct{}),
	}
}

// Enqueue schedules a turn for evaluation without blocking the caller. When
// the queue is full the job is dropped; the turn simply carries no score.
func (w *Worker) Enqueue(job Job) {
	select {
	case w.jobs <- job:
	default:
		log.Printf("evaluator: queue full, dropping job for turn %s", job.TurnID)
	}
}

// Run drains the queue until ctx is cancelled
func (w *Worker) Run(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return
		case job := <-w.jobs:
			w.process(ctx, job)
		}
	}
}

// Wait blocks until Run has returned
func (w *Worker) Wait() {
	<-w.done
}

func (w *Worker) process(ctx context.Context, job Job) {
	sess, err := w.repo.GetByID(ctx, job.SessionID)
	if err != nil {
		log.Printf("evaluator: load session %s: %v", job.SessionID, err)
		return
	}

	scores, err := w.service.ScoreTurn(ctx, sess, job.TurnIndex)
	if err != nil {
		// Absent score, not a failed turn
		log.Printf("evaluator: score turn %s: %v", job.TurnID, err)
		return
	}

	score := session.Score{
		Drift:         scores.Drift,
		Hallucination: scores.Hallucination,
	}
	if err := w.repo.AppendScore(ctx, job.TurnID, score); err != nil {
		log.Printf("evaluator: record score for turn %s: %v", job.TurnID, err)
	}
}

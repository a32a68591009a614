// internal/pipeline/orchestrator.go

// Package pipeline runs the ticket chain: aggregate-metadata, normalize-query,
// retrieve-rerank, select-assignee, then the terminal notify. Distinct tickets
// run concurrently on a fixed worker pool; a single ticket is strictly
// sequential and reaches exactly one terminal outcome.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"ticket-router/internal/common/config"
	"ticket-router/internal/common/errors"
	"ticket-router/internal/common/logger"
	"ticket-router/internal/common/metrics"
	"ticket-router/internal/common/observability"
	"ticket-router/internal/models"
	aggregatemetadata "ticket-router/internal/stages/aggregate-metadata"
	normalizequery "ticket-router/internal/stages/normalize-query"
	"ticket-router/internal/stages/notify"
	retrievererank "ticket-router/internal/stages/retrieve-rerank"
	selectassignee "ticket-router/internal/stages/select-assignee"
	"ticket-router/pkg/registry"

	"github.com/google/uuid"
)

// ChainOrder is the wired, non-terminal stage sequence. It must match the
// stage registry.
var ChainOrder = []string{
	aggregatemetadata.TaskType,
	normalizequery.TaskType,
	retrievererank.TaskType,
	selectassignee.TaskType,
}

// Stages bundles the handlers the orchestrator drives.
type Stages struct {
	Aggregate *aggregatemetadata.Handler
	Normalize *normalizequery.Handler
	Retrieve  *retrievererank.Handler
	Select    *selectassignee.Handler
	Notify    *notify.Handler
}

// Handle tracks one submitted ticket. Outcome is valid once Done is closed.
type Handle struct {
	TicketID string

	done    chan struct{}
	outcome models.Outcome
	cancel  context.CancelFunc
	once    sync.Once
}

func (h *Handle) Done() <-chan struct{} { return h.done }

// Outcome returns the terminal outcome. Callers must wait on Done first.
func (h *Handle) Outcome() models.Outcome { return h.outcome }

// Cancel asks the pipeline to stop working on this ticket. Cancellation is
// cooperative; a stage already running finishes, and the ticket terminates as
// Failed.
func (h *Handle) Cancel() { h.cancel() }

func (h *Handle) finish(outcome models.Outcome) bool {
	finished := false
	h.once.Do(func() {
		h.outcome = outcome
		close(h.done)
		finished = true
	})
	return finished
}

type job struct {
	ticket models.Ticket
	handle *Handle
	ctx    context.Context
}

type Orchestrator struct {
	cfg      config.PipelineConfig
	stages   Stages
	progress Progress
	obs      *observability.Observability
	logger   logger.Logger

	jobs chan *job
	wg   sync.WaitGroup

	// mu serializes enqueues against Shutdown closing the jobs channel.
	mu     sync.RWMutex
	closed bool
}

// New builds the orchestrator and verifies the wired chain against the stage
// registry.
func New(cfg config.PipelineConfig, stages Stages, progress Progress, obs *observability.Observability, reg *registry.StageRegistry, log logger.Logger) (*Orchestrator, error) {
	if reg != nil {
		if err := reg.VerifyChain(ChainOrder); err != nil {
			return nil, fmt.Errorf("stage registry mismatch: %w", err)
		}
	}
	if progress == nil {
		progress = NoopProgress{}
	}

	workers := cfg.Workers
	if workers <= 0 {
		workers = 4
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 64
	}

	o := &Orchestrator{
		cfg:      cfg,
		stages:   stages,
		progress: progress,
		obs:      obs,
		logger:   log.WithFields(map[string]interface{}{"component": "pipeline"}),
		jobs:     make(chan *job, queueSize),
	}

	for i := 0; i < workers; i++ {
		o.wg.Add(1)
		go o.worker()
	}
	return o, nil
}

// Submit validates and enqueues a ticket, returning immediately. The returned
// Handle reports the terminal outcome.
func (o *Orchestrator) Submit(ticket models.Ticket) (*Handle, error) {
	if ticket.Query == "" {
		return nil, errors.NewValidationFailedError("ticket query is required")
	}
	if ticket.Department == "" {
		return nil, errors.NewValidationFailedError("ticket department is required")
	}
	if ticket.ID == "" {
		ticket.ID = uuid.New().String()
	}
	if ticket.NotifyEmail == "" {
		ticket.NotifyEmail = o.cfg.DefaultNotifyEmail
	}

	ctx, cancel := context.WithCancel(context.Background())
	handle := &Handle{
		TicketID: ticket.ID,
		done:     make(chan struct{}),
		cancel:   cancel,
	}

	o.mu.RLock()
	if o.closed {
		o.mu.RUnlock()
		cancel()
		return nil, fmt.Errorf("pipeline is shut down")
	}
	select {
	case o.jobs <- &job{ticket: ticket, handle: handle, ctx: ctx}:
		o.mu.RUnlock()
	default:
		o.mu.RUnlock()
		cancel()
		return nil, fmt.Errorf("pipeline queue is full")
	}

	metrics.TicketsSubmitted.Inc()
	o.logger.Info("ticket submitted", map[string]interface{}{
		"ticketId":   ticket.ID,
		"department": ticket.Department,
	})
	return handle, nil
}

// Shutdown stops accepting tickets and waits for in-flight ones to finish.
// Safe to call more than once and concurrently with Submit.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	if !o.closed {
		o.closed = true
		close(o.jobs)
	}
	o.mu.Unlock()
	o.wg.Wait()
}

func (o *Orchestrator) worker() {
	defer o.wg.Done()
	for j := range o.jobs {
		o.run(j)
	}
}

// run drives one ticket through the chain. Whatever happens, the ticket ends
// in exactly one of Assigned, Rejected or Failed, and the notify stage fires
// exactly once.
func (o *Orchestrator) run(j *job) {
	ticket := j.ticket
	log := o.logger.WithFields(map[string]interface{}{"ticketId": ticket.ID})

	aggregated, err := runStage(o, j, aggregatemetadata.TaskType, func(ctx context.Context) (*aggregatemetadata.Output, error) {
		return o.stages.Aggregate.Execute(ctx, &aggregatemetadata.Input{
			Query:      ticket.Query,
			Department: ticket.Department,
		})
	})
	if err != nil {
		o.terminate(j, aggregatemetadata.TaskType, err, log)
		return
	}

	normalized, err := runStage(o, j, normalizequery.TaskType, func(ctx context.Context) (*normalizequery.Output, error) {
		return o.stages.Normalize.Execute(ctx, &normalizequery.Input{
			Query:      aggregated.Query,
			Department: aggregated.Department,
			Vocabulary: aggregated.Vocabulary,
		})
	})
	if err != nil {
		o.terminate(j, normalizequery.TaskType, err, log)
		return
	}

	reranked, err := runStage(o, j, retrievererank.TaskType, func(ctx context.Context) (*retrievererank.Output, error) {
		return o.stages.Retrieve.Execute(ctx, &retrievererank.Input{
			Query:           normalized.Query,
			Department:      normalized.Department,
			NormalizedQuery: normalized.NormalizedQuery,
		})
	})
	if err != nil {
		o.terminate(j, retrievererank.TaskType, err, log)
		return
	}

	selected, err := runStage(o, j, selectassignee.TaskType, func(ctx context.Context) (*selectassignee.Output, error) {
		return o.stages.Select.Execute(ctx, &selectassignee.Input{
			Query:      reranked.Query,
			Candidates: reranked.Candidates,
		})
	})
	if err != nil {
		o.terminate(j, selectassignee.TaskType, err, log)
		return
	}

	assignment := selected.Assignment
	if j.handle.finish(models.Outcome{Kind: models.OutcomeAssigned, Assignment: &assignment}) {
		metrics.TicketOutcomes.WithLabelValues(string(models.OutcomeAssigned)).Inc()
		o.progress.Record(context.Background(), ticket.ID, "outcome", string(models.OutcomeAssigned))
		log.Info("ticket assigned", map[string]interface{}{
			"assignmentId": assignment.TicketID,
			"employeeId":   assignment.Employee.Record.EmployeeID,
		})
		o.notifyTerminal(ticket, func(ctx context.Context) error {
			return o.stages.Notify.NotifySuccess(ctx, assignment, ticket.NotifyEmail)
		}, log)
	}
}

// runStage wraps one stage execution with the per-stage timeout, metrics and
// progress recording.
func runStage[T any](o *Orchestrator, j *job, stage string, fn func(ctx context.Context) (*T, error)) (*T, error) {
	if err := j.ctx.Err(); err != nil {
		return nil, fmt.Errorf("ticket cancelled: %w", err)
	}

	ctx := j.ctx
	if o.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(o.cfg.StageTimeout)*time.Millisecond)
		defer cancel()
	}

	o.progress.Record(ctx, j.ticket.ID, stage, "started")
	start := time.Now()

	out, err := fn(ctx)

	elapsed := time.Since(start)
	metrics.StageDuration.WithLabelValues(stage).Observe(elapsed.Seconds())
	if o.obs != nil {
		o.obs.RecordStageDuration(ctx, stage, elapsed)
	}

	status := "completed"
	if err != nil {
		status = "failed"
		if _, rejected := errors.AsRejection(err); rejected {
			status = "rejected"
		}
	}
	o.progress.Record(context.Background(), j.ticket.ID, stage, status)
	if o.obs != nil {
		o.obs.RecordStage(ctx, stage, status)
	}
	return out, err
}

// terminate converts a stage error into the ticket's terminal outcome and
// fires the corresponding notification.
func (o *Orchestrator) terminate(j *job, stage string, err error, log logger.Logger) {
	ticket := j.ticket

	if rejection, ok := errors.AsRejection(err); ok {
		if j.handle.finish(models.Outcome{Kind: models.OutcomeRejected, Reason: rejection.Reason}) {
			metrics.TicketOutcomes.WithLabelValues(string(models.OutcomeRejected)).Inc()
			o.progress.Record(context.Background(), ticket.ID, "outcome", string(models.OutcomeRejected))
			log.Info("ticket rejected", map[string]interface{}{
				"stage":  stage,
				"reason": rejection.Reason,
			})
			o.notifyTerminal(ticket, func(ctx context.Context) error {
				return o.stages.Notify.NotifyRejected(ctx, ticket, rejection.Reason, ticket.NotifyEmail)
			}, log)
		}
		return
	}

	if j.handle.finish(models.Outcome{Kind: models.OutcomeFailed, Stage: stage, Cause: err}) {
		metrics.TicketOutcomes.WithLabelValues(string(models.OutcomeFailed)).Inc()
		metrics.StageFailures.WithLabelValues(stage, string(errors.CodeOf(err))).Inc()
		o.progress.Record(context.Background(), ticket.ID, "outcome", string(models.OutcomeFailed))
		log.WithError(err).Error("ticket failed", map[string]interface{}{
			"stage": stage,
		})
		o.notifyTerminal(ticket, func(ctx context.Context) error {
			return o.stages.Notify.NotifyFailure(ctx, ticket, stage, err, ticket.NotifyEmail)
		}, log)
	}
}

// notifyTerminal delivers the terminal notification. Delivery errors are
// logged and dropped; they never change the outcome.
func (o *Orchestrator) notifyTerminal(ticket models.Ticket, send func(ctx context.Context) error, log logger.Logger) {
	ctx := context.Background()
	if o.cfg.StageTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(o.cfg.StageTimeout)*time.Millisecond)
		defer cancel()
	}
	if err := send(ctx); err != nil {
		log.WithError(err).Error("terminal notification failed", map[string]interface{}{
			"ticketId": ticket.ID,
		})
	}
}

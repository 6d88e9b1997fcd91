package telemetry

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rasa/internal/importer"
)

// Training outcomes reported with TrainingCompletedEvent.
const (
	OutcomeSuccess   = "success"
	OutcomeFailure   = "failure"
	OutcomeCancelled = "cancelled"
)

// TrainingRun pairs a started event with exactly one completed event.
type TrainingRun struct {
	client    *Client
	ctx       context.Context
	id        string
	modelType string
	start     time.Time
	started   <-chan struct{}
	endOnce   sync.Once
}

// StartModelTraining reports TrainingStartedEvent and returns the run whose
// End reports the outcome. A nil client yields a run that reports nothing.
func (c *Client) StartModelTraining(ctx context.Context, data *importer.TrainingData, modelType string) *TrainingRun {
	run := &TrainingRun{
		client:    c,
		ctx:       ctx,
		id:        newID(),
		modelType: modelType,
	}
	if c == nil {
		return run
	}
	run.start = c.now()

	summary := importer.Summary{}
	if data != nil {
		summary = data.Summary()
	}
	run.started = c.track(TrainingStartedEvent, map[string]interface{}{
		"training_id":         run.id,
		"type":                modelType,
		"language":            summary.Language,
		"pipeline":            summary.Pipeline,
		"policies":            summary.Policies,
		"num_intent_examples": summary.NumIntentExamples,
		"num_entity_examples": summary.NumEntityExamples,
		"num_actions":         summary.NumActions,
		"num_templates":       summary.NumTemplates,
		"num_slots":           summary.NumSlots,
		"num_forms":           summary.NumForms,
		"num_intents":         summary.NumIntents,
		"num_entities":        summary.NumEntities,
		"num_story_steps":     summary.NumStorySteps,
		"num_lookup_tables":   summary.NumLookupTables,
		"num_synonyms":        summary.NumSynonyms,
		"num_regexes":         summary.NumRegexes,
	}, nil, nil)
	return run
}

// ID is the training identifier shared by both events.
func (r *TrainingRun) ID() string {
	return r.id
}

// End reports TrainingCompletedEvent once; later calls do nothing. The
// completed event is delivered after the started event.
func (r *TrainingRun) End(err error) {
	r.endOnce.Do(func() {
		if r.client == nil {
			return
		}
		r.client.track(TrainingCompletedEvent, map[string]interface{}{
			"training_id": r.id,
			"type":        r.modelType,
			"runtime":     int(r.client.now().Sub(r.start).Seconds()),
			"outcome":     r.outcome(err),
		}, nil, r.started)
	})
}

func (r *TrainingRun) outcome(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCancelled
	case err != nil:
		return OutcomeFailure
	case r.ctx != nil && r.ctx.Err() != nil:
		return OutcomeCancelled
	default:
		return OutcomeSuccess
	}
}

// TrackModelTraining runs train between a started and a completed event. The
// completed event is reported on every exit path, panics included; train's
// error or panic reaches the caller unchanged.
func (c *Client) TrackModelTraining(ctx context.Context, data *importer.TrainingData, modelType string, train func(ctx context.Context) error) (err error) {
	run := c.StartModelTraining(ctx, data, modelType)
	defer func() {
		if r := recover(); r != nil {
			run.End(fmt.Errorf("panic: %v", r))
			panic(r)
		}
		run.End(err)
	}()
	return train(ctx)
}

package app

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/trace"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/effects"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/guard"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/period"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/registry"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/visibility"
	"github.com/Mmartinrusso/Orvit-sub062/internal/logging"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/primary"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/secondary"
)

const instrumentationScope = "github.com/Mmartinrusso/Orvit-sub062/internal/app"

// DefaultTxTimeout bounds one transition transaction.
const DefaultTxTimeout = 5 * time.Second

// Event metadata keys.
const (
	MetaRegistryVersion   = "registry_version"
	MetaRouted            = "routed_to_approval"
	MetaRouteReason       = "route_reason"
	MetaDuplicateOverride = "duplicate_override"
	MetaOverridden        = "overridden_candidates"
	MetaEffects           = "effects"
	MetaTriggeredBy       = "triggered_by"
	MetaTriggerEdge       = "trigger_edge"
)

// Clock returns the current time. Tests inject a fixed clock.
type Clock func() time.Time

// ExecutorOption configures a TransitionExecutor.
type ExecutorOption func(*TransitionExecutor)

// WithClock replaces the wall clock.
func WithClock(clock Clock) ExecutorOption {
	return func(e *TransitionExecutor) {
		if clock != nil {
			e.clock = clock
		}
	}
}

// WithTxTimeout bounds every transition transaction.
func WithTxTimeout(d time.Duration) ExecutorOption {
	return func(e *TransitionExecutor) {
		if d > 0 {
			e.txTimeout = d
		}
	}
}

// WithNotifier sets the post-commit notifier.
func WithNotifier(n secondary.Notifier) ExecutorOption {
	return func(e *TransitionExecutor) {
		e.notifier = n
	}
}

// WithGuards replaces the guard library.
func WithGuards(lib guard.Library) ExecutorOption {
	return func(e *TransitionExecutor) {
		if lib != nil {
			e.guards = lib
		}
	}
}

// TransitionExecutor implements primary.TransitionService.
// Every call is one transaction: the document read, guard evaluation, state
// write, side effects and audit append commit together or not at all.
type TransitionExecutor struct {
	store     secondary.Store
	registry  *registry.Registry
	guards    guard.Library
	catalog   *effects.Catalog
	configs   *ConfigCache
	notifier  secondary.Notifier
	logger    zerolog.Logger
	clock     Clock
	txTimeout time.Duration

	tracer      trace.Tracer
	transitions metric.Int64Counter
	latency     metric.Float64Histogram
}

var _ primary.TransitionService = (*TransitionExecutor)(nil)

// NewTransitionExecutor creates a TransitionExecutor with injected dependencies.
func NewTransitionExecutor(
	store secondary.Store,
	reg *registry.Registry,
	catalog *effects.Catalog,
	configs *ConfigCache,
	logger zerolog.Logger,
	opts ...ExecutorOption,
) *TransitionExecutor {
	e := &TransitionExecutor{
		store:     store,
		registry:  reg,
		guards:    guard.DefaultLibrary(),
		catalog:   catalog,
		configs:   configs,
		logger:    logger.With().Str("component", "executor").Logger(),
		clock:     time.Now,
		txTimeout: DefaultTxTimeout,
		tracer:    otel.Tracer(instrumentationScope),
	}
	for _, opt := range opts {
		opt(e)
	}

	meter := otel.Meter(instrumentationScope)
	var err error
	if e.transitions, err = meter.Int64Counter("doclife.transitions",
		metric.WithDescription("Transition attempts by outcome")); err != nil {
		e.transitions = noop.Int64Counter{}
	}
	if e.latency, err = meter.Float64Histogram("doclife.transition.duration",
		metric.WithDescription("Transition latency"), metric.WithUnit("ms")); err != nil {
		e.latency = noop.Float64Histogram{}
	}
	return e
}

// now returns the clock reading at the storage precision.
func (e *TransitionExecutor) now() time.Time {
	return e.clock().UTC().Truncate(time.Microsecond)
}

// Apply traverses a named edge from the document's current state.
func (e *TransitionExecutor) Apply(ctx context.Context, req primary.ApplyRequest) (*primary.TransitionResult, error) {
	ctx, span := e.tracer.Start(ctx, "transition.apply", trace.WithAttributes(
		attribute.String("tenant", req.TenantID),
		attribute.String("document_type", string(req.DocumentType)),
		attribute.String("document", req.DocumentID),
		attribute.String("edge", req.Edge),
	))
	defer span.End()
	start := time.Now()

	var result *primary.TransitionResult
	observed, err := e.observedVersion(ctx, req)
	if err == nil {
		err = e.inTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
			var err error
			result, err = e.apply(ctx, tx, req, observed)
			return err
		})
	}
	e.observe(ctx, span, "apply", req.DocumentType, req.Edge, req.TenantID, req.DocumentID, start, err)
	if err != nil {
		return nil, err
	}
	e.notify(ctx, result)
	return result, nil
}

// Create creates a document through its type's creation edge.
func (e *TransitionExecutor) Create(ctx context.Context, req primary.CreateRequest) (*primary.TransitionResult, error) {
	ctx, span := e.tracer.Start(ctx, "transition.create", trace.WithAttributes(
		attribute.String("tenant", req.TenantID),
		attribute.String("document_type", string(req.DocumentType)),
	))
	defer span.End()
	start := time.Now()

	if req.DocumentID == "" {
		req.DocumentID = uuid.NewString()
	}

	var result *primary.TransitionResult
	err := e.inTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
		var err error
		result, err = e.create(ctx, tx, req)
		return err
	})
	e.observe(ctx, span, "create", req.DocumentType, "create", req.TenantID, req.DocumentID, start, err)
	if err != nil {
		return nil, err
	}
	e.notify(ctx, result)
	return result, nil
}

// inTx runs fn in one transaction bounded by the executor's timeout.
// Any failure caused by the deadline is reported as TIMEOUT.
func (e *TransitionExecutor) inTx(ctx context.Context, fn func(ctx context.Context, tx secondary.Tx) error) error {
	txCtx, cancel := context.WithTimeout(ctx, e.txTimeout)
	defer cancel()

	err := e.store.WithinTx(txCtx, fn)
	if err == nil {
		return nil
	}
	if errors.Is(txCtx.Err(), context.DeadlineExceeded) && !lifecycle.IsRetryable(err) {
		switch lifecycle.KindOf(err) {
		case lifecycle.KindInvalidTransition, lifecycle.KindGuardFailed, lifecycle.KindNotFound:
			return err
		}
		return lifecycle.Timeout(err)
	}
	var le *lifecycle.Error
	if !errors.As(err, &le) {
		return lifecycle.Internal("transition failed", err)
	}
	return err
}

// observedVersion returns the version the request acts on: the caller's
// ExpectedVersion, or the version committed when the request arrived.
// A writer that commits in between turns this request into
// CONCURRENT_MODIFICATION rather than a traversal from a state the caller
// never saw.
func (e *TransitionExecutor) observedVersion(ctx context.Context, req primary.ApplyRequest) (int64, error) {
	if req.ExpectedVersion != 0 {
		return req.ExpectedVersion, nil
	}
	var version int64
	err := e.inTx(ctx, func(ctx context.Context, tx secondary.Tx) error {
		doc, err := e.loadDocument(ctx, tx, req)
		if err != nil {
			return err
		}
		version = doc.Version
		return nil
	})
	return version, err
}

func (e *TransitionExecutor) loadDocument(ctx context.Context, tx secondary.Tx, req primary.ApplyRequest) (*lifecycle.Document, error) {
	doc, err := tx.Documents().Get(ctx, req.TenantID, req.DocumentID, visibility.Allowed(req.Actor))
	if err != nil {
		return nil, err
	}
	if req.DocumentType != "" && doc.Type != req.DocumentType {
		return nil, lifecycle.NotFound(strings.ToLower(string(req.DocumentType)), req.DocumentID)
	}
	return doc, nil
}

func (e *TransitionExecutor) apply(ctx context.Context, tx secondary.Tx, req primary.ApplyRequest, observed int64) (*primary.TransitionResult, error) {
	scopes := visibility.Allowed(req.Actor)
	doc, err := e.loadDocument(ctx, tx, req)
	if err != nil {
		return nil, err
	}
	if doc.Version != observed {
		return nil, lifecycle.ConcurrentModification(
			fmt.Sprintf("document %s is at version %d, expected %d", doc.ID, doc.Version, observed), nil)
	}

	// The from-state is always the freshly loaded one.
	edge, ok := e.registry.Edge(doc.Type, doc.State, req.Edge)
	if !ok || edge.Creation || edge.System {
		return nil, lifecycle.InvalidTransition(doc.Type, doc.State, req.Edge)
	}

	now := e.now()
	outcome, err := guard.Run(ctx, e.guards, guard.Input{
		Edge:     edge,
		Document: doc,
		Actor:    req.Actor,
		Payload:  req.Payload,
		Tx:       e.txContext(tx, req.TenantID, scopes, now),
	})
	if err != nil {
		return nil, err
	}

	next := doc.Clone()
	next.State = edge.To
	next.Version = doc.Version + 1
	next.UpdatedAt = now
	if len(req.Payload.Attributes) > 0 {
		if next.Attributes == nil {
			next.Attributes = make(map[string]string, len(req.Payload.Attributes))
		}
		maps.Copy(next.Attributes, req.Payload.Attributes)
	}

	run := &effectRun{
		tx:      tx,
		edge:    edge,
		doc:     next,
		actor:   req.Actor,
		payload: req.Payload,
		now:     now,
	}
	if err := e.planEffects(ctx, run); err != nil {
		return nil, err
	}
	if err := tx.Documents().Update(ctx, next, doc.Version); err != nil {
		return nil, err
	}
	if err := e.applyIntents(ctx, run); err != nil {
		return nil, err
	}

	event := e.newEvent(next, doc.State, edge, req.Actor, req.Reason, now, e.metadata(outcome, run))
	if err := tx.Events().Append(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record transition: %w", err)
	}

	return &primary.TransitionResult{
		Document:          next,
		Event:             event,
		DuplicateOverride: outcome.DuplicateOverride,
		LinkedEvents:      run.linkedEvents,
		LinkedDocuments:   run.linkedDocs,
	}, nil
}

func (e *TransitionExecutor) create(ctx context.Context, tx secondary.Tx, req primary.CreateRequest) (*primary.TransitionResult, error) {
	edge, ok := e.registry.CreationEdge(req.DocumentType)
	if !ok {
		return nil, lifecycle.InvalidTransition(req.DocumentType, lifecycle.NoState, "create")
	}

	scope := req.Payload.Scope
	if scope == "" {
		scope = lifecycle.ScopeStandard
	}
	if !visibility.CanSee(req.Actor, scope) {
		return nil, lifecycle.GuardFailed(lifecycle.GuardPermissionDenied,
			fmt.Sprintf("actor %s cannot create %s documents", req.Actor.ID, scope))
	}

	now := e.now()
	p := req.Payload
	candidate := &lifecycle.Document{
		ID:            req.DocumentID,
		TenantID:      req.TenantID,
		Type:          req.DocumentType,
		State:         edge.To,
		Scope:         scope,
		Version:       1,
		Links:         maps.Clone(p.Links),
		Title:         p.Title,
		Amount:        p.Amount,
		Urgency:       p.Urgency,
		EntityRefs:    maps.Clone(p.EntityRefs),
		Lines:         append([]lifecycle.LineItem(nil), p.Lines...),
		Attributes:    maps.Clone(p.Attributes),
		EffectiveDate: period.EffectiveDate(p.EffectiveDate, now).Truncate(time.Microsecond),
		CreatedBy:     req.Actor.ID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	scopes := visibility.Allowed(req.Actor)
	outcome, err := guard.Run(ctx, e.guards, guard.Input{
		Edge:     edge,
		Document: candidate,
		Actor:    req.Actor,
		Payload:  p,
		Tx:       e.txContext(tx, req.TenantID, scopes, now),
	})
	if err != nil {
		return nil, err
	}

	initial, _ := e.registry.InitialState(req.DocumentType, registry.InitialContext{
		RequiresApproval: outcome.RouteToApproval,
	})
	candidate.State = initial
	routed := outcome.RouteToApproval && initial != edge.To

	run := &effectRun{
		tx:      tx,
		edge:    edge,
		doc:     candidate,
		actor:   req.Actor,
		payload: p,
		now:     now,
	}
	if err := e.planEffects(ctx, run); err != nil {
		return nil, err
	}
	if err := tx.Documents().Insert(ctx, candidate); err != nil {
		return nil, err
	}
	if err := e.applyIntents(ctx, run); err != nil {
		return nil, err
	}

	meta := e.metadata(outcome, run)
	if !routed {
		delete(meta, MetaRouted)
		delete(meta, MetaRouteReason)
	}
	event := e.newEvent(candidate, lifecycle.NoState, edge, req.Actor, req.Reason, now, meta)
	if err := tx.Events().Append(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to record transition: %w", err)
	}

	result := &primary.TransitionResult{
		Document:          candidate,
		Event:             event,
		Routed:            routed,
		DuplicateOverride: outcome.DuplicateOverride,
		LinkedEvents:      run.linkedEvents,
		LinkedDocuments:   run.linkedDocs,
	}
	if routed {
		result.RouteReason = outcome.RouteReason
	}
	return result, nil
}

func (e *TransitionExecutor) txContext(tx secondary.Tx, tenantID string, scopes []lifecycle.Scope, now time.Time) *txContext {
	return &txContext{
		tx:       tx,
		tenantID: tenantID,
		scopes:   scopes,
		configs:  e.configs,
		registry: e.registry,
		now:      now,
	}
}

func (e *TransitionExecutor) newEvent(doc *lifecycle.Document, from lifecycle.State, edge registry.Edge, actor lifecycle.Actor, reason string, now time.Time, meta map[string]string) *lifecycle.TransitionEvent {
	return &lifecycle.TransitionEvent{
		ID:           uuid.NewString(),
		TenantID:     doc.TenantID,
		DocumentType: doc.Type,
		DocumentID:   doc.ID,
		FromState:    from,
		ToState:      doc.State,
		Edge:         edge.Name,
		ActorID:      actor.ID,
		Timestamp:    now,
		Reason:       reason,
		Metadata:     meta,
	}
}

func (e *TransitionExecutor) metadata(outcome guard.Outcome, run *effectRun) map[string]string {
	meta := map[string]string{MetaRegistryVersion: e.registry.Version()}
	if outcome.RouteToApproval {
		meta[MetaRouted] = "true"
		meta[MetaRouteReason] = outcome.RouteReason
	}
	if outcome.DuplicateOverride {
		meta[MetaDuplicateOverride] = "true"
		ids := make([]string, len(outcome.OverriddenCandidates))
		for i, c := range outcome.OverriddenCandidates {
			ids[i] = c.DocumentID + "@" + strconv.FormatFloat(c.Score, 'f', 2, 64)
		}
		meta[MetaOverridden] = strings.Join(ids, ",")
	}
	if len(run.actions) > 0 {
		ids := make([]string, len(run.actions))
		for i, a := range run.actions {
			ids[i] = a.ID
		}
		meta[MetaEffects] = strings.Join(ids, ",")
	}
	return meta
}

// notify announces committed transitions. Failures are logged only.
func (e *TransitionExecutor) notify(ctx context.Context, result *primary.TransitionResult) {
	if e.notifier == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), time.Second)
	defer cancel()

	versions := map[string]int64{result.Document.ID: result.Document.Version}
	for _, d := range result.LinkedDocuments {
		versions[d.ID] = d.Version
	}
	events := append([]*lifecycle.TransitionEvent{result.Event}, result.LinkedEvents...)
	for _, ev := range events {
		version := versions[ev.DocumentID]
		if err := e.notifier.Publish(ctx, secondary.TransitionNotification{Event: ev, Version: version}); err != nil {
			e.logger.Warn().Err(err).
				Str("document", ev.DocumentID).
				Str("edge", ev.Edge).
				Msg("transition notification failed")
		}
	}
}

func (e *TransitionExecutor) observe(ctx context.Context, span trace.Span, op string, docType lifecycle.DocumentType, edge, tenantID, docID string, start time.Time, err error) {
	elapsed := time.Since(start)
	outcome := "committed"
	if err != nil {
		outcome = string(lifecycle.KindOf(err))
	}
	attrs := metric.WithAttributes(
		attribute.String("operation", op),
		attribute.String("document_type", string(docType)),
		attribute.String("outcome", outcome),
	)
	e.transitions.Add(ctx, 1, attrs)
	e.latency.Record(ctx, float64(elapsed.Microseconds())/1000, attrs)

	logger := logging.WithRequest(ctx, e.logger)
	var logEvent *zerolog.Event
	switch {
	case err == nil:
		span.SetStatus(codes.Ok, "")
		logEvent = logger.Info()
	case lifecycle.KindOf(err) == lifecycle.KindInternal || lifecycle.KindOf(err) == lifecycle.KindSideEffectFailed:
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		logEvent = logger.Error().Err(err)
	default:
		span.SetAttributes(attribute.String("outcome", outcome))
		logEvent = logger.Info().Str("reason", err.Error())
	}
	logEvent.
		Str("operation", op).
		Str("tenant", tenantID).
		Str("document_type", string(docType)).
		Str("document", docID).
		Str("edge", edge).
		Str("outcome", outcome).
		Dur("duration", elapsed).
		Msg("transition")
}

package lifecycle

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/recordkit/recordkit/pkg/observability"
	"github.com/recordkit/recordkit/pkg/query"
	"github.com/recordkit/recordkit/pkg/record"
	"github.com/recordkit/recordkit/pkg/storage"
)

// sortableFields are the columns a list request may sort by.
var sortableFields = []string{"id", "name", "status", "lock_version"}

// Service orchestrates create/update/delete/read for records.
type Service struct {
	store     storage.RecordStore
	mirror    storage.MirrorStore
	policy    *record.Policy
	scenarios Scenarios

	defaultPageSize int
	logger          *observability.Logger
	metrics         *observability.Metrics
	now             func() time.Time
}

// Options carries the optional collaborators for a Service.
type Options struct {
	// Mirror enables best-effort secondary-store writes when non-nil.
	Mirror storage.MirrorStore

	// Scenarios overrides the per-scenario field declarations.
	Scenarios Scenarios

	// DefaultPageSize is used when a list request omits the page size.
	DefaultPageSize int

	Logger  *observability.Logger
	Metrics *observability.Metrics

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// NewService creates a lifecycle service over the given store and policy.
func NewService(store storage.RecordStore, policy *record.Policy, opts Options) *Service {
	if opts.Scenarios == nil {
		opts.Scenarios = DefaultScenarios()
	}
	if opts.DefaultPageSize <= 0 {
		opts.DefaultPageSize = 20
	}
	if opts.Logger == nil {
		opts.Logger = observability.NewLogger(observability.InfoLevel, os.Stdout)
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	return &Service{
		store:           store,
		mirror:          opts.Mirror,
		policy:          policy,
		scenarios:       opts.Scenarios,
		defaultPageSize: opts.DefaultPageSize,
		logger:          opts.Logger,
		metrics:         opts.Metrics,
		now:             opts.Now,
	}
}

// Create validates input under the create scenario and persists a new
// record. Status defaults to Draft unless the caller overrides it.
func (s *Service) Create(ctx context.Context, actor record.Actor, input Input) (*record.Record, error) {
	if err := s.scenarios.validateFields(ScenarioCreate, input); err != nil {
		s.metrics.ObserveOperation(string(ScenarioCreate), record.KindOf(err).String())
		return nil, err
	}

	rec := &record.Record{Status: record.StatusDraft}
	name, _ := stringValue(input, "name")
	rec.Name = name
	if desc, ok := stringValue(input, "description"); ok {
		rec.Description = desc
	}
	if raw, present := input["status"]; present {
		status, _ := statusValue(raw)
		rec.Status = status
	}
	rec.Detail.ChangeLog = record.NewChangeLog(actor.Name, s.now())

	start := time.Now()
	if err := s.store.Create(ctx, rec); err != nil {
		s.metrics.ObserveOperation(string(ScenarioCreate), "failure")
		return nil, record.WrapError(record.KindStorage, "failed to create record", err)
	}
	s.metrics.ObservePersistence(string(ScenarioCreate), time.Since(start))
	s.metrics.ObserveOperation(string(ScenarioCreate), "success")

	s.logger.WithFields(map[string]interface{}{
		"record_id": rec.ID,
		"actor":     actor.Name,
	}).Info("record created")

	s.mirrorWrite(ctx, rec)
	return rec, nil
}

// Update validates input under the update scenario and persists the change
// with a compare-and-swap on the lock version.
func (s *Service) Update(ctx context.Context, actor record.Actor, input Input) (*record.Record, error) {
	rec, err := s.mutate(ctx, actor, ScenarioUpdate, input)
	if err != nil {
		s.metrics.ObserveOperation(string(ScenarioUpdate), record.KindOf(err).String())
		return nil, err
	}
	s.metrics.ObserveOperation(string(ScenarioUpdate), "success")
	return rec, nil
}

// Delete soft-deletes a record: status moves to Deleted and the change log
// is stamped, but the row remains.
func (s *Service) Delete(ctx context.Context, actor record.Actor, input Input) (*record.Record, error) {
	rec, err := s.mutate(ctx, actor, ScenarioDelete, input)
	if err != nil {
		s.metrics.ObserveOperation(string(ScenarioDelete), record.KindOf(err).String())
		return nil, err
	}
	s.metrics.ObserveOperation(string(ScenarioDelete), "success")
	return rec, nil
}

// mutate is the shared update/delete pipeline. The order is fixed: field
// validation, status policy, lock pre-check, dependency guard, no-op
// rejection, stamp, persist.
func (s *Service) mutate(ctx context.Context, actor record.Actor, scenario Scenario, input Input) (*record.Record, error) {
	if err := s.scenarios.validateFields(scenario, input); err != nil {
		return nil, err
	}

	id, _ := positiveInt(input["id"])
	suppliedVersion, _ := positiveInt(input["lock_version"])

	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	newStatus := rec.Status
	if scenario == ScenarioDelete {
		newStatus = record.StatusDeleted
	} else if raw, present := input["status"]; present {
		newStatus, _ = statusValue(raw)
	}

	// A deleted record is frozen for plain actors even when the update
	// leaves status alone.
	if rec.Status == record.StatusDeleted && scenario == ScenarioUpdate &&
		newStatus == record.StatusDeleted && !actor.IsSuperadmin() {
		return nil, record.NewError(record.KindPermissionDenied, "deleted records cannot be modified")
	}

	// Status policy is evaluated before the lock pre-check; field order
	// mirrors the declaration order of the record.
	if newStatus != rec.Status {
		if err := s.policy.Check(rec.Status, newStatus, actor.IsSuperadmin()); err != nil {
			return nil, err
		}
	}

	if err := record.CheckVersion(rec.LockVersion, suppliedVersion); err != nil {
		return nil, err
	}

	newName := rec.Name
	if v, ok := stringValue(input, "name"); ok {
		newName = v
	}
	newDescription := rec.Description
	if v, ok := stringValue(input, "description"); ok {
		newDescription = v
	}

	dirty := newName != rec.Name || newDescription != rec.Description || newStatus != rec.Status
	if !dirty {
		if scenario == ScenarioDelete {
			return nil, record.NewError(record.KindNoEffectiveChange, "no record deleted")
		}
		return nil, record.NewError(record.KindNoEffectiveChange, "no record updated")
	}

	if err := s.checkDependencies(ctx, rec, scenario, newName != rec.Name, newStatus != rec.Status); err != nil {
		return nil, err
	}

	deleted := newStatus == record.StatusDeleted && rec.Status != record.StatusDeleted
	rec.Name = newName
	rec.Description = newDescription
	rec.Status = newStatus
	rec.Detail.ChangeLog = rec.Detail.ChangeLog.Stamped(deleted, dirty, actor.Name, s.now())

	start := time.Now()
	if err := s.store.Update(ctx, rec, suppliedVersion); err != nil {
		if record.IsKind(err, record.KindLockConflict) || record.IsKind(err, record.KindNotFound) {
			return nil, err
		}
		msg := "failed to update record"
		if scenario == ScenarioDelete {
			msg = "failed to delete record"
		}
		return nil, record.WrapError(record.KindStorage, msg, err)
	}
	s.metrics.ObservePersistence(string(scenario), time.Since(start))

	s.logger.WithFields(map[string]interface{}{
		"record_id": rec.ID,
		"actor":     actor.Name,
		"scenario":  string(scenario),
		"status":    rec.Status.String(),
	}).Info("record persisted")

	s.mirrorWrite(ctx, rec)
	return rec, nil
}

// checkDependencies refuses writes that would break rows referencing this
// record. A name change rewires what referencing rows point at; a delete or
// status change can strand them.
func (s *Service) checkDependencies(ctx context.Context, rec *record.Record, scenario Scenario, nameChanged, statusChanged bool) error {
	if scenario != ScenarioDelete && !nameChanged && !statusChanged {
		return nil
	}
	count, source, err := s.store.ReferenceCount(ctx, rec.ID)
	if err != nil {
		return record.WrapError(record.KindStorage, "failed to check references", err)
	}
	if count > 0 {
		return record.NewError(record.KindDependencyBlocked,
			fmt.Sprintf("record is referenced by %d row(s) via %s", count, source))
	}
	return nil
}

// Get fetches a record by id. Deleted records are invisible to
// non-privileged actors.
func (s *Service) Get(ctx context.Context, actor record.Actor, id int64) (*record.Record, error) {
	rec, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if rec.Status == record.StatusDeleted && !actor.IsSuperadmin() {
		return nil, record.NewError(record.KindNotFound, fmt.Sprintf("record %d not found", id))
	}
	return rec, nil
}

// ListRequest carries the caller-supplied read filters. Zero values mean "no
// opinion".
type ListRequest struct {
	Name         string         // substring match
	NameExact    string         // anchored case-insensitive match
	IDs          string         // comma-separated id set
	Status       *record.Status // nil excludes Deleted only
	Search       string         // matches name or description
	CreatedRange string         // "start,end" or exact date
	UpdatedRange string         // "start,end" or exact date
	Page         int
	Size         int
	SortBy       string
	SortOrder    string
}

// List fetches one page of records matching the request.
func (s *Service) List(ctx context.Context, req ListRequest) ([]*record.Record, query.PageSpec, error) {
	if req.Page < 1 {
		return nil, query.PageSpec{}, record.NewValidationError("validation failed",
			record.FieldError{Field: "page", Message: "page must be greater than zero"})
	}

	filter := query.NewFilter().
		Like("name", req.Name).
		ExactString("name", req.NameExact).
		MultiValue("id", req.IDs).
		Status("status", req.Status).
		DateRange("changeLog.createdAt", req.CreatedRange).
		DateRange("changeLog.updatedAt", req.UpdatedRange)
	if req.Search != "" {
		filter.Or(func(or *query.Filter) {
			or.Like("name", req.Search)
			or.Like("description", req.Search)
		})
	}

	total, err := s.store.Count(ctx, filter)
	if err != nil {
		return nil, query.PageSpec{}, record.WrapError(record.KindStorage, "failed to count records", err)
	}

	page := query.ResolvePage(req.Page, req.Size, total, s.defaultPageSize)
	sort := query.ResolveSort(req.SortBy, req.SortOrder, sortableFields...)

	records, err := s.store.List(ctx, filter, sort, page)
	if err != nil {
		return nil, query.PageSpec{}, record.WrapError(record.KindStorage, "failed to list records", err)
	}
	return records, page, nil
}

// mirrorWrite copies the record to the secondary store. Failures never fail
// the request: the record is flagged for the re-sync sweep instead.
func (s *Service) mirrorWrite(ctx context.Context, rec *record.Record) {
	if s.mirror == nil {
		return
	}

	if err := s.mirror.Upsert(ctx, rec); err != nil {
		s.metrics.ObserveMirrorWrite(false)
		s.logger.WithError(err).WithField("record_id", rec.ID).Warn("mirror write failed; flagging for re-sync")

		flag := record.SyncPending
		if ferr := s.store.SetSyncFlag(ctx, rec.ID, &flag); ferr != nil {
			s.logger.WithError(ferr).WithField("record_id", rec.ID).Error("failed to set sync flag")
			return
		}
		rec.SyncFlag = &flag
		return
	}

	s.metrics.ObserveMirrorWrite(true)
	if rec.NeedsSync() {
		// record caught up with the mirror; clear the stale marker
		if err := s.store.SetSyncFlag(ctx, rec.ID, nil); err != nil {
			s.logger.WithError(err).WithField("record_id", rec.ID).Error("failed to clear sync flag")
			return
		}
		rec.SyncFlag = nil
	}
}

// HealthCheck verifies the primary store and, when configured, the mirror.
func (s *Service) HealthCheck(ctx context.Context) error {
	if err := s.store.HealthCheck(ctx); err != nil {
		return err
	}
	if s.mirror != nil {
		if err := s.mirror.Ping(ctx); err != nil {
			return err
		}
	}
	return nil
}

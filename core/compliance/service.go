package compliance

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/trezcool/bitacora/core"
)

var (
	// mockable
	NowFunc = time.Now
	NewID   = func() string { return uuid.New().String() }

	// errors
	ErrTeacherNotFound = errors.New("docente no encontrado")
	errInvalidDate     = "fecha inválida"
)

type (
	// Repository is the Record Store. Every operation is scoped to an owner.
	Repository interface {
		QueryTeachers(ctx context.Context, owner string) ([]Teacher, error)
		CreateTeacher(ctx context.Context, owner string, teacher Teacher) (Teacher, error)
		// DeleteTeacher removes the teacher and all of its records in one step.
		// It returns ErrTeacherNotFound if the teacher does not exist.
		DeleteTeacher(ctx context.Context, owner, id string) (int, error)
		QueryRecords(ctx context.Context, owner string) ([]Record, error)
		CreateRecord(ctx context.Context, owner string, record Record) (Record, error)
		// ReplaceAll swaps both collections; atomically whenever the store allows it.
		ReplaceAll(ctx context.Context, owner string, teachers []Teacher, records []Record) error
	}

	// Watcher is implemented by stores that can push changes made elsewhere.
	// Watch blocks until ctx is done, calling onChange on every remote change.
	Watcher interface {
		Watch(ctx context.Context, owner string, onChange func()) error
	}

	// Listener receives the new snapshot after every change of an owner's data.
	Listener func(snap *Snapshot)

	// Logged is the outcome of LogCompliance.
	Logged struct {
		Record
		// Duplicate is set when the same teacher, course and subject was already logged that day.
		Duplicate bool `json:"duplicate"`
	}
)

type Service struct {
	repo     Repository
	validate *validator.Validate
	logger   core.Logger
	catalog  Catalog
	loc      *time.Location

	mu        sync.RWMutex
	versions  map[string]uint64
	listeners map[int]Listener
	nextLsnr  int
	watchers  map[string]*ownerWatch
	seen      map[string]uint64 // fingerprint of the last snapshot delivered per owner
}

// ownerWatch is the single store watcher shared by every Watch call of an owner.
type ownerWatch struct {
	refs   int
	cancel context.CancelFunc
	done   chan struct{}
	err    error
}

func NewService(repo Repository, validate *validator.Validate, logger core.Logger, conf *core.Config) *Service {
	return &Service{
		repo:      repo,
		validate:  validate,
		logger:    logger,
		catalog:   NewCatalog(conf),
		loc:       conf.Location(),
		versions:  make(map[string]uint64),
		listeners: make(map[int]Listener),
		watchers:  make(map[string]*ownerWatch),
		seen:      make(map[string]uint64),
	}
}

func (svc *Service) Catalog() Catalog          { return svc.catalog }
func (svc *Service) Location() *time.Location { return svc.loc }

func (svc *Service) ListTeachers(ctx context.Context, owner string) ([]Teacher, error) {
	return svc.repo.QueryTeachers(ctx, owner)
}

func (svc *Service) AddTeacher(ctx context.Context, owner string, nt NewTeacher) (Teacher, error) {
	if err := nt.Validate(svc.validate); err != nil {
		return Teacher{}, err
	}
	t, err := svc.repo.CreateTeacher(ctx, owner, Teacher{ID: NewID(), Name: nt.Name})
	if err != nil {
		return Teacher{}, err
	}
	svc.changed(ctx, owner)
	return t, nil
}

// DeleteTeacher removes the teacher and its records. Unknown ids are a logged no-op.
func (svc *Service) DeleteTeacher(ctx context.Context, owner, id string) error {
	removed, err := svc.repo.DeleteTeacher(ctx, owner, id)
	if err != nil {
		if errors.Is(err, ErrTeacherNotFound) {
			svc.logger.Warn(fmt.Sprintf("deleting teacher %q: not found", id), core.Owner{ID: owner})
			return nil
		}
		return err
	}
	svc.logger.Info(fmt.Sprintf("teacher %q deleted with %d records", id, removed), core.Owner{ID: owner})
	svc.changed(ctx, owner)
	return nil
}

// ListRecords returns the owner's records, sorted by orderings (insertion order if none).
func (svc *Service) ListRecords(ctx context.Context, owner string, orderings ...core.Ordering) ([]Record, error) {
	records, err := svc.repo.QueryRecords(ctx, owner)
	if err != nil {
		return nil, err
	}
	return SortRecords(records, orderings...), nil
}

// LogCompliance stores a new record. Duplicates are flagged, never rejected.
func (svc *Service) LogCompliance(ctx context.Context, owner string, nr NewRecord) (Logged, error) {
	if err := nr.Validate(svc.validate); err != nil {
		return Logged{}, err
	}
	when, err := nr.when(svc.loc)
	if err != nil {
		return Logged{}, core.NewValidationError(nil, core.FieldError{Field: "date", Error: errInvalidDate})
	}
	if when.IsZero() {
		when = NowFunc()
	}

	snap, err := svc.Snapshot(ctx, owner)
	if err != nil {
		return Logged{}, err
	}
	teacher, ok := snap.Teacher(nr.TeacherID)
	if !ok {
		svc.logger.Warn(fmt.Sprintf("logging compliance for teacher %q: not found", nr.TeacherID), core.Owner{ID: owner})
		return Logged{}, ErrTeacherNotFound
	}
	duplicate := snap.HasLogged(teacher.ID, nr.Course, nr.Subject, DayOf(when, svc.loc))

	rec, err := svc.repo.CreateRecord(ctx, owner, Record{
		ID:          NewID(),
		TeacherID:   teacher.ID,
		TeacherName: teacher.Name,
		Date:        when,
		Course:      nr.Course,
		Subject:     nr.Subject,
		Status:      nr.Status,
	})
	if err != nil {
		return Logged{}, err
	}
	svc.changed(ctx, owner)
	return Logged{Record: rec, Duplicate: duplicate}, nil
}

// HasLogged answers a duplicate query; the day defaults to today.
func (svc *Service) HasLogged(ctx context.Context, owner string, lq LoggedQuery) (bool, error) {
	if err := lq.Validate(svc.validate); err != nil {
		return false, err
	}
	day := DayOf(NowFunc(), svc.loc)
	if lq.Day != "" {
		var err error
		if day, err = ParseDay(lq.Day); err != nil {
			return false, core.NewValidationError(nil, core.FieldError{Field: "day", Error: errInvalidDate})
		}
	}
	snap, err := svc.Snapshot(ctx, owner)
	if err != nil {
		return false, err
	}
	return snap.HasLogged(lq.TeacherID, lq.Course, lq.Subject, day), nil
}

// ReplaceAll swaps the owner's data (used by imports).
func (svc *Service) ReplaceAll(ctx context.Context, owner string, teachers []Teacher, records []Record) error {
	err := svc.repo.ReplaceAll(ctx, owner, teachers, records)
	if err == nil || core.IsInconsistent(err) {
		svc.changed(ctx, owner)
	}
	return err
}

// Snapshot reads the owner's current data.
func (svc *Service) Snapshot(ctx context.Context, owner string) (*Snapshot, error) {
	teachers, err := svc.repo.QueryTeachers(ctx, owner)
	if err != nil {
		return nil, err
	}
	records, err := svc.repo.QueryRecords(ctx, owner)
	if err != nil {
		return nil, err
	}
	snap := NewSnapshot(teachers, records, svc.loc)
	snap.Owner = owner
	snap.Version = svc.Version(owner)
	return snap, nil
}

// Version is incremented on every change of the owner's data.
func (svc *Service) Version(owner string) uint64 {
	svc.mu.RLock()
	defer svc.mu.RUnlock()
	return svc.versions[owner]
}

// Subscribe registers l for change notifications; call the returned func to unsubscribe.
func (svc *Service) Subscribe(l Listener) func() {
	svc.mu.Lock()
	defer svc.mu.Unlock()
	id := svc.nextLsnr
	svc.nextLsnr++
	svc.listeners[id] = l
	return func() {
		svc.mu.Lock()
		defer svc.mu.Unlock()
		delete(svc.listeners, id)
	}
}

// Watch relays remote changes of the owner's data to the listeners until ctx is done.
// Concurrent calls for the same owner share one store watcher, stopped when the last caller leaves.
// It returns at once if the store cannot push changes.
func (svc *Service) Watch(ctx context.Context, owner string) error {
	w, ok := svc.repo.(Watcher)
	if !ok {
		return nil
	}

	svc.mu.Lock()
	ow := svc.watchers[owner]
	if ow == nil {
		wctx, cancel := context.WithCancel(context.Background())
		ow = &ownerWatch{cancel: cancel, done: make(chan struct{})}
		svc.watchers[owner] = ow
		go func() {
			ow.err = w.Watch(wctx, owner, func() { svc.remoteChanged(wctx, owner) })
			svc.mu.Lock()
			if svc.watchers[owner] == ow {
				delete(svc.watchers, owner)
			}
			svc.mu.Unlock()
			close(ow.done)
		}()
	}
	ow.refs++
	svc.mu.Unlock()

	var err error
	select {
	case <-ctx.Done():
	case <-ow.done:
		err = ow.err
	}

	svc.mu.Lock()
	ow.refs--
	if ow.refs == 0 {
		ow.cancel()
		if svc.watchers[owner] == ow {
			delete(svc.watchers, owner)
		}
	}
	svc.mu.Unlock()
	return err
}

func (svc *Service) snapshotListeners() []Listener {
	listeners := make([]Listener, 0, len(svc.listeners))
	for _, l := range svc.listeners {
		listeners = append(listeners, l)
	}
	return listeners
}

// changed bumps the owner's version after a mutation made through the service.
func (svc *Service) changed(ctx context.Context, owner string) {
	svc.mu.Lock()
	svc.versions[owner]++
	listeners := svc.snapshotListeners()
	_, watched := svc.watchers[owner]
	svc.mu.Unlock()

	if len(listeners) == 0 && !watched {
		return
	}
	snap, err := svc.Snapshot(ctx, owner)
	if err != nil {
		svc.logger.Error(fmt.Sprintf("taking snapshot: %v", err), err, core.Owner{ID: owner})
		return
	}
	svc.mu.Lock()
	svc.seen[owner] = snap.fingerprint()
	svc.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

// remoteChanged handles a store push. Pushes echoing the service's own writes
// (same data as the last delivered snapshot) are dropped.
func (svc *Service) remoteChanged(ctx context.Context, owner string) {
	snap, err := svc.Snapshot(ctx, owner)
	if err != nil {
		if ctx.Err() == nil {
			svc.logger.Error(fmt.Sprintf("taking snapshot: %v", err), err, core.Owner{ID: owner})
		}
		return
	}
	fp := snap.fingerprint()

	svc.mu.Lock()
	if last, ok := svc.seen[owner]; ok && last == fp {
		svc.mu.Unlock()
		return
	}
	svc.seen[owner] = fp
	svc.versions[owner]++
	snap.Version = svc.versions[owner]
	listeners := svc.snapshotListeners()
	svc.mu.Unlock()

	for _, l := range listeners {
		l(snap)
	}
}

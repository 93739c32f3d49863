// Package firestoredb is the remote Record Store: one document tree per user,
// users/{owner}/teachers/{id} and users/{owner}/complianceRecords/{id}.
package firestoredb

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"github.com/pkg/errors"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/trezcool/bitacora/core"
	"github.com/trezcool/bitacora/core/compliance"
)

const (
	usersColl    = "users"
	teachersColl = "teachers"
	recordsColl  = "complianceRecords"

	// maxBatchWrites is the Firestore limit of writes per batch.
	maxBatchWrites = 500
)

var nowFunc = time.Now // mockable

// NewApp initializes the Firebase app shared by the store and the API token verifier.
func NewApp(ctx context.Context, conf *core.Config) (*firebase.App, error) {
	var opts []option.ClientOption
	if conf.Firebase.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(conf.Firebase.CredentialsFile))
	}
	var fbConf *firebase.Config
	if conf.Firebase.ProjectID != "" {
		fbConf = &firebase.Config{ProjectID: conf.Firebase.ProjectID}
	}
	app, err := firebase.NewApp(ctx, fbConf, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "initializing firebase")
	}
	return app, nil
}

type (
	teacherDoc struct {
		Name string `firestore:"name"`
		Seq  int64  `firestore:"seq"`
	}

	recordDoc struct {
		TeacherID   string    `firestore:"teacherId"`
		TeacherName string    `firestore:"teacherName"`
		Date        time.Time `firestore:"date"`
		Course      string    `firestore:"course"`
		Subject     string    `firestore:"subject"`
		Status      string    `firestore:"status"`
		Seq         int64     `firestore:"seq"`
	}

	// write is a batched Set (data != nil) or Delete (data == nil).
	write struct {
		ref  *firestore.DocumentRef
		data interface{}
	}
)

func newRecordDoc(r compliance.Record, seq int64) recordDoc {
	return recordDoc{
		TeacherID:   r.TeacherID,
		TeacherName: r.TeacherName,
		Date:        r.Date.UTC(),
		Course:      r.Course,
		Subject:     r.Subject,
		Status:      string(r.Status),
		Seq:         seq,
	}
}

func (d recordDoc) record(id string) compliance.Record {
	return compliance.Record{
		ID:          id,
		TeacherID:   d.TeacherID,
		TeacherName: d.TeacherName,
		Date:        d.Date,
		Course:      d.Course,
		Subject:     d.Subject,
		Status:      compliance.Status(d.Status),
	}
}

type Store struct {
	client *firestore.Client
}

var (
	_ compliance.Repository = (*Store)(nil)
	_ compliance.Watcher    = (*Store)(nil)
)

func NewStore(client *firestore.Client) *Store {
	return &Store{client: client}
}

func (s *Store) teachers(owner string) *firestore.CollectionRef {
	return s.client.Collection(usersColl).Doc(owner).Collection(teachersColl)
}

func (s *Store) records(owner string) *firestore.CollectionRef {
	return s.client.Collection(usersColl).Doc(owner).Collection(recordsColl)
}

func (s *Store) QueryTeachers(ctx context.Context, owner string) ([]compliance.Teacher, error) {
	docs, err := s.teachers(owner).OrderBy("seq", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, core.NewStoreError("QueryTeachers", err)
	}
	teachers := make([]compliance.Teacher, 0, len(docs))
	for _, doc := range docs {
		var d teacherDoc
		if err = doc.DataTo(&d); err != nil {
			return nil, core.NewStoreError("QueryTeachers", err)
		}
		teachers = append(teachers, compliance.Teacher{ID: doc.Ref.ID, Name: d.Name})
	}
	return teachers, nil
}

func (s *Store) CreateTeacher(ctx context.Context, owner string, t compliance.Teacher) (compliance.Teacher, error) {
	if _, err := s.teachers(owner).Doc(t.ID).Set(ctx, teacherDoc{Name: t.Name, Seq: nowFunc().UnixNano()}); err != nil {
		return compliance.Teacher{}, core.NewStoreError("CreateTeacher", err)
	}
	return t, nil
}

// DeleteTeacher removes the records first and the teacher last, so an interrupted cascade
// never leaves records pointing at a missing teacher.
func (s *Store) DeleteTeacher(ctx context.Context, owner, id string) (int, error) {
	ref := s.teachers(owner).Doc(id)
	if doc, err := ref.Get(ctx); err != nil {
		// a missing document comes with a snapshot that does not exist
		if doc != nil && !doc.Exists() {
			return 0, compliance.ErrTeacherNotFound
		}
		return 0, core.NewStoreError("DeleteTeacher", err)
	}

	var writes []write
	iter := s.records(owner).Where("teacherId", "==", id).Documents(ctx)
	defer iter.Stop()
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, core.NewStoreError("DeleteTeacher", err)
		}
		writes = append(writes, write{ref: doc.Ref})
	}
	removed := len(writes)
	writes = append(writes, write{ref: ref})

	if err := applyInBatches(ctx, writes, maxBatchWrites, s.commit); err != nil {
		return 0, storeError("DeleteTeacher", err)
	}
	return removed, nil
}

func (s *Store) QueryRecords(ctx context.Context, owner string) ([]compliance.Record, error) {
	docs, err := s.records(owner).OrderBy("seq", firestore.Asc).Documents(ctx).GetAll()
	if err != nil {
		return nil, core.NewStoreError("QueryRecords", err)
	}
	records := make([]compliance.Record, 0, len(docs))
	for _, doc := range docs {
		var d recordDoc
		if err = doc.DataTo(&d); err != nil {
			return nil, core.NewStoreError("QueryRecords", err)
		}
		records = append(records, d.record(doc.Ref.ID))
	}
	return records, nil
}

func (s *Store) CreateRecord(ctx context.Context, owner string, r compliance.Record) (compliance.Record, error) {
	if _, err := s.records(owner).Doc(r.ID).Set(ctx, newRecordDoc(r, nowFunc().UnixNano())); err != nil {
		return compliance.Record{}, core.NewStoreError("CreateRecord", err)
	}
	return r, nil
}

// ReplaceAll wipes and rewrites the owner's tree. It is atomic when it fits in one batch;
// otherwise the wipe and the teachers are committed before the records.
func (s *Store) ReplaceAll(ctx context.Context, owner string, teachers []compliance.Teacher, records []compliance.Record) error {
	// a batch may not write the same document twice: documents rewritten below are not deleted
	kept := make(map[string]bool, len(teachers)+len(records))
	for _, t := range teachers {
		kept[s.teachers(owner).Doc(t.ID).Path] = true
	}
	for _, r := range records {
		kept[s.records(owner).Doc(r.ID).Path] = true
	}

	var writes []write
	for _, coll := range []*firestore.CollectionRef{s.records(owner), s.teachers(owner)} {
		refs, err := coll.DocumentRefs(ctx).GetAll()
		if err != nil {
			return core.NewStoreError("ReplaceAll", err)
		}
		for _, ref := range refs {
			if !kept[ref.Path] {
				writes = append(writes, write{ref: ref})
			}
		}
	}

	seq := nowFunc().UnixNano()
	for _, t := range teachers {
		writes = append(writes, write{ref: s.teachers(owner).Doc(t.ID), data: teacherDoc{Name: t.Name, Seq: seq}})
		seq++
	}
	for _, r := range records {
		writes = append(writes, write{ref: s.records(owner).Doc(r.ID), data: newRecordDoc(r, seq)})
		seq++
	}

	if err := applyInBatches(ctx, writes, maxBatchWrites, s.commit); err != nil {
		return storeError("ReplaceAll", err)
	}
	return nil
}

func (s *Store) commit(ctx context.Context, writes []write) error {
	batch := s.client.Batch()
	for _, w := range writes {
		if w.data == nil {
			batch.Delete(w.ref)
		} else {
			batch.Set(w.ref, w.data)
		}
	}
	_, err := batch.Commit(ctx)
	return err
}

// partialWrite reports that at least one batch was committed before err.
type partialWrite struct {
	err error
}

func (p partialWrite) Error() string { return "partial write: " + p.err.Error() }

// applyInBatches commits writes in order, in batches of at most size.
func applyInBatches(ctx context.Context, writes []write, size int, commit func(context.Context, []write) error) error {
	for start := 0; start < len(writes); start += size {
		end := start + size
		if end > len(writes) {
			end = len(writes)
		}
		if err := commit(ctx, writes[start:end]); err != nil {
			if start > 0 {
				return partialWrite{err: err}
			}
			return err
		}
	}
	return nil
}

func storeError(op string, err error) error {
	if p, ok := err.(partialWrite); ok {
		return core.NewInconsistentStoreError(op, p.err)
	}
	return core.NewStoreError(op, err)
}

// Watch calls onChange whenever the owner's teachers or records change, until ctx is done.
func (s *Store) Watch(ctx context.Context, owner string, onChange func()) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	errs := make(chan error, 2)
	for _, coll := range []*firestore.CollectionRef{s.teachers(owner), s.records(owner)} {
		go func(q firestore.Query) {
			errs <- listen(ctx, q, onChange)
		}(coll.Query)
	}

	err := <-errs
	cancel()
	<-errs
	return err
}

func listen(ctx context.Context, q firestore.Query, onChange func()) error {
	it := q.Snapshots(ctx)
	defer it.Stop()

	first := true
	for {
		if _, err := it.Next(); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return errors.Wrap(err, "listening for changes")
		}
		// the first snapshot is the current state
		if first {
			first = false
			continue
		}
		onChange()
	}
}

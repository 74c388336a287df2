package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"warehouse-system/internal/entities"
	"warehouse-system/internal/repositories"
	apperrors "warehouse-system/pkg/errors"
	"warehouse-system/pkg/eventbus"
	"warehouse-system/pkg/types"

	"github.com/jackc/pgx/v5"
)

var errInjected = errors.New("injected failure")

// memStore - строки, загрузки и снимки в памяти. Реализует все три репозитория.
type memStore struct {
	lines     map[uint64]*entities.OpenOrderLine
	uploads   []entities.OpenOrderUpload
	snapshots []entities.OpenOrderLineSnapshot
	nextID    uint64
	failOn    string
}

func newMemStore() *memStore {
	return &memStore{lines: make(map[uint64]*entities.OpenOrderLine)}
}

func (m *memStore) id() uint64 {
	m.nextID++
	return m.nextID
}

func (m *memStore) fail(method string) error {
	if m.failOn == method {
		return fmt.Errorf("%s: %w", method, errInjected)
	}
	return nil
}

func (m *memStore) clone() *memStore {
	c := &memStore{
		lines:     make(map[uint64]*entities.OpenOrderLine, len(m.lines)),
		uploads:   append([]entities.OpenOrderUpload(nil), m.uploads...),
		snapshots: append([]entities.OpenOrderLineSnapshot(nil), m.snapshots...),
		nextID:    m.nextID,
		failOn:    m.failOn,
	}
	for id, l := range m.lines {
		cp := *l
		c.lines[id] = &cp
	}
	return c
}

func (m *memStore) lineBySO(so string) *entities.OpenOrderLine {
	for _, l := range m.lines {
		if l.SONo == so {
			return l
		}
	}
	return nil
}

func (m *memStore) snapshotsOf(lineID uint64) []entities.SnapshotEvent {
	var out []entities.SnapshotEvent
	for _, s := range m.snapshots {
		if s.LineID == lineID {
			out = append(out, s.Event)
		}
	}
	return out
}

func (m *memStore) FindActiveLines(_ context.Context, _ pgx.Tx) (map[string]*entities.OpenOrderLine, error) {
	out := make(map[string]*entities.OpenOrderLine)
	for _, l := range m.lines {
		if l.Status.IsActive() {
			cp := *l
			out[l.NaturalKey] = &cp
		}
	}
	return out, nil
}

func (m *memStore) FindLinesByKeys(_ context.Context, _ pgx.Tx, keys []string) (map[string]*entities.OpenOrderLine, error) {
	want := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		want[k] = struct{}{}
	}
	out := make(map[string]*entities.OpenOrderLine)
	for _, l := range m.lines {
		if _, ok := want[l.NaturalKey]; ok {
			cp := *l
			out[l.NaturalKey] = &cp
		}
	}
	return out, nil
}

func (m *memStore) CreateLine(_ context.Context, _ pgx.Tx, line *entities.OpenOrderLine) (uint64, error) {
	if err := m.fail("CreateLine"); err != nil {
		return 0, err
	}
	cp := *line
	cp.ID = m.id()
	m.lines[cp.ID] = &cp
	return cp.ID, nil
}

func (m *memStore) TouchLines(_ context.Context, _ pgx.Tx, ids []uint64, uploadID uint64, seenAt time.Time) error {
	for _, id := range ids {
		l := m.lines[id]
		l.Status = entities.LineStatusOpen
		l.LastSeenUploadID = uploadID
		l.LastSeenAt = seenAt
	}
	return nil
}

func (m *memStore) UpdateLineFields(_ context.Context, _ pgx.Tx, id uint64, fields entities.OrderLineFields, uploadID uint64, seenAt time.Time) error {
	l := m.lines[id]
	l.OrderLineFields = fields
	l.Status = entities.LineStatusOpen
	l.LastSeenUploadID = uploadID
	l.LastSeenAt = seenAt
	return nil
}

func (m *memStore) MarkCompleted(_ context.Context, _ pgx.Tx, id uint64, uploadID uint64, at time.Time) error {
	l := m.lines[id]
	if !l.Status.IsActive() {
		return nil
	}
	l.Status = entities.LineStatusCompleted
	l.CompletedAt = &at
	l.CompletedUploadID = &uploadID
	return nil
}

func (m *memStore) MarkReopened(_ context.Context, _ pgx.Tx, id uint64, fields entities.OrderLineFields, uploadID uint64, at time.Time) error {
	l := m.lines[id]
	l.OrderLineFields = fields
	l.Status = entities.LineStatusReopened
	l.CompletedAt = nil
	l.CompletedUploadID = nil
	l.ReopenedAt = &at
	l.ReopenCount++
	l.LastSeenUploadID = uploadID
	l.LastSeenAt = at
	return nil
}

func (m *memStore) GetLines(_ context.Context, status repositories.StatusFilter, _ types.Filter) ([]entities.OpenOrderLine, uint64, error) {
	var out []entities.OpenOrderLine
	for _, l := range m.lines {
		switch status {
		case repositories.StatusFilterOpen:
			if !l.Status.IsActive() {
				continue
			}
		case repositories.StatusFilterCompleted:
			if l.Status != entities.LineStatusCompleted {
				continue
			}
		}
		out = append(out, *l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, uint64(len(out)), nil
}

func (m *memStore) FindLine(_ context.Context, id uint64) (*entities.OpenOrderLine, error) {
	l, ok := m.lines[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	cp := *l
	return &cp, nil
}

func (m *memStore) CountByStatus(_ context.Context) (map[entities.LineStatus]uint64, error) {
	out := make(map[entities.LineStatus]uint64)
	for _, l := range m.lines {
		out[l.Status]++
	}
	return out, nil
}

func (m *memStore) CreateUpload(_ context.Context, _ pgx.Tx, upload *entities.OpenOrderUpload) (uint64, error) {
	if err := m.fail("CreateUpload"); err != nil {
		return 0, err
	}
	cp := *upload
	cp.ID = m.id()
	m.uploads = append(m.uploads, cp)
	return cp.ID, nil
}

func (m *memStore) FindByContentHash(_ context.Context, _ pgx.Tx, hash string) (*entities.OpenOrderUpload, error) {
	for i := range m.uploads {
		if h := m.uploads[i].ContentHash; h != nil && *h == hash {
			cp := m.uploads[i]
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *memStore) FindUpload(_ context.Context, id uint64) (*entities.OpenOrderUpload, error) {
	for i := range m.uploads {
		if m.uploads[i].ID == id {
			cp := m.uploads[i]
			return &cp, nil
		}
	}
	return nil, apperrors.ErrNotFound
}

func (m *memStore) GetUploads(_ context.Context, _ types.Filter) ([]entities.OpenOrderUpload, uint64, error) {
	out := append([]entities.OpenOrderUpload(nil), m.uploads...)
	return out, uint64(len(out)), nil
}

func (m *memStore) LatestUpload(_ context.Context) (*entities.OpenOrderUpload, error) {
	if len(m.uploads) == 0 {
		return nil, apperrors.ErrNotFound
	}
	cp := m.uploads[len(m.uploads)-1]
	return &cp, nil
}

func (m *memStore) CreateSnapshot(_ context.Context, _ pgx.Tx, snap *entities.OpenOrderLineSnapshot) (uint64, error) {
	if err := m.fail("CreateSnapshot"); err != nil {
		return 0, err
	}
	cp := *snap
	cp.ID = m.id()
	m.snapshots = append(m.snapshots, cp)
	return cp.ID, nil
}

func (m *memStore) GetByUpload(_ context.Context, uploadID uint64) ([]entities.OpenOrderLineSnapshot, error) {
	var out []entities.OpenOrderLineSnapshot
	for _, s := range m.snapshots {
		if s.UploadID == uploadID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *memStore) GetByLine(_ context.Context, lineID uint64) ([]entities.OpenOrderLineSnapshot, error) {
	var out []entities.OpenOrderLineSnapshot
	for _, s := range m.snapshots {
		if s.LineID == lineID {
			out = append(out, s)
		}
	}
	return out, nil
}

// memTxManager откатывает memStore к копии, если fn вернула ошибку.
type memTxManager struct {
	store *memStore
}

func (t *memTxManager) RunInTransaction(_ context.Context, fn func(tx pgx.Tx) error) error {
	backup := t.store.clone()
	if err := fn(nil); err != nil {
		*t.store = *backup
		return err
	}
	return nil
}

type fakeSchema struct {
	err   error
	calls int
}

func (f *fakeSchema) CheckColumns(_ context.Context, _ map[string][]string) error {
	f.calls++
	return f.err
}

type fakeStorage struct {
	saved   map[string][]byte
	deleted []string
	saveErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{saved: make(map[string][]byte)}
}

func (f *fakeStorage) Save(file io.Reader, name string, prefix string) (string, error) {
	if f.saveErr != nil {
		return "", f.saveErr
	}
	data, err := io.ReadAll(file)
	if err != nil {
		return "", err
	}
	path := fmt.Sprintf("%s/%d_%s", prefix, len(f.saved)+len(f.deleted)+1, name)
	f.saved[path] = data
	return path, nil
}

func (f *fakeStorage) Delete(path string) error {
	delete(f.saved, path)
	f.deleted = append(f.deleted, path)
	return nil
}

type fakePublisher struct {
	events []eventbus.Event
}

func (f *fakePublisher) Publish(_ context.Context, event eventbus.Event) {
	f.events = append(f.events, event)
}

// fakeCache - кеш в памяти с подсчётом обращений.
type fakeCache struct {
	data    map[string]string
	ttl     map[string]time.Duration
	sets    int
	expires int
	err     error
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string), ttl: make(map[string]time.Duration)}
}

func (f *fakeCache) Incr(_ context.Context, key string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	n, _ := strconv.ParseInt(f.data[key], 10, 64)
	n++
	f.data[key] = strconv.FormatInt(n, 10)
	return n, nil
}

func (f *fakeCache) Expire(_ context.Context, key string, expiration time.Duration) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.data[key]; !ok {
		return false, nil
	}
	f.expires++
	f.ttl[key] = expiration
	return true, nil
}

func (f *fakeCache) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	if f.err != nil {
		return f.err
	}
	f.sets++
	f.data[key] = fmt.Sprint(value)
	return nil
}

func (f *fakeCache) Get(_ context.Context, key string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	v, ok := f.data[key]
	if !ok {
		return "", repositories.ErrCacheMiss
	}
	return v, nil
}

func (f *fakeCache) Del(_ context.Context, keys ...string) error {
	for _, k := range keys {
		delete(f.data, k)
		delete(f.ttl, k)
	}
	return nil
}

func (f *fakeCache) Ping(_ context.Context) error { return f.err }

const testCSVHeader = "SO No,Customer Code,Item Code,Qty Ordered,Qty Remaining,Ship By"

func csvFile(rows ...string) []byte {
	return []byte(testCSVHeader + "\n" + strings.Join(rows, "\n") + "\n")
}

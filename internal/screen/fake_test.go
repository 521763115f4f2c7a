package screen

import (
	"context"
	"sync"

	"github.com/simp-lee/escola/internal/domain"
)

// fakeGateway is an in-memory domain.Gateway with injectable failures.
type fakeGateway struct {
	mu        sync.Mutex
	records   map[domain.Entity][]domain.Record
	listErr   error
	deleteErr error
	updateErr error
	createErr error
	// emptyUpdate makes Update answer with an empty body.
	emptyUpdate bool
	calls       []string
	// block, when set, is waited on inside mutating calls.
	block chan struct{}
	// entered is signalled when a blocked call starts.
	entered chan struct{}
	nextID  int
}

func newFakeGateway(entity domain.Entity, records ...domain.Record) *fakeGateway {
	return &fakeGateway{records: map[domain.Entity][]domain.Record{entity: records}, nextID: 100}
}

func (f *fakeGateway) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeGateway) wait() {
	if f.block == nil {
		return
	}
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	<-f.block
}

func (f *fakeGateway) List(_ context.Context, entity domain.Entity) ([]domain.Record, error) {
	f.record("list")
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Record, len(f.records[entity]))
	for i, r := range f.records[entity] {
		out[i] = r.Clone()
	}
	return out, nil
}

func (f *fakeGateway) Get(_ context.Context, entity domain.Entity, id string) (domain.Record, error) {
	f.record("get")
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, r := range f.records[entity] {
		if r.ID() == id {
			return r.Clone(), nil
		}
	}
	return nil, domain.ErrNotFound
}

func (f *fakeGateway) Create(_ context.Context, entity domain.Entity, draft domain.Record) (domain.Record, error) {
	f.record("create")
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	saved := draft.Clone()
	saved["id"] = float64(f.nextID)
	f.records[entity] = append(f.records[entity], saved)
	return saved.Clone(), nil
}

func (f *fakeGateway) Update(_ context.Context, entity domain.Entity, id string, draft domain.Record) (domain.Record, error) {
	f.record("update")
	f.wait()
	if f.updateErr != nil {
		return nil, f.updateErr
	}
	if f.emptyUpdate {
		return domain.Record{}, nil
	}
	saved := draft.Clone()
	saved["atualizado"] = true
	return saved, nil
}

func (f *fakeGateway) Delete(_ context.Context, _ domain.Entity, _ string) error {
	f.record("delete")
	f.wait()
	return f.deleteErr
}

func (f *fakeGateway) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c == name {
			n++
		}
	}
	return n
}

// allowAll accepts every secret.
type allowAll struct{}

func (allowAll) Verify(string) error { return nil }

// Package screen holds the per-screen state of list and form pages: the
// collection loaded at mount, the current query and the mutation lifecycle.
package screen

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/simp-lee/escola/internal/domain"
	"github.com/simp-lee/escola/internal/listing"
)

// State is the lifecycle state of a list screen.
type State int

const (
	StateLoading State = iota
	StateReady
	StateMutating
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateMutating:
		return "mutating"
	case StateError:
		return "error"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

var (
	// ErrNotReady is returned when the collection has not been loaded.
	ErrNotReady = domain.NewAppError(domain.CodeValidation, "a lista ainda não foi carregada", nil)
	// ErrBusy is returned when another mutation is in flight.
	ErrBusy = domain.NewAppError(domain.CodeConflict, "aguarde a operação anterior terminar", nil)
	// ErrNotConfirmed is returned when a delete lacks the yes/no confirmation.
	ErrNotConfirmed = domain.NewAppError(domain.CodeValidation, "confirme a exclusão", nil)
)

// Toggle describes a two-valued field flipped from the list, such as
// status ativo/inativo or lida true/false.
type Toggle struct {
	Field string
	On    any
	Off   any
}

// Next returns the value the field takes after a flip.
func (t Toggle) Next(r domain.Record) any {
	cur, _ := r.Text(t.Field)
	on := fmt.Sprint(t.On)
	if cur == on {
		return t.Off
	}
	return t.On
}

// ListConfig configures a ListController.
type ListConfig struct {
	Entity   domain.Entity
	Matchers listing.Matchers
	PageSize int
	Toggle   *Toggle
}

// Confirmation carries the two confirmations a delete needs: the elevated
// secret and the yes/no answer.
type Confirmation struct {
	Secret    string
	Confirmed bool
}

// ListController owns one entity's list for one user. It starts loading and
// ends up ready or failed. A ready list enters the mutating state for each
// toggle or delete and returns to ready when the Gateway answers. Local
// records change only after the Gateway acknowledged a mutation.
type ListController struct {
	mu        sync.Mutex
	gw        domain.Gateway
	confirmer Confirmer
	cfg       ListConfig
	now       func() time.Time

	state    State
	records  []domain.Record
	query    listing.QueryState
	loadErr  error
	lastUsed time.Time
}

// NewListController creates a controller in the Loading state.
func NewListController(gw domain.Gateway, confirmer Confirmer, cfg ListConfig) *ListController {
	return &ListController{
		gw:        gw,
		confirmer: confirmer,
		cfg:       cfg,
		now:       time.Now,
		state:     StateLoading,
		query:     listing.NewQueryState(cfg.PageSize),
		lastUsed:  time.Now(),
	}
}

// Entity returns the entity this controller lists.
func (l *ListController) Entity() domain.Entity {
	return l.cfg.Entity
}

// Load fetches the full collection. It is issued on mount and again on a
// manual reload; a failure enters the Error state and keeps no records.
func (l *ListController) Load(ctx context.Context) error {
	l.mu.Lock()
	if l.state == StateMutating {
		l.mu.Unlock()
		return ErrBusy
	}
	l.state = StateLoading
	l.touch()
	l.mu.Unlock()

	records, err := l.gw.List(ctx, l.cfg.Entity)

	l.mu.Lock()
	defer l.mu.Unlock()
	if err != nil {
		l.state = StateError
		l.records = nil
		l.loadErr = err
		return err
	}
	l.state = StateReady
	l.records = records
	l.loadErr = nil
	return nil
}

// State returns the current state and, in the Error state, the load error.
func (l *ListController) State() (State, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state, l.loadErr
}

// Query returns the current query state.
func (l *ListController) Query() listing.QueryState {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}

// Update applies fn to the query state and returns the recomputed page.
func (l *ListController) Update(fn func(listing.QueryState) listing.QueryState) (listing.PageResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query = fn(l.query)
	return l.pageLocked()
}

// Page recomputes the visible page for the current query.
func (l *ListController) Page() (listing.PageResult, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pageLocked()
}

func (l *ListController) pageLocked() (listing.PageResult, error) {
	l.touch()
	if l.state != StateReady && l.state != StateMutating {
		return listing.PageResult{}, ErrNotReady
	}
	res, err := listing.ComputePage(l.records, l.query, l.cfg.Matchers)
	if err != nil {
		return listing.PageResult{}, err
	}
	// Keep the stored page in range so later moves start from what was shown.
	l.query = l.query.WithPage(res.CurrentPage)
	return res, nil
}

// Delete removes a record after both confirmations pass and the Gateway
// acknowledged it. On failure the collection is left untouched.
func (l *ListController) Delete(ctx context.Context, id string, conf Confirmation) error {
	if err := l.confirmer.Verify(conf.Secret); err != nil {
		return err
	}
	if !conf.Confirmed {
		return ErrNotConfirmed
	}
	if err := l.begin(); err != nil {
		return err
	}

	err := l.gw.Delete(ctx, l.cfg.Entity, id)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateReady
	if err != nil {
		return err
	}
	l.records = slices.DeleteFunc(slices.Clone(l.records), func(r domain.Record) bool { return r.ID() == id })
	return nil
}

// Toggle flips the configured two-valued field of a record and stores the
// Gateway's version locally on success.
func (l *ListController) Toggle(ctx context.Context, id string) (domain.Record, error) {
	if l.cfg.Toggle == nil {
		return nil, domain.NewAppError(domain.CodeValidation, "esta lista não tem alternância", nil)
	}
	l.mu.Lock()
	switch l.state {
	case StateReady:
	case StateMutating:
		l.mu.Unlock()
		return nil, ErrBusy
	default:
		l.mu.Unlock()
		return nil, ErrNotReady
	}
	i := l.indexLocked(id)
	if i < 0 {
		l.mu.Unlock()
		return nil, domain.NewAppError(domain.CodeNotFound, "registro não encontrado", nil)
	}
	draft := l.records[i].Clone()
	draft[l.cfg.Toggle.Field] = l.cfg.Toggle.Next(draft)
	l.state = StateMutating
	l.mu.Unlock()

	saved, err := l.gw.Update(ctx, l.cfg.Entity, id, draft)

	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateReady
	if err != nil {
		return nil, err
	}
	merged := mergeSaved(draft, saved)
	l.replaceLocked(id, merged)
	return merged, nil
}

// Saved records a create or update the form screen completed, so the list
// reflects it without a re-fetch. An update is overlaid on the known record,
// keeping fields the form does not carry. It is a no-op before the first load.
func (l *ListController) Saved(rec domain.Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state != StateReady || rec.ID() == "" {
		return
	}
	if i := l.indexLocked(rec.ID()); i >= 0 {
		l.replaceLocked(rec.ID(), mergeSaved(l.records[i], rec))
		return
	}
	l.records = append(slices.Clone(l.records), rec)
}

// Find returns the in-memory record with the given id.
func (l *ListController) Find(id string) (domain.Record, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexLocked(id); i >= 0 {
		return l.records[i].Clone(), true
	}
	return nil, false
}

// Records returns a copy of the loaded collection.
func (l *ListController) Records() []domain.Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return slices.Clone(l.records)
}

// LastUsed returns when the controller was last touched.
func (l *ListController) LastUsed() time.Time {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.lastUsed
}

func (l *ListController) begin() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	switch l.state {
	case StateReady:
		l.state = StateMutating
		l.touch()
		return nil
	case StateMutating:
		return ErrBusy
	default:
		return ErrNotReady
	}
}

func (l *ListController) touch() {
	l.lastUsed = l.now()
}

func (l *ListController) indexLocked(id string) int {
	return slices.IndexFunc(l.records, func(r domain.Record) bool { return r.ID() == id })
}

func (l *ListController) replaceLocked(id string, rec domain.Record) bool {
	i := l.indexLocked(id)
	if i < 0 {
		return false
	}
	next := slices.Clone(l.records)
	next[i] = rec
	l.records = next
	return true
}

// mergeSaved overlays the Gateway answer on the draft; APIs that answer an
// update with an empty body keep the draft as the stored version.
func mergeSaved(draft, saved domain.Record) domain.Record {
	out := draft.Clone()
	for k, v := range saved {
		out[k] = v
	}
	return out
}

package engine

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"horse.fit/pagetrans/internal/dom"
	"horse.fit/pagetrans/internal/globaltime"
)

var ErrDocumentNotFound = errors.New("document not found")

// Summary describes one hosted document.
type Summary struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	State     string    `json:"state"`
	CreatedAt time.Time `json:"created_at"`
}

type entry struct {
	engine    *Engine
	createdAt time.Time
}

// Registry hosts engines keyed by document id.
type Registry struct {
	mu      sync.RWMutex
	docs    map[string]*entry
	client  Translator
	opts    Options
	logger  zerolog.Logger
	maxDocs int
}

func NewRegistry(client Translator, opts Options, maxDocs int, logger zerolog.Logger) *Registry {
	return &Registry{
		docs:    make(map[string]*entry),
		client:  client,
		opts:    opts,
		logger:  logger,
		maxDocs: maxDocs,
	}
}

// Load parses r as HTML and hosts it under a fresh id. overrides, when
// non-nil, adjusts the registry defaults for this document only.
func (r *Registry) Load(src io.Reader, overrides func(*Options)) (*Engine, error) {
	doc, err := dom.Parse(src)
	if err != nil {
		return nil, err
	}

	opts := r.opts
	if overrides != nil {
		overrides(&opts)
	}
	id := uuid.NewString()
	eng, err := New(id, doc, r.client, opts, r.logger)
	if err != nil {
		return nil, fmt.Errorf("create engine: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.maxDocs > 0 && len(r.docs) >= r.maxDocs {
		eng.Close()
		return nil, fmt.Errorf("document limit of %d reached", r.maxDocs)
	}
	r.docs[id] = &entry{engine: eng, createdAt: globaltime.UTC()}
	return eng, nil
}

func (r *Registry) Get(id string) (*Engine, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	item, ok := r.docs[id]
	if !ok {
		return nil, ErrDocumentNotFound
	}
	return item.engine, nil
}

// Delete stops the engine and forgets it.
func (r *Registry) Delete(id string) error {
	r.mu.Lock()
	item, ok := r.docs[id]
	delete(r.docs, id)
	r.mu.Unlock()
	if !ok {
		return ErrDocumentNotFound
	}
	item.engine.Close()
	return nil
}

func (r *Registry) List() []Summary {
	r.mu.RLock()
	out := make([]Summary, 0, len(r.docs))
	for id, item := range r.docs {
		out = append(out, Summary{
			ID:        id,
			Mode:      string(item.engine.Mode()),
			State:     item.engine.State().String(),
			CreatedAt: item.createdAt,
		})
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.docs)
}

// Close stops every hosted engine.
func (r *Registry) Close() {
	r.mu.Lock()
	docs := r.docs
	r.docs = make(map[string]*entry)
	r.mu.Unlock()
	for _, item := range docs {
		item.engine.Close()
	}
}

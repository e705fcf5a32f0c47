package scoring

import (
	"context"
	"sync"

	"github.com/spigell/fitscore/internal/ai"
	"github.com/spigell/fitscore/internal/crm"
)

type fakeRecords struct {
	mu sync.Mutex

	contacts  map[string]*crm.Contact
	products  map[string]*crm.Product
	pipelines map[string]*crm.Pipeline
	personas  []*crm.Persona

	contactErr error
	productErr error
	personaErr error

	calls map[string]int
}

func newFakeRecords() *fakeRecords {
	return &fakeRecords{
		contacts:  map[string]*crm.Contact{},
		products:  map[string]*crm.Product{},
		pipelines: map[string]*crm.Pipeline{},
		calls:     map[string]int{},
	}
}

func (f *fakeRecords) count(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls[name]++
}

func (f *fakeRecords) callCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeRecords) GetContact(_ context.Context, id string) (*crm.Contact, error) {
	f.count("contact")
	if f.contactErr != nil {
		return nil, f.contactErr
	}
	return f.contacts[id], nil
}

func (f *fakeRecords) GetProduct(_ context.Context, id string) (*crm.Product, error) {
	f.count("product")
	if f.productErr != nil {
		return nil, f.productErr
	}
	return f.products[id], nil
}

func (f *fakeRecords) GetPipeline(_ context.Context, contactID string) (*crm.Pipeline, error) {
	f.count("pipeline")
	return f.pipelines[contactID], nil
}

func (f *fakeRecords) GetPersona(_ context.Context, id string) (*crm.Persona, error) {
	f.count("persona")
	for _, p := range f.personas {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *fakeRecords) ListPersonas(_ context.Context, tenantID string) ([]*crm.Persona, error) {
	f.count("personas")
	if f.personaErr != nil {
		return nil, f.personaErr
	}
	var out []*crm.Persona
	for _, p := range f.personas {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

type stubCompleter struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []ai.Request
}

func (s *stubCompleter) Complete(_ context.Context, req ai.Request) (*ai.Response, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return &ai.Response{Text: s.text}, nil
}

func (s *stubCompleter) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

func (s *stubCompleter) lastRequest() ai.Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return ai.Request{}
	}
	return s.requests[len(s.requests)-1]
}

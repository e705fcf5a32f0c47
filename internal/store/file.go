package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	_ "embed"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/fitscore/internal/crm"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed fixtures.schema.json
var fixturesSchema string

// ErrInvalidFixtures is returned when a fixture document fails schema validation.
var ErrInvalidFixtures = errors.New("invalid fixtures")

type fixtures struct {
	Contacts  []*crm.Contact  `mapstructure:"contacts"`
	Products  []*crm.Product  `mapstructure:"products"`
	Pipelines []*crm.Pipeline `mapstructure:"pipelines"`
	Personas  []*crm.Persona  `mapstructure:"personas"`
}

// File serves records from a JSON fixture document held in memory.
// Personas keep their document order.
type File struct {
	ordered   []*crm.Contact
	contacts  map[string]*crm.Contact
	products  map[string]*crm.Product
	pipelines map[string]*crm.Pipeline
	personas  []*crm.Persona
}

func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading fixtures %q: %w", path, err)
	}

	f, err := ParseFixtures(data)
	if err != nil {
		return nil, fmt.Errorf("loading fixtures %q: %w", path, err)
	}
	return f, nil
}

// ParseFixtures validates data against the fixture schema and indexes the records.
func ParseFixtures(data []byte) (*File, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(fixturesSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixtures, err)
	}
	if !result.Valid() {
		msgs := make([]string, 0, len(result.Errors()))
		for _, e := range result.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidFixtures, strings.Join(msgs, "; "))
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidFixtures, err)
	}

	var doc fixtures
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &doc,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return nil, err
	}
	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf("decode fixtures: %w", err)
	}

	f := &File{
		ordered:   doc.Contacts,
		contacts:  make(map[string]*crm.Contact, len(doc.Contacts)),
		products:  make(map[string]*crm.Product, len(doc.Products)),
		pipelines: make(map[string]*crm.Pipeline, len(doc.Pipelines)),
		personas:  doc.Personas,
	}
	for _, c := range doc.Contacts {
		f.contacts[c.ID] = c
	}
	for _, p := range doc.Products {
		f.products[p.ID] = p
	}
	for _, p := range doc.Pipelines {
		f.pipelines[p.ContactID] = p
	}

	return f, nil
}

func (f *File) GetContact(_ context.Context, id string) (*crm.Contact, error) {
	return f.contacts[id], nil
}

func (f *File) GetProduct(_ context.Context, id string) (*crm.Product, error) {
	return f.products[id], nil
}

func (f *File) GetPipeline(_ context.Context, contactID string) (*crm.Pipeline, error) {
	return f.pipelines[contactID], nil
}

func (f *File) GetPersona(_ context.Context, id string) (*crm.Persona, error) {
	for _, p := range f.personas {
		if p.ID == id {
			return p, nil
		}
	}
	return nil, nil
}

func (f *File) ListPersonas(_ context.Context, tenantID string) ([]*crm.Persona, error) {
	var out []*crm.Persona
	for _, p := range f.personas {
		if p.TenantID == tenantID {
			out = append(out, p)
		}
	}
	return out, nil
}

// ListContacts returns the tenant contacts in document order.
func (f *File) ListContacts(_ context.Context, tenantID string) ([]*crm.Contact, error) {
	var out []*crm.Contact
	for _, c := range f.ordered {
		if c.TenantID == tenantID {
			out = append(out, c)
		}
	}
	return out, nil
}

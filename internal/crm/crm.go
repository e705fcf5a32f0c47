package crm

import (
	"context"
	"strings"
)

// Records is the read-only record-fetch interface consumed by the scoring subsystem.
// Lookups of absent records return nil with a nil error; errors are reserved for
// transport or storage failures.
type Records interface {
	GetContact(ctx context.Context, id string) (*Contact, error)
	GetProduct(ctx context.Context, id string) (*Product, error)
	GetPipeline(ctx context.Context, contactID string) (*Pipeline, error)
	GetPersona(ctx context.Context, id string) (*Persona, error)
	ListPersonas(ctx context.Context, tenantID string) ([]*Persona, error)
}

// ContactLister is implemented by backends able to enumerate the contacts of a tenant.
type ContactLister interface {
	ListContacts(ctx context.Context, tenantID string) ([]*Contact, error)
}

type Contact struct {
	ID            string   `json:"id" mapstructure:"id"`
	TenantID      string   `json:"tenantId,omitempty" mapstructure:"tenantId"`
	PreferredName string   `json:"preferredName,omitempty" mapstructure:"preferredName"`
	FirstName     string   `json:"firstName,omitempty" mapstructure:"firstName"`
	LastName      string   `json:"lastName,omitempty" mapstructure:"lastName"`
	Title         string   `json:"title,omitempty" mapstructure:"title"`
	Notes         string   `json:"notes,omitempty" mapstructure:"notes"`
	Company       *Company `json:"company,omitempty" mapstructure:"company"`
}

type Company struct {
	CompanyName string `json:"companyName,omitempty" mapstructure:"companyName"`
	Industry    string `json:"industry,omitempty" mapstructure:"industry"`
}

type Product struct {
	ID            string   `json:"id" mapstructure:"id"`
	Name          string   `json:"name,omitempty" mapstructure:"name"`
	ValueProp     string   `json:"valueProp,omitempty" mapstructure:"valueProp"`
	Description   string   `json:"description,omitempty" mapstructure:"description"`
	Price         *float64 `json:"price,omitempty" mapstructure:"price"`
	PriceCurrency string   `json:"priceCurrency,omitempty" mapstructure:"priceCurrency"`
}

type Pipeline struct {
	ContactID string `json:"contactId" mapstructure:"contactId"`
	Pipeline  string `json:"pipeline,omitempty" mapstructure:"pipeline"`
	Stage     string `json:"stage,omitempty" mapstructure:"stage"`
}

type Persona struct {
	ID         string `json:"id" mapstructure:"id"`
	TenantID   string `json:"tenantId,omitempty" mapstructure:"tenantId"`
	Name       string `json:"name,omitempty" mapstructure:"name"`
	Role       string `json:"role,omitempty" mapstructure:"role"`
	Title      string `json:"title,omitempty" mapstructure:"title"`
	Industry   string `json:"industry,omitempty" mapstructure:"industry"`
	Goals      string `json:"goals,omitempty" mapstructure:"goals"`
	PainPoints string `json:"painPoints,omitempty" mapstructure:"painPoints"`
}

// DisplayName returns the preferred name, then "first last", then an empty string.
func (c *Contact) DisplayName() string {
	if c == nil {
		return ""
	}
	if name := strings.TrimSpace(c.PreferredName); name != "" {
		return name
	}
	return strings.TrimSpace(strings.TrimSpace(c.FirstName) + " " + strings.TrimSpace(c.LastName))
}

// CompanyName returns the embedded company name, if any.
func (c *Contact) CompanyName() string {
	if c == nil || c.Company == nil {
		return ""
	}
	return c.Company.CompanyName
}

// Industry returns the embedded company industry, if any.
func (c *Contact) Industry() string {
	if c == nil || c.Company == nil {
		return ""
	}
	return c.Company.Industry
}

// RoleOrTitle returns the persona role, falling back to its title.
func (p *Persona) RoleOrTitle() string {
	if p == nil {
		return ""
	}
	if role := strings.TrimSpace(p.Role); role != "" {
		return role
	}
	return strings.TrimSpace(p.Title)
}

// Pitch returns the value proposition, falling back to the description.
func (p *Product) Pitch() string {
	if p == nil {
		return ""
	}
	if vp := strings.TrimSpace(p.ValueProp); vp != "" {
		return vp
	}
	return strings.TrimSpace(p.Description)
}

type Contacts struct {
	Items []*Contact
}

func (c *Contacts) Len() int {
	return len(c.Items)
}

func (c *Contacts) IDs() []string {
	ids := make([]string, 0, len(c.Items))
	for _, contact := range c.Items {
		ids = append(ids, contact.ID)
	}
	return ids
}

func (c *Contacts) FindByID(id string) *Contact {
	for _, contact := range c.Items {
		if contact.ID == id {
			return contact
		}
	}
	return nil
}

package crmapi

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/fitscore/internal/crm"
	"go.uber.org/zap"
)

const (
	userAgent = "spigell/fitscore"
	// Max value for list requests per page.
	perPage = "100"

	contactsPath = "/contacts"
	productsPath = "/products"
	personasPath = "/personas"
)

// Client reads CRM records over the REST API. It implements crm.Records and crm.ContactLister.
type Client struct {
	token      string
	logger     *zap.Logger
	HTTPClient *http.Client
	UserAgent  string
	APIURL     string
}

func New(logger *zap.Logger, apiURL, token string) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		token:  token,
		APIURL: strings.TrimRight(apiURL, "/"),
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger:    logger,
		UserAgent: userAgent,
	}
}

func (c *Client) GetContact(ctx context.Context, id string) (*crm.Contact, error) {
	var contact *crm.Contact
	if err := c.getRecord(ctx, c.url(contactsPath, id), &contact); err != nil {
		return nil, fmt.Errorf("get contact %s: %w", id, err)
	}
	return contact, nil
}

func (c *Client) GetProduct(ctx context.Context, id string) (*crm.Product, error) {
	var product *crm.Product
	if err := c.getRecord(ctx, c.url(productsPath, id), &product); err != nil {
		return nil, fmt.Errorf("get product %s: %w", id, err)
	}
	return product, nil
}

func (c *Client) GetPipeline(ctx context.Context, contactID string) (*crm.Pipeline, error) {
	var pipeline *crm.Pipeline
	if err := c.getRecord(ctx, c.url(contactsPath, contactID, "pipeline"), &pipeline); err != nil {
		return nil, fmt.Errorf("get pipeline for contact %s: %w", contactID, err)
	}
	if pipeline != nil && pipeline.ContactID == "" {
		pipeline.ContactID = contactID
	}
	return pipeline, nil
}

func (c *Client) GetPersona(ctx context.Context, id string) (*crm.Persona, error) {
	var persona *crm.Persona
	if err := c.getRecord(ctx, c.url(personasPath, id), &persona); err != nil {
		return nil, fmt.Errorf("get persona %s: %w", id, err)
	}
	return persona, nil
}

func (c *Client) ListPersonas(ctx context.Context, tenantID string) ([]*crm.Persona, error) {
	var personas []*crm.Persona
	if err := c.list(ctx, personasPath, tenantID, &personas); err != nil {
		return nil, fmt.Errorf("list personas for tenant %s: %w", tenantID, err)
	}
	return personas, nil
}

func (c *Client) ListContacts(ctx context.Context, tenantID string) ([]*crm.Contact, error) {
	var contacts []*crm.Contact
	if err := c.list(ctx, contactsPath, tenantID, &contacts); err != nil {
		return nil, fmt.Errorf("list contacts for tenant %s: %w", tenantID, err)
	}
	return contacts, nil
}

func (c *Client) list(ctx context.Context, path, tenantID string, target any) error {
	q := url.Values{}
	q.Set("tenant_id", tenantID)
	q.Set("per_page", perPage)

	items, err := c.GetItems(ctx, c.url(path), q)
	if err != nil {
		return err
	}

	return decodeItems(items, target)
}

// decodeItems maps the generic list items onto typed records.
func decodeItems(items []Item, target any) error {
	cfg := &mapstructure.DecoderConfig{
		Metadata:         nil,
		Result:           target,
		TagName:          "json",
		WeaklyTypedInput: true,
	}
	decoder, err := mapstructure.NewDecoder(cfg)
	if err != nil {
		return err
	}

	if err := decoder.Decode(items); err != nil {
		return fmt.Errorf("decode items: %w", err)
	}

	return nil
}

func (c *Client) url(parts ...string) string {
	var b strings.Builder
	b.WriteString(c.APIURL)
	for _, p := range parts {
		if !strings.HasPrefix(p, "/") {
			b.WriteString("/")
			p = url.PathEscape(p)
		}
		b.WriteString(p)
	}
	return b.String()
}

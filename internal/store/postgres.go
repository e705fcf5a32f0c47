package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/spigell/fitscore/internal/crm"
	"go.uber.org/zap"
)

const (
	contactColumns = `c.id, COALESCE(c.tenant_id::text, ''), COALESCE(c.preferred_name, ''), COALESCE(c.first_name, ''),
		COALESCE(c.last_name, ''), COALESCE(c.title, ''), COALESCE(c.notes, ''), co.company_name, co.industry`

	contactQuery = `SELECT ` + contactColumns + `
		FROM contacts c
		LEFT JOIN companies co ON co.id = c.company_id
		WHERE c.id = $1`

	contactsByTenantQuery = `SELECT ` + contactColumns + `
		FROM contacts c
		LEFT JOIN companies co ON co.id = c.company_id
		WHERE c.tenant_id::text = $1
		ORDER BY c.created_at, c.id`

	productQuery = `SELECT id, COALESCE(name, ''), COALESCE(value_prop, ''), COALESCE(description, ''), price, price_currency
		FROM products
		WHERE id = $1`

	pipelineQuery = `SELECT contact_id, COALESCE(pipeline, ''), COALESCE(stage, '')
		FROM pipelines
		WHERE contact_id = $1
		ORDER BY updated_at DESC
		LIMIT 1`

	personaColumns = `id, COALESCE(tenant_id::text, ''), COALESCE(name, ''), COALESCE(role, ''), COALESCE(title, ''),
		COALESCE(industry, ''), COALESCE(goals, ''), COALESCE(pain_points, '')`

	personaQuery = `SELECT ` + personaColumns + `
		FROM personas
		WHERE id = $1`

	personasByTenantQuery = `SELECT ` + personaColumns + `
		FROM personas
		WHERE tenant_id::text = $1
		ORDER BY created_at, id`
)

// Postgres reads CRM records from PostgreSQL. Record ids are UUIDs; ids that do
// not parse are reported as absent without a round trip.
type Postgres struct {
	db     *sql.DB
	logger *zap.Logger
}

// OpenPostgres connects through the pgx database/sql driver and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string, logger *zap.Logger) (*Postgres, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewPostgres(db, logger), nil
}

func NewPostgres(db *sql.DB, logger *zap.Logger) *Postgres {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Postgres{db: db, logger: logger}
}

func (p *Postgres) Close() error {
	if p.db == nil {
		return nil
	}
	return p.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (p *Postgres) GetContact(ctx context.Context, id string) (*crm.Contact, error) {
	key, ok := p.parseID("contact", id)
	if !ok {
		return nil, nil
	}

	contact, err := scanContact(p.db.QueryRowContext(ctx, contactQuery, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get contact %s: %w", id, err)
	}
	return contact, nil
}

func (p *Postgres) ListContacts(ctx context.Context, tenantID string) ([]*crm.Contact, error) {
	rows, err := p.db.QueryContext(ctx, contactsByTenantQuery, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list contacts for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var contacts []*crm.Contact
	for rows.Next() {
		contact, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan contact: %w", err)
		}
		contacts = append(contacts, contact)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate contacts: %w", err)
	}

	return contacts, nil
}

func scanContact(row rowScanner) (*crm.Contact, error) {
	var c crm.Contact
	var companyName, industry sql.NullString

	if err := row.Scan(&c.ID, &c.TenantID, &c.PreferredName, &c.FirstName, &c.LastName, &c.Title, &c.Notes, &companyName, &industry); err != nil {
		return nil, err
	}
	if companyName.Valid || industry.Valid {
		c.Company = &crm.Company{CompanyName: companyName.String, Industry: industry.String}
	}

	return &c, nil
}

func (p *Postgres) GetProduct(ctx context.Context, id string) (*crm.Product, error) {
	key, ok := p.parseID("product", id)
	if !ok {
		return nil, nil
	}

	var product crm.Product
	var price sql.NullFloat64
	var currency sql.NullString

	err := p.db.QueryRowContext(ctx, productQuery, key).Scan(
		&product.ID, &product.Name, &product.ValueProp, &product.Description, &price, &currency,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product %s: %w", id, err)
	}

	if price.Valid {
		v := price.Float64
		product.Price = &v
	}
	product.PriceCurrency = currency.String

	return &product, nil
}

func (p *Postgres) GetPipeline(ctx context.Context, contactID string) (*crm.Pipeline, error) {
	key, ok := p.parseID("contact", contactID)
	if !ok {
		return nil, nil
	}

	var pipeline crm.Pipeline
	err := p.db.QueryRowContext(ctx, pipelineQuery, key).Scan(&pipeline.ContactID, &pipeline.Pipeline, &pipeline.Stage)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pipeline for contact %s: %w", contactID, err)
	}

	return &pipeline, nil
}

func (p *Postgres) GetPersona(ctx context.Context, id string) (*crm.Persona, error) {
	key, ok := p.parseID("persona", id)
	if !ok {
		return nil, nil
	}

	persona, err := scanPersona(p.db.QueryRowContext(ctx, personaQuery, key))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get persona %s: %w", id, err)
	}
	return persona, nil
}

func (p *Postgres) ListPersonas(ctx context.Context, tenantID string) ([]*crm.Persona, error) {
	rows, err := p.db.QueryContext(ctx, personasByTenantQuery, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list personas for tenant %s: %w", tenantID, err)
	}
	defer rows.Close()

	var personas []*crm.Persona
	for rows.Next() {
		persona, err := scanPersona(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan persona: %w", err)
		}
		personas = append(personas, persona)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate personas: %w", err)
	}

	return personas, nil
}

func scanPersona(row rowScanner) (*crm.Persona, error) {
	var p crm.Persona
	if err := row.Scan(&p.ID, &p.TenantID, &p.Name, &p.Role, &p.Title, &p.Industry, &p.Goals, &p.PainPoints); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Postgres) parseID(kind, id string) (string, bool) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		p.logger.Debug("record id is not a uuid, treating as absent", zap.String("kind", kind), zap.String("id", id))
		return "", false
	}
	return parsed.String(), true
}

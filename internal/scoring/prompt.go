package scoring

import (
	"strings"

	_ "embed"

	"github.com/spigell/fitscore/internal/crm"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

//go:embed system_prompt.md
var systemPrompt string

//go:embed user_prompt.md
var userPromptTemplate string

const (
	notSpecified    = "Not specified"
	unknownName     = "Unknown"
	defaultCurrency = "USD"
)

var pricePrinter = message.NewPrinter(language.English)

// promptFields are the derived values embedded in the user message.
type promptFields struct {
	OfferTitle        string
	OfferValueProp    string
	OfferPrice        string
	ContactName       string
	ContactRole       string
	ContactOrg        string
	ContactGoals      string
	ContactPainPoints string
	BudgetSensitivity string
	Pipeline          string
	Stage             string
	Notes             string
}

func deriveFields(contact *crm.Contact, product *crm.Product, pipeline *crm.Pipeline, persona *crm.Persona) promptFields {
	var stage, category string
	if pipeline != nil {
		stage = pipeline.Stage
		category = pipeline.Pipeline
	}

	return promptFields{
		OfferTitle:        orNotSpecified(product.Name),
		OfferValueProp:    orNotSpecified(product.Pitch()),
		OfferPrice:        formatPrice(product.Price, product.PriceCurrency),
		ContactName:       contactName(contact),
		ContactRole:       orNotSpecified(contact.Title),
		ContactOrg:        orNotSpecified(contact.CompanyName()),
		ContactGoals:      contactGoals(contact, persona),
		ContactPainPoints: contactPainPoints(persona),
		BudgetSensitivity: BudgetSensitivity(stage, category),
		Pipeline:          orNotSpecified(category),
		Stage:             orNotSpecified(stage),
		Notes:             orNotSpecified(contact.Notes),
	}
}

func contactName(contact *crm.Contact) string {
	if name := contact.DisplayName(); name != "" {
		return name
	}
	return unknownName
}

// contactGoals prefers the persona goals, then the contact notes.
func contactGoals(contact *crm.Contact, persona *crm.Persona) string {
	if persona != nil {
		if goals := strings.TrimSpace(persona.Goals); goals != "" {
			return goals
		}
	}
	return orNotSpecified(contact.Notes)
}

// contactPainPoints has no notes fallback.
// TODO: confirm with product whether notes should back pain points the way they back goals.
func contactPainPoints(persona *crm.Persona) string {
	if persona == nil {
		return notSpecified
	}
	return orNotSpecified(persona.PainPoints)
}

// formatPrice renders "USD 1,500.00" style prices.
func formatPrice(price *float64, currency string) string {
	if price == nil {
		return notSpecified
	}
	currency = strings.TrimSpace(currency)
	if currency == "" {
		currency = defaultCurrency
	}
	return currency + " " + pricePrinter.Sprintf("%.2f", *price)
}

func orNotSpecified(s string) string {
	if s = strings.TrimSpace(s); s != "" {
		return s
	}
	return notSpecified
}

func buildUserPrompt(f promptFields) string {
	replacer := strings.NewReplacer(
		"{{OFFER_TITLE}}", f.OfferTitle,
		"{{OFFER_VALUE_PROP}}", f.OfferValueProp,
		"{{OFFER_PRICE}}", f.OfferPrice,
		"{{CONTACT_NAME}}", f.ContactName,
		"{{CONTACT_ROLE}}", f.ContactRole,
		"{{CONTACT_ORG}}", f.ContactOrg,
		"{{CONTACT_GOALS}}", f.ContactGoals,
		"{{CONTACT_PAIN_POINTS}}", f.ContactPainPoints,
		"{{BUDGET_SENSITIVITY}}", f.BudgetSensitivity,
		"{{PIPELINE}}", f.Pipeline,
		"{{STAGE}}", f.Stage,
		"{{NOTES}}", f.Notes,
	)
	return strings.TrimSpace(replacer.Replace(userPromptTemplate))
}

// SystemPrompt returns the fixed scoring instruction sent with every request.
func SystemPrompt() string {
	return strings.TrimSpace(systemPrompt)
}

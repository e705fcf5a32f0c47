package scoring

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/spigell/fitscore/internal/crm"
	"github.com/spigell/fitscore/internal/logger"
	"github.com/spigell/fitscore/internal/metrics"
	"go.uber.org/zap"
)

const (
	maxPersonaScore = 6.0
	// ConfidenceFloor is the lowest confidence at which a persona is returned.
	ConfidenceFloor = 20

	roleExactScore     = 3
	rolePartialScore   = 2
	roleKeywordScore   = 1
	industryExactScore = 2
	industryPartScore  = 1

	notesSaturation = 3.0
	minNotesWordLen = 5
)

// titleKeywords is checked in order; the first keyword shared by both titles is reported.
var titleKeywords = []string{
	"ceo", "cto", "cfo", "coo",
	"founder", "owner", "director", "manager",
	"head", "lead", "vp", "president",
}

// titleAliases maps spelled-out titles onto their keyword form.
var titleAliases = []struct {
	phrase  string
	keyword string
}{
	{phrase: "chief executive officer", keyword: "ceo"},
	{phrase: "chief technology officer", keyword: "cto"},
	{phrase: "chief technical officer", keyword: "cto"},
	{phrase: "chief financial officer", keyword: "cfo"},
	{phrase: "chief operating officer", keyword: "coo"},
	{phrase: "vice president", keyword: "vp"},
	{phrase: "vice-president", keyword: "vp"},
}

var errContactRequired = errors.New("contact id is required")

type MatchOptions struct {
	ReturnDetails bool
}

// MatchDetail is the per-persona breakdown of a match run.
type MatchDetail struct {
	PersonaID string   `json:"personaId"`
	Name      string   `json:"name"`
	Score     float64  `json:"score"`
	Reasons   []string `json:"reasons"`
}

type BestMatch struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Role     string `json:"role"`
	Industry string `json:"industry"`
}

// PersonaMatch is the outcome of FindMatchingPersona. Without details only PersonaID is set.
type PersonaMatch struct {
	PersonaID    *string       `json:"personaId"`
	Confidence   int           `json:"confidence"`
	MatchDetails []MatchDetail `json:"matchDetails"`
	BestMatch    *BestMatch    `json:"bestMatch,omitempty"`
	Error        string        `json:"error,omitempty"`
}

// ID returns the matched persona id or an empty string.
func (p *PersonaMatch) ID() string {
	if p == nil || p.PersonaID == nil {
		return ""
	}
	return *p.PersonaID
}

type PersonaMatcher struct {
	records crm.Records
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewPersonaMatcher(records crm.Records, log *zap.Logger, m *metrics.Metrics) *PersonaMatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &PersonaMatcher{records: records, logger: log, metrics: m}
}

// FindMatchingPersona ranks the tenant personas against the contact. It never fails:
// lookup and scoring errors collapse into a result without a persona.
func (m *PersonaMatcher) FindMatchingPersona(ctx context.Context, contactID, tenantID string, opts MatchOptions) (result *PersonaMatch) {
	log := logger.WithMatch(m.logger, contactID, tenantID)

	defer func() {
		if r := recover(); r != nil {
			result = m.failed(log, opts, fmt.Errorf("persona matching panicked: %v", r))
		}
	}()

	if strings.TrimSpace(contactID) == "" {
		return m.failed(log, opts, errContactRequired)
	}

	contact, err := m.records.GetContact(ctx, contactID)
	if err != nil {
		return m.failed(log, opts, fmt.Errorf("get contact %s: %w", contactID, err))
	}
	if contact == nil {
		log.Debug("contact not found, no persona match")
		m.metrics.ObservePersonaMatch(metrics.MatchNoCandidates)
		return emptyMatch(opts)
	}

	personas, err := m.records.ListPersonas(ctx, tenantID)
	if err != nil {
		return m.failed(log, opts, fmt.Errorf("list personas for tenant %s: %w", tenantID, err))
	}
	if len(personas) == 0 {
		log.Debug("tenant has no personas")
		m.metrics.ObservePersonaMatch(metrics.MatchNoCandidates)
		return emptyMatch(opts)
	}

	target := normalizeContact(contact)

	details := make([]MatchDetail, 0, len(personas))
	var best *crm.Persona
	bestScore := -1.0

	for _, persona := range personas {
		if persona == nil {
			continue
		}
		detail := scorePersona(target, persona)
		details = append(details, detail)

		if detail.Score > bestScore {
			bestScore = detail.Score
			best = persona
		}
	}

	if best == nil {
		m.metrics.ObservePersonaMatch(metrics.MatchNoCandidates)
		return emptyMatch(opts)
	}

	confidence := int(math.Round(bestScore / maxPersonaScore * 100))

	sort.SliceStable(details, func(i, j int) bool {
		return details[i].Score > details[j].Score
	})

	log.Debug("persona candidates scored",
		zap.Int("candidates", len(details)),
		zap.String("best_persona_id", best.ID),
		zap.Float64("best_score", bestScore),
		zap.Int("confidence", confidence),
	)

	if confidence < ConfidenceFloor {
		m.metrics.ObservePersonaMatch(metrics.MatchBelowFloor)
		if !opts.ReturnDetails {
			return &PersonaMatch{}
		}
		return &PersonaMatch{Confidence: confidence, MatchDetails: details}
	}

	m.metrics.ObservePersonaMatch(metrics.MatchFound)

	id := best.ID
	if !opts.ReturnDetails {
		return &PersonaMatch{PersonaID: &id}
	}

	return &PersonaMatch{
		PersonaID:    &id,
		Confidence:   confidence,
		MatchDetails: details,
		BestMatch: &BestMatch{
			ID:       best.ID,
			Name:     best.Name,
			Role:     best.RoleOrTitle(),
			Industry: best.Industry,
		},
	}
}

func (m *PersonaMatcher) failed(log *zap.Logger, opts MatchOptions, err error) *PersonaMatch {
	log.Warn("persona matching failed", zap.Error(err))
	m.metrics.ObservePersonaMatch(metrics.MatchError)

	result := emptyMatch(opts)
	if opts.ReturnDetails {
		result.Error = err.Error()
	}
	return result
}

func emptyMatch(opts MatchOptions) *PersonaMatch {
	if !opts.ReturnDetails {
		return &PersonaMatch{}
	}
	return &PersonaMatch{MatchDetails: []MatchDetail{}}
}

type matchTarget struct {
	title    string
	industry string
	notes    string
}

func normalizeContact(contact *crm.Contact) matchTarget {
	return matchTarget{
		title:    normalize(contact.Title),
		industry: normalize(contact.Industry()),
		notes:    normalize(contact.Notes),
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func scorePersona(target matchTarget, persona *crm.Persona) MatchDetail {
	detail := MatchDetail{
		PersonaID: persona.ID,
		Name:      persona.Name,
		Reasons:   []string{},
	}

	if score, reason := roleSignal(target.title, normalize(persona.RoleOrTitle())); score > 0 {
		detail.Score += score
		detail.Reasons = append(detail.Reasons, reason)
	}

	if score, reason := industrySignal(target.industry, normalize(persona.Industry)); score > 0 {
		detail.Score += score
		detail.Reasons = append(detail.Reasons, reason)
	}

	if score, reason := notesSignal(target.notes, persona.Goals+" "+persona.PainPoints); score > 0 {
		detail.Score += score
		detail.Reasons = append(detail.Reasons, reason)
	}

	if len(detail.Reasons) == 0 {
		detail.Reasons = append(detail.Reasons, "No matches found")
	}

	return detail
}

func roleSignal(contactTitle, personaRole string) (float64, string) {
	if contactTitle == "" || personaRole == "" {
		return 0, ""
	}
	if contactTitle == personaRole {
		return roleExactScore, "Exact role/title match"
	}
	if strings.Contains(contactTitle, personaRole) || strings.Contains(personaRole, contactTitle) {
		return rolePartialScore, "Partial role/title match"
	}

	contactTitle = expandTitle(contactTitle)
	personaRole = expandTitle(personaRole)
	for _, keyword := range titleKeywords {
		if strings.Contains(contactTitle, keyword) && strings.Contains(personaRole, keyword) {
			return roleKeywordScore, "Related role keyword: " + keyword
		}
	}

	return 0, ""
}

// expandTitle appends the keyword form of every spelled-out title found in t.
func expandTitle(t string) string {
	for _, alias := range titleAliases {
		if strings.Contains(t, alias.phrase) {
			t += " " + alias.keyword
		}
	}
	return t
}

func industrySignal(contactIndustry, personaIndustry string) (float64, string) {
	if contactIndustry == "" || personaIndustry == "" {
		return 0, ""
	}
	if contactIndustry == personaIndustry {
		return industryExactScore, "Exact industry match"
	}
	if strings.Contains(contactIndustry, personaIndustry) || strings.Contains(personaIndustry, contactIndustry) {
		return industryPartScore, "Partial industry match"
	}
	return 0, ""
}

// notesSignal counts goal and pain point words found in the contact notes.
// Three hits saturate the signal.
func notesSignal(notes, personaText string) (float64, string) {
	if notes == "" {
		return 0, ""
	}

	count := 0
	for _, word := range strings.Fields(strings.ToLower(personaText)) {
		if utf8.RuneCountInString(word) < minNotesWordLen {
			continue
		}
		if strings.Contains(notes, word) {
			count++
		}
	}
	if count == 0 {
		return 0, ""
	}

	return math.Min(1, float64(count)/notesSaturation), fmt.Sprintf("Found %d matching keywords in notes", count)
}

package services

import (
	"fmt"
	"strings"
	"sync"

	"configurator/internal/catalog"
	"configurator/internal/models"

	"go.uber.org/zap"
)

// DraftHandoffKey is the fixed name a pending draft is stored under in a session.
const DraftHandoffKey = "orderDetails"

// Field is a single-choice wizard field.
type Field string

const (
	FieldModel          Field = "model"
	FieldExteriorColor  Field = "exterior_color"
	FieldInterior       Field = "interior"
	FieldPerformance    Field = "performance"
	FieldWheels         Field = "wheels"
	FieldCustomizations Field = "customizations"
)

// AddonGroup is a multi-choice wizard group.
type AddonGroup string

const (
	AddonAero       AddonGroup = "aero"
	AddonTechnology AddonGroup = "technology"
)

// stepRequirements lists the fields each wizard step needs before Next is allowed.
var stepRequirements = map[models.DraftVariant][][]Field{
	models.VariantStandard: {
		{FieldModel},
		{FieldExteriorColor},
		{FieldInterior},
	},
	models.VariantExclusive: {
		{FieldModel},
		{FieldExteriorColor},
		{FieldInterior},
		{FieldPerformance, FieldWheels},
		{},
		{},
	},
}

// Wizard is the in-memory state of one configurator session. Back and Next
// only move the step cursor; a submitted draft is never touched again.
type Wizard struct {
	catalog *catalog.Catalog
	variant models.DraftVariant
	step    int
	sel     models.Selections
}

// NewWizard starts a wizard at step 1. Unknown variants fall back to standard.
func NewWizard(c *catalog.Catalog, variant models.DraftVariant) *Wizard {
	if _, ok := stepRequirements[variant]; !ok {
		variant = models.VariantStandard
	}
	return &Wizard{
		catalog: c,
		variant: variant,
		step:    1,
		sel:     models.Selections{Variant: variant},
	}
}

// Steps returns the number of steps of the wizard's variant.
func (w *Wizard) Steps() int { return len(stepRequirements[w.variant]) }

// Step returns the current 1-based step.
func (w *Wizard) Step() int { return w.step }

// Selections returns a copy of the current choices.
func (w *Wizard) Selections() models.Selections {
	s := w.sel
	s.Aero = append([]string(nil), w.sel.Aero...)
	s.Technology = append([]string(nil), w.sel.Technology...)
	return s
}

// Select records a single-choice field.
func (w *Wizard) Select(field Field, value string) error {
	value = strings.TrimSpace(value)
	switch field {
	case FieldModel:
		w.sel.Model = value
	case FieldExteriorColor:
		w.sel.ExteriorColor = value
	case FieldInterior:
		w.sel.Interior = value
	case FieldPerformance:
		w.sel.Performance = value
	case FieldWheels:
		w.sel.Wheels = value
	case FieldCustomizations:
		w.sel.Customizations = value
	default:
		return fmt.Errorf("%w: unknown field %q", ErrInvalidOption, field)
	}
	return nil
}

// Toggle flips an add-on in a multi-choice group.
func (w *Wizard) Toggle(group AddonGroup, id string) error {
	var list *[]string
	switch group {
	case AddonAero:
		list = &w.sel.Aero
	case AddonTechnology:
		list = &w.sel.Technology
	default:
		return fmt.Errorf("%w: unknown add-on group %q", ErrInvalidOption, group)
	}
	for i, v := range *list {
		if v == id {
			*list = append((*list)[:i:i], (*list)[i+1:]...)
			return nil
		}
	}
	*list = append(*list, id)
	return nil
}

func (w *Wizard) value(f Field) string {
	switch f {
	case FieldModel:
		return w.sel.Model
	case FieldExteriorColor:
		return w.sel.ExteriorColor
	case FieldInterior:
		return w.sel.Interior
	case FieldPerformance:
		return w.sel.Performance
	case FieldWheels:
		return w.sel.Wheels
	case FieldCustomizations:
		return w.sel.Customizations
	}
	return ""
}

func (w *Wizard) missing(steps [][]Field) []string {
	var out []string
	for _, fields := range steps {
		for _, f := range fields {
			if w.value(f) == "" {
				out = append(out, string(f))
			}
		}
	}
	return out
}

// CanAdvance reports whether the current step has every required selection.
func (w *Wizard) CanAdvance() bool {
	reqs := stepRequirements[w.variant]
	return len(w.missing(reqs[w.step-1:w.step])) == 0
}

// Next moves to the following step. It fails with ErrValidationIncomplete
// while the current step is incomplete, and is a no-op on the last step.
func (w *Wizard) Next() error {
	reqs := stepRequirements[w.variant]
	if missing := w.missing(reqs[w.step-1 : w.step]); len(missing) > 0 {
		return &IncompleteError{Missing: missing}
	}
	if w.step < len(reqs) {
		w.step++
	}
	return nil
}

// Back moves to the previous step.
func (w *Wizard) Back() {
	if w.step > 1 {
		w.step--
	}
}

// Submit validates every required step and the catalog options and returns
// the immutable draft with its price fixed at this moment.
func (w *Wizard) Submit() (models.OrderDraft, error) {
	if missing := w.missing(stepRequirements[w.variant]); len(missing) > 0 {
		return models.OrderDraft{}, &IncompleteError{Missing: missing}
	}
	sel := w.Selections()
	if w.variant == models.VariantStandard {
		sel.Performance, sel.Wheels, sel.Aero, sel.Technology = "", "", nil, nil
	}
	price, err := w.catalog.Price(sel)
	if err != nil {
		return models.OrderDraft{}, err
	}
	return models.OrderDraft{
		Variant:        w.variant,
		Model:          sel.Model,
		ExteriorColor:  sel.ExteriorColor,
		Interior:       sel.Interior,
		Performance:    sel.Performance,
		Wheels:         sel.Wheels,
		Aero:           sel.Aero,
		Technology:     sel.Technology,
		Customizations: sel.Customizations,
		Price:          catalog.FormatUSD(price),
	}, nil
}

// BuildDraft runs a full set of selections through a wizard and submits it.
func BuildDraft(c *catalog.Catalog, sel models.Selections) (models.OrderDraft, error) {
	w := NewWizard(c, sel.Variant)
	for f, v := range map[Field]string{
		FieldModel:          sel.Model,
		FieldExteriorColor:  sel.ExteriorColor,
		FieldInterior:       sel.Interior,
		FieldPerformance:    sel.Performance,
		FieldWheels:         sel.Wheels,
		FieldCustomizations: sel.Customizations,
	} {
		if err := w.Select(f, v); err != nil {
			return models.OrderDraft{}, err
		}
	}
	w.sel.Aero = dedupe(sel.Aero)
	w.sel.Technology = dedupe(sel.Technology)
	return w.Submit()
}

func dedupe(ids []string) []string {
	var out []string
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

func cloneDraft(d models.OrderDraft) models.OrderDraft {
	d.Aero = append([]string(nil), d.Aero...)
	d.Technology = append([]string(nil), d.Technology...)
	return d
}

// DraftStore is the page-lifetime handoff area between the wizard and the
// payment step. Each session holds at most one pending draft.
type DraftStore struct {
	drafts map[string]models.OrderDraft
	mu     sync.Mutex
}

// NewDraftStore creates an empty handoff store.
func NewDraftStore() *DraftStore {
	return &DraftStore{drafts: make(map[string]models.OrderDraft)}
}

func draftKey(sessionID string) string { return sessionID + "/" + DraftHandoffKey }

// Put stores the draft, replacing any unconsumed one.
func (s *DraftStore) Put(sessionID string, d models.OrderDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts[draftKey(sessionID)] = cloneDraft(d)
}

// PutIfAbsent stores the draft only when the session has none pending.
func (s *DraftStore) PutIfAbsent(sessionID string, d models.OrderDraft) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[draftKey(sessionID)]; ok {
		return false
	}
	s.drafts[draftKey(sessionID)] = cloneDraft(d)
	return true
}

// Peek returns the pending draft without consuming it.
func (s *DraftStore) Peek(sessionID string) (models.OrderDraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[draftKey(sessionID)]
	return cloneDraft(d), ok
}

// Take removes and returns the pending draft. A draft is handed out at most once.
func (s *DraftStore) Take(sessionID string) (models.OrderDraft, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.drafts[draftKey(sessionID)]
	if ok {
		delete(s.drafts, draftKey(sessionID))
	}
	return d, ok
}

// DraftService turns wizard selections into drafts and parks them for payment.
type DraftService struct {
	catalog *catalog.Catalog
	store   *DraftStore
	logger  *zap.Logger
}

// NewDraftService creates a new DraftService.
func NewDraftService(c *catalog.Catalog, store *DraftStore, logger *zap.Logger) *DraftService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftService{catalog: c, store: store, logger: logger}
}

// Catalog returns the catalog drafts are priced against.
func (s *DraftService) Catalog() *catalog.Catalog { return s.catalog }

// Submit builds a draft from the selections and stores it as the session's pending draft.
func (s *DraftService) Submit(sessionID string, sel models.Selections) (models.OrderDraft, error) {
	draft, err := BuildDraft(s.catalog, sel)
	if err != nil {
		return models.OrderDraft{}, err
	}
	s.store.Put(sessionID, draft)
	s.logger.Debug("order draft submitted",
		zap.String("session", sessionID),
		zap.String("model", draft.Model),
		zap.String("price", draft.Price))
	return draft, nil
}

// Pending returns the session's pending draft.
func (s *DraftService) Pending(sessionID string) (models.OrderDraft, error) {
	d, ok := s.store.Peek(sessionID)
	if !ok {
		return models.OrderDraft{}, ErrDraftNotFound
	}
	return d, nil
}

// Consume hands the pending draft to fn. The draft is gone afterwards unless
// fn fails, in which case it is put back if no newer draft arrived meanwhile.
func (s *DraftService) Consume(sessionID string, fn func(models.OrderDraft) error) error {
	d, ok := s.store.Take(sessionID)
	if !ok {
		return ErrDraftNotFound
	}
	if err := fn(d); err != nil {
		s.store.PutIfAbsent(sessionID, d)
		return err
	}
	return nil
}

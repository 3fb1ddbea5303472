package campaign

import (
	"fmt"
	"slices"
	"time"

	"sales-recovery/internal/domain/event"
	"sales-recovery/internal/pkg/errs"
)

const DefaultVersion = "builtin-2024.1"

var ErrInvalidRegistry = errs.New("invalid campaign registry")

// TemplateSelector names a template, e.g. "abandoned_cart.reminder".
type TemplateSelector string

func (s TemplateSelector) String() string { return string(s) }

// AttemptDef is one planned step of a campaign. An empty Template means the
// step exists for numbering purposes but sends nothing.
type AttemptDef struct {
	Number   int
	Delay    time.Duration
	Template TemplateSelector
}

func (a AttemptDef) Skipped() bool { return a.Template == "" }

type Definition struct {
	Attempts []AttemptDef
	// Urgent campaigns ignore their delays and fire on ingestion.
	Urgent bool
	// Resolves lists the event types a resolution event closes.
	Resolves []event.Type
}

// Registry maps every event type to its campaign. It is immutable after
// construction and safe for concurrent use.
type Registry struct {
	version string
	defs    map[event.Type]Definition
}

func New(version string, defs map[event.Type]Definition) (*Registry, error) {
	if version == "" {
		return nil, errs.Mark(errs.New("registry version is empty"), ErrInvalidRegistry)
	}
	copied := make(map[event.Type]Definition, len(defs))
	for t, d := range defs {
		if !t.Valid() {
			return nil, errs.Mark(errs.Newf("unknown event type %q", t), ErrInvalidRegistry)
		}
		copied[t] = Definition{
			Attempts: slices.Clone(d.Attempts),
			Urgent:   d.Urgent,
			Resolves: slices.Clone(d.Resolves),
		}
	}
	r := &Registry{version: version, defs: copied}
	if err := r.validate(); err != nil {
		return nil, err
	}
	return r, nil
}

// Default returns the built-in campaign table.
func Default() *Registry {
	defs := make(map[event.Type]Definition, len(event.AllTypes()))
	for _, t := range event.AllTypes() {
		defs[t] = builtinDefinition(t)
	}
	r, err := New(DefaultVersion, defs)
	if err != nil {
		panic(fmt.Sprintf("built-in campaign registry is invalid: %v", err))
	}
	return r
}

func builtinDefinition(t event.Type) Definition {
	switch t {
	case event.TypeAbandonedCart:
		return Definition{Attempts: attempts(
			step(2*time.Hour, "abandoned_cart.reminder"),
			step(24*time.Hour, "abandoned_cart.incentive"),
			step(72*time.Hour, "abandoned_cart.last_call"),
		)}
	case event.TypePixExpired:
		return Definition{Attempts: attempts(
			step(15*time.Minute, "pix_expired.new_code"),
			step(6*time.Hour, "pix_expired.reminder"),
		)}
	case event.TypeBoletoExpired:
		return Definition{Attempts: attempts(
			step(time.Hour, "boleto_expired.new_slip"),
			step(24*time.Hour, "boleto_expired.reminder"),
			step(48*time.Hour, "boleto_expired.last_call"),
		)}
	case event.TypeSaleRefused:
		return Definition{Attempts: attempts(
			step(30*time.Minute, "sale_refused.retry_payment"),
			step(24*time.Hour, "sale_refused.alternative_method"),
		)}
	case event.TypeSubscriptionCanceled:
		return Definition{Attempts: attempts(
			step(24*time.Hour, "subscription_canceled.winback"),
			step(72*time.Hour, ""),
			step(168*time.Hour, "subscription_canceled.offer"),
		)}
	case event.TypeChargeback:
		return Definition{
			Attempts: attempts(step(0, "chargeback.contact")),
			Urgent:   true,
		}
	case event.TypeSaleApproved:
		return Definition{Resolves: []event.Type{
			event.TypeAbandonedCart,
			event.TypePixExpired,
			event.TypeBoletoExpired,
			event.TypeSaleRefused,
		}}
	}
	return Definition{}
}

func step(delay time.Duration, tmpl TemplateSelector) AttemptDef {
	return AttemptDef{Delay: delay, Template: tmpl}
}

func attempts(steps ...AttemptDef) []AttemptDef {
	for i := range steps {
		steps[i].Number = i + 1
	}
	return steps
}

func (r *Registry) validate() error {
	for _, t := range event.AllTypes() {
		def, ok := r.defs[t]
		if !ok {
			return errs.Mark(errs.Newf("no campaign defined for %s", t), ErrInvalidRegistry)
		}
		for i, a := range def.Attempts {
			if a.Number != i+1 {
				return errs.Mark(errs.Newf("%s: attempt numbers must be contiguous from 1, got %d at position %d", t, a.Number, i+1), ErrInvalidRegistry)
			}
			if a.Delay < 0 {
				return errs.Mark(errs.Newf("%s: attempt %d has negative delay", t, a.Number), ErrInvalidRegistry)
			}
		}
		if len(def.Resolves) > 0 && len(def.Attempts) > 0 {
			return errs.Mark(errs.Newf("%s: resolution events cannot carry attempts", t), ErrInvalidRegistry)
		}
		for _, rt := range def.Resolves {
			if !rt.Valid() || rt == t {
				return errs.Mark(errs.Newf("%s: cannot resolve %q", t, rt), ErrInvalidRegistry)
			}
		}
	}
	return nil
}

func (r *Registry) Version() string { return r.version }

// Lookup returns the template for the given attempt. ok is false when the
// attempt does not exist or is a skipped step.
func (r *Registry) Lookup(t event.Type, attemptNumber int) (TemplateSelector, bool) {
	def, ok := r.defs[t]
	if !ok || attemptNumber < 1 || attemptNumber > len(def.Attempts) {
		return "", false
	}
	a := def.Attempts[attemptNumber-1]
	if a.Skipped() {
		return "", false
	}
	return a.Template, true
}

func (r *Registry) MaxAttempts(t event.Type) int {
	return len(r.defs[t].Attempts)
}

func (r *Registry) Attempts(t event.Type) []AttemptDef {
	return slices.Clone(r.defs[t].Attempts)
}

func (r *Registry) IsUrgent(t event.Type) bool {
	return r.defs[t].Urgent
}

func (r *Registry) IsFinal(t event.Type, attemptNumber int) bool {
	return attemptNumber >= r.MaxAttempts(t)
}

func (r *Registry) Resolves(t event.Type) []event.Type {
	return slices.Clone(r.defs[t].Resolves)
}

// Templates lists every distinct template referenced by the registry.
func (r *Registry) Templates() []TemplateSelector {
	var out []TemplateSelector
	for _, t := range event.AllTypes() {
		for _, a := range r.defs[t].Attempts {
			if !a.Skipped() && !slices.Contains(out, a.Template) {
				out = append(out, a.Template)
			}
		}
	}
	return out
}

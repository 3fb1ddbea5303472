//go:build unit

package campaign_test

import (
	"testing"
	"time"

	"sales-recovery/internal/domain/campaign"
	"sales-recovery/internal/domain/event"
	"sales-recovery/internal/pkg/errs"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	r := campaign.Default()

	t.Run("every event type has a campaign", func(t *testing.T) {
		for _, typ := range event.AllTypes() {
			if typ == event.TypeSaleApproved {
				assert.Zero(t, r.MaxAttempts(typ))
				continue
			}
			assert.Positive(t, r.MaxAttempts(typ), typ)
		}
	})

	t.Run("lookup", func(t *testing.T) {
		tmpl, ok := r.Lookup(event.TypeAbandonedCart, 1)
		require.True(t, ok)
		assert.Equal(t, campaign.TemplateSelector("abandoned_cart.reminder"), tmpl)

		_, ok = r.Lookup(event.TypeAbandonedCart, 0)
		assert.False(t, ok)
		_, ok = r.Lookup(event.TypeAbandonedCart, 4)
		assert.False(t, ok)
		_, ok = r.Lookup(event.TypeSaleApproved, 1)
		assert.False(t, ok)
	})

	t.Run("skipped step has no template", func(t *testing.T) {
		_, ok := r.Lookup(event.TypeSubscriptionCanceled, 2)
		assert.False(t, ok)
		assert.Equal(t, 3, r.MaxAttempts(event.TypeSubscriptionCanceled))
	})

	t.Run("finality", func(t *testing.T) {
		assert.False(t, r.IsFinal(event.TypePixExpired, 1))
		assert.True(t, r.IsFinal(event.TypePixExpired, 2))
		assert.True(t, r.IsFinal(event.TypeChargeback, 1))
	})

	t.Run("urgency and resolution", func(t *testing.T) {
		assert.True(t, r.IsUrgent(event.TypeChargeback))
		assert.False(t, r.IsUrgent(event.TypeAbandonedCart))
		assert.ElementsMatch(t, []event.Type{
			event.TypeAbandonedCart, event.TypePixExpired, event.TypeBoletoExpired, event.TypeSaleRefused,
		}, r.Resolves(event.TypeSaleApproved))
		assert.Empty(t, r.Resolves(event.TypeChargeback))
	})

	t.Run("templates are distinct", func(t *testing.T) {
		tmpls := r.Templates()
		seen := map[campaign.TemplateSelector]bool{}
		for _, tm := range tmpls {
			assert.False(t, seen[tm], tm)
			seen[tm] = true
		}
		assert.Len(t, tmpls, 13)
	})

	t.Run("attempts returns a copy", func(t *testing.T) {
		a := r.Attempts(event.TypeAbandonedCart)
		a[0].Template = "mutated"
		tmpl, _ := r.Lookup(event.TypeAbandonedCart, 1)
		assert.Equal(t, campaign.TemplateSelector("abandoned_cart.reminder"), tmpl)
	})
}

func TestNew(t *testing.T) {
	full := func() map[event.Type]campaign.Definition {
		defs := map[event.Type]campaign.Definition{}
		for _, typ := range event.AllTypes() {
			defs[typ] = campaign.Definition{}
		}
		return defs
	}

	tests := []struct {
		name    string
		version string
		mutate  func(map[event.Type]campaign.Definition)
	}{
		{name: "empty version", version: "", mutate: func(map[event.Type]campaign.Definition) {}},
		{
			name: "missing event type", version: "v1",
			mutate: func(d map[event.Type]campaign.Definition) { delete(d, event.TypeChargeback) },
		},
		{
			name: "unknown event type", version: "v1",
			mutate: func(d map[event.Type]campaign.Definition) { d[event.Type("REFUND")] = campaign.Definition{} },
		},
		{
			name: "gap in attempt numbers", version: "v1",
			mutate: func(d map[event.Type]campaign.Definition) {
				d[event.TypePixExpired] = campaign.Definition{Attempts: []campaign.AttemptDef{
					{Number: 1, Template: "a"}, {Number: 3, Template: "b"},
				}}
			},
		},
		{
			name: "negative delay", version: "v1",
			mutate: func(d map[event.Type]campaign.Definition) {
				d[event.TypePixExpired] = campaign.Definition{Attempts: []campaign.AttemptDef{
					{Number: 1, Delay: -time.Second, Template: "a"},
				}}
			},
		},
		{
			name: "resolution with attempts", version: "v1",
			mutate: func(d map[event.Type]campaign.Definition) {
				d[event.TypeSaleApproved] = campaign.Definition{
					Resolves: []event.Type{event.TypePixExpired},
					Attempts: []campaign.AttemptDef{{Number: 1, Template: "a"}},
				}
			},
		},
		{
			name: "resolves itself", version: "v1",
			mutate: func(d map[event.Type]campaign.Definition) {
				d[event.TypeSaleApproved] = campaign.Definition{Resolves: []event.Type{event.TypeSaleApproved}}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defs := full()
			tt.mutate(defs)
			_, err := campaign.New(tt.version, defs)
			require.Error(t, err)
			assert.True(t, errs.Is(err, campaign.ErrInvalidRegistry))
		})
	}

	t.Run("input is copied", func(t *testing.T) {
		defs := full()
		defs[event.TypePixExpired] = campaign.Definition{Attempts: []campaign.AttemptDef{{Number: 1, Template: "a"}}}
		r, err := campaign.New("v1", defs)
		require.NoError(t, err)

		defs[event.TypePixExpired].Attempts[0].Template = "b"
		tmpl, ok := r.Lookup(event.TypePixExpired, 1)
		require.True(t, ok)
		assert.Equal(t, campaign.TemplateSelector("a"), tmpl)
	})
}

func TestLoadFile(t *testing.T) {
	r, err := campaign.LoadFile("../../../config/campaigns.yaml")
	require.NoError(t, err)

	assert.Equal(t, "2024.2", r.Version())
	assert.True(t, r.IsUrgent(event.TypeChargeback))

	want := []campaign.AttemptDef{
		{Number: 1, Delay: 10 * time.Minute, Template: "pix_expired.new_code"},
		{Number: 2, Delay: 6 * time.Hour, Template: "pix_expired.reminder"},
	}
	if diff := cmp.Diff(want, r.Attempts(event.TypePixExpired)); diff != "" {
		t.Errorf("pix attempts mismatch (-want +got):\n%s", diff)
	}

	// builtin table and the shipped file reference the same templates
	assert.ElementsMatch(t, campaign.Default().Templates(), r.Templates())
}

func TestParse(t *testing.T) {
	t.Run("bad yaml", func(t *testing.T) {
		_, err := campaign.Parse([]byte("version: [oops"))
		assert.True(t, errs.Is(err, campaign.ErrInvalidRegistry))
	})

	t.Run("bad delay", func(t *testing.T) {
		_, err := campaign.Parse([]byte(`
version: v1
campaigns:
  PIX_EXPIRED:
    attempts:
      - delay: soon
        template: x
`))
		assert.True(t, errs.Is(err, campaign.ErrInvalidRegistry))
	})

	t.Run("unknown campaign name", func(t *testing.T) {
		_, err := campaign.Parse([]byte(`
version: v1
campaigns:
  ORDER_SHIPPED: {}
`))
		assert.True(t, errs.Is(err, campaign.ErrInvalidRegistry))
	})

	t.Run("incomplete document", func(t *testing.T) {
		_, err := campaign.Parse([]byte(`
version: v1
campaigns:
  CHARGEBACK:
    urgent: true
    attempts:
      - delay: 0s
        template: chargeback.contact
`))
		assert.True(t, errs.Is(err, campaign.ErrInvalidRegistry))
	})
}

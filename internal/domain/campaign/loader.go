package campaign

import (
	"os"
	"time"

	"sales-recovery/internal/domain/event"
	"sales-recovery/internal/pkg/errs"

	"gopkg.in/yaml.v3"
)

type document struct {
	Version   string                 `yaml:"version"`
	Campaigns map[string]campaignDoc `yaml:"campaigns"`
}

type campaignDoc struct {
	Urgent   bool         `yaml:"urgent"`
	Resolves []string     `yaml:"resolves"`
	Attempts []attemptDoc `yaml:"attempts"`
}

type attemptDoc struct {
	Number   int    `yaml:"number"`
	Delay    string `yaml:"delay"`
	Template string `yaml:"template"`
}

// LoadFile reads a versioned campaign document from disk.
func LoadFile(path string) (*Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errs.Wrapf(err, "read campaign registry %s", path)
	}
	return Parse(raw)
}

// Parse decodes a YAML campaign document. Attempts without an explicit number
// take their position in the list.
func Parse(raw []byte) (*Registry, error) {
	var doc document
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, errs.Mark(errs.Wrap(err, "decode campaign registry"), ErrInvalidRegistry)
	}

	defs := make(map[event.Type]Definition, len(doc.Campaigns))
	for name, c := range doc.Campaigns {
		t, err := event.ParseType(name)
		if err != nil {
			return nil, errs.Mark(errs.Newf("unknown event type %q", name), ErrInvalidRegistry)
		}
		def := Definition{Urgent: c.Urgent}
		for i, a := range c.Attempts {
			delay, derr := time.ParseDuration(a.Delay)
			if derr != nil {
				return nil, errs.Mark(errs.Wrapf(derr, "%s attempt %d delay", name, i+1), ErrInvalidRegistry)
			}
			number := a.Number
			if number == 0 {
				number = i + 1
			}
			def.Attempts = append(def.Attempts, AttemptDef{
				Number:   number,
				Delay:    delay,
				Template: TemplateSelector(a.Template),
			})
		}
		for _, rs := range c.Resolves {
			rt, rerr := event.ParseType(rs)
			if rerr != nil {
				return nil, errs.Mark(errs.Newf("%s resolves unknown type %q", name, rs), ErrInvalidRegistry)
			}
			def.Resolves = append(def.Resolves, rt)
		}
		defs[t] = def
	}
	return New(doc.Version, defs)
}

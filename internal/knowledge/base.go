// Package knowledge holds the static medical lookup tables and the rule-based
// matcher that turns symptom names into a ranked, mock diagnosis.
package knowledge

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"medflow/internal/medical"
)

//go:embed knowledge.yaml
var defaultTables []byte

// Entry links a symptom to one candidate condition.
type Entry struct {
	Condition   string                 `yaml:"condition"`
	Probability float64                `yaml:"probability"`
	Specialist  medical.SpecialistType `yaml:"specialist"`
}

type tables struct {
	Symptoms       map[string][]Entry       `yaml:"symptoms"`
	Descriptions   map[string]string        `yaml:"descriptions"`
	Tests          map[string][]string      `yaml:"tests"`
	Specialists    []medical.SpecialistInfo `yaml:"specialists"`
	CommonSymptoms []string                 `yaml:"commonSymptoms"`
}

// Base is an immutable, validated set of lookup tables. Safe for concurrent use.
type Base struct {
	symptoms       map[string][]Entry
	descriptions   map[string]string
	tests          map[string][]string
	specialists    map[medical.SpecialistType]medical.SpecialistInfo
	commonSymptoms []string
}

var ErrInvalidTables = errors.New("invalid knowledge tables")

// Default returns the tables compiled into the binary.
func Default() *Base {
	b, err := Parse(defaultTables)
	if err != nil {
		panic(fmt.Sprintf("embedded knowledge tables: %v", err))
	}
	return b
}

// LoadFile reads tables from a YAML file on disk.
func LoadFile(path string) (*Base, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read knowledge tables: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Base, error) {
	var t tables
	if err := yaml.Unmarshal(data, &t); err != nil {
		return nil, fmt.Errorf("decode knowledge tables: %w", err)
	}

	b := &Base{
		symptoms:       make(map[string][]Entry, len(t.Symptoms)),
		descriptions:   t.Descriptions,
		tests:          t.Tests,
		specialists:    make(map[medical.SpecialistType]medical.SpecialistInfo, len(t.Specialists)),
		commonSymptoms: t.CommonSymptoms,
	}
	if b.descriptions == nil {
		b.descriptions = map[string]string{}
	}
	if b.tests == nil {
		b.tests = map[string][]string{}
	}

	for _, info := range t.Specialists {
		if _, err := medical.ParseSpecialistType(string(info.Type)); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidTables, err)
		}
		b.specialists[info.Type] = info
	}
	for _, st := range medical.SpecialistTypes {
		if _, ok := b.specialists[st]; !ok {
			return nil, fmt.Errorf("%w: specialist %q missing from directory", ErrInvalidTables, st)
		}
	}

	for name, entries := range t.Symptoms {
		for _, e := range entries {
			if e.Probability < 0 || e.Probability > 1 {
				return nil, fmt.Errorf("%w: %s/%s probability %v out of range", ErrInvalidTables, name, e.Condition, e.Probability)
			}
			if _, ok := b.specialists[e.Specialist]; !ok {
				return nil, fmt.Errorf("%w: %s/%s references unknown specialist %q", ErrInvalidTables, name, e.Condition, e.Specialist)
			}
		}
		b.symptoms[normalize(name)] = entries
	}

	return b, nil
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Known reports whether the symptom name has table entries.
func (b *Base) Known(name string) bool {
	_, ok := b.symptoms[normalize(name)]
	return ok
}

// Specialist returns the directory entry for t.
func (b *Base) Specialist(t medical.SpecialistType) (medical.SpecialistInfo, bool) {
	info, ok := b.specialists[t]
	return info, ok
}

// Specialists returns the directory in declaration order.
func (b *Base) Specialists() []medical.SpecialistInfo {
	out := make([]medical.SpecialistInfo, 0, len(medical.SpecialistTypes))
	for _, t := range medical.SpecialistTypes {
		out = append(out, b.specialists[t])
	}
	return out
}

// CommonSymptoms are the quick-pick suggestions shown on the intake form.
func (b *Base) CommonSymptoms() []string {
	return append([]string(nil), b.commonSymptoms...)
}

func (b *Base) description(condition string) string {
	if d, ok := b.descriptions[condition]; ok {
		return d
	}
	return "No description available"
}

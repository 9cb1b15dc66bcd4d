package domain

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// SignConvention decides how a probe reading orders a coil's two leads.
type SignConvention string

const (
	// RisingMarksPositive: a rising reading means the lead on the positive
	// probe is START; a falling reading means the grounded lead is START.
	RisingMarksPositive SignConvention = "rising-positive"
	// RisingMarksGround inverts RisingMarksPositive.
	RisingMarksGround SignConvention = "rising-ground"
)

// ParseSignConvention accepts the two convention names; empty means the default.
func ParseSignConvention(s string) (SignConvention, error) {
	switch SignConvention(strings.ToLower(strings.TrimSpace(s))) {
	case "", RisingMarksPositive:
		return RisingMarksPositive, nil
	case RisingMarksGround:
		return RisingMarksGround, nil
	}
	return "", NewValidationError("convention", s, ErrInvalidAssignment)
}

// ColorScheme is a manufacturer's color code keyed by polarity role.
type ColorScheme struct {
	Manufacturer string         `json:"manufacturer" yaml:"manufacturer"`
	NorthStart   string         `json:"north_start" yaml:"north_start"`
	NorthFinish  string         `json:"north_finish" yaml:"north_finish"`
	SouthStart   string         `json:"south_start" yaml:"south_start"`
	SouthFinish  string         `json:"south_finish" yaml:"south_finish"`
	Bare         string         `json:"bare,omitempty" yaml:"bare"`
	Convention   SignConvention `json:"convention" yaml:"convention"`
}

// Coil returns the colors of the coil with polarity p.
func (s ColorScheme) Coil(p Polarity) CoilColors {
	if p == North {
		return CoilColors{Polarity: North, Start: s.NorthStart, Finish: s.NorthFinish}
	}
	return CoilColors{Polarity: South, Start: s.SouthStart, Finish: s.SouthFinish}
}

// Apply lays the scheme onto a pickup with the given orientation.
func (s ColorScheme) Apply(o Orientation) PickupColors {
	return PickupColors{Upper: s.Coil(o.Upper), Lower: s.Coil(o.Lower)}
}

// Preset is a named manufacturer scheme together with the orientation of
// both pickups as installed.
type Preset struct {
	Name   string      `json:"name"`
	Scheme ColorScheme `json:"scheme"`
	Neck   Orientation `json:"neck"`
	Bridge Orientation `json:"bridge"`
}

// Assignment returns the eight-lead color mapping described by the preset.
func (p Preset) Assignment() WireColorAssignment {
	return WireColorAssignment{
		Preset: p.Name,
		Neck:   p.Scheme.Apply(p.Neck),
		Bridge: p.Scheme.Apply(p.Bridge),
	}
}

var (
	bareKnuckle = ColorScheme{
		Manufacturer: "Bare Knuckle",
		NorthStart:   "Red",
		NorthFinish:  "White",
		SouthStart:   "Green",
		SouthFinish:  "Black",
		Bare:         "Bare",
		Convention:   RisingMarksPositive,
	}
	generic4 = ColorScheme{
		Manufacturer: "Generic",
		NorthStart:   "Red",
		NorthFinish:  "White",
		SouthStart:   "Green",
		SouthFinish:  "Black",
		Bare:         "Bare",
		Convention:   RisingMarksPositive,
	}
	// black starts the north coil, red the south coil
	blackRedStarts = ColorScheme{
		Manufacturer: "Generic",
		NorthStart:   "Black",
		NorthFinish:  "White",
		SouthStart:   "Red",
		SouthFinish:  "Green",
		Bare:         "Bare",
		Convention:   RisingMarksPositive,
	}

	northSouth = Orientation{Upper: North, Lower: South}
	southNorth = Orientation{Upper: South, Lower: North}
)

// BuiltinPresets are always present in a new registry.
var BuiltinPresets = []Preset{
	{Name: "Bare Knuckle", Scheme: bareKnuckle, Neck: northSouth, Bridge: southNorth},
	{Name: "Generic 4-conductor", Scheme: generic4, Neck: northSouth, Bridge: southNorth},
	{Name: "Configuration A", Scheme: blackRedStarts, Neck: northSouth, Bridge: southNorth},
	{Name: "Configuration B", Scheme: generic4, Neck: southNorth, Bridge: southNorth},
}

// Registry is the lookup table of known presets.
type Registry struct {
	mu      sync.RWMutex
	presets map[string]Preset
}

// NewRegistry returns a registry seeded with BuiltinPresets.
func NewRegistry() *Registry {
	r := &Registry{presets: make(map[string]Preset, len(BuiltinPresets))}
	for _, p := range BuiltinPresets {
		r.presets[presetKey(p.Name)] = p
	}
	return r
}

func presetKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register validates p and adds it, replacing any preset with the same name.
func (r *Registry) Register(p Preset) error {
	if strings.TrimSpace(p.Name) == "" {
		return NewValidationError("name", p.Name, ErrInvalidAssignment)
	}
	if p.Scheme.Convention == "" {
		p.Scheme.Convention = RisingMarksPositive
	}
	if err := ValidateAssignment(p.Assignment()); err != nil {
		return fmt.Errorf("preset %q: %w", p.Name, err)
	}
	r.mu.Lock()
	r.presets[presetKey(p.Name)] = p
	r.mu.Unlock()
	return nil
}

// Preset returns the named preset.
func (r *Registry) Preset(name string) (Preset, error) {
	r.mu.RLock()
	p, ok := r.presets[presetKey(name)]
	r.mu.RUnlock()
	if !ok {
		return Preset{}, NewValidationError("preset", name, ErrUnknownPreset)
	}
	return p, nil
}

// Lookup returns the color assignment of the named preset.
func (r *Registry) Lookup(name string) (WireColorAssignment, error) {
	p, err := r.Preset(name)
	if err != nil {
		return WireColorAssignment{}, err
	}
	return p.Assignment(), nil
}

// Names returns all preset names sorted alphabetically.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.presets))
	for _, p := range r.presets {
		names = append(names, p.Name)
	}
	sort.Strings(names)
	return names
}

// presetFile is the YAML layout of a custom preset file.
type presetFile struct {
	Presets []struct {
		Name       string      `yaml:"name"`
		Convention string      `yaml:"convention"`
		Colors     ColorScheme `yaml:"colors"`
		Neck       string      `yaml:"neck"`
		Bridge     string      `yaml:"bridge"`
	} `yaml:"presets"`
}

// ParsePresets decodes presets from YAML. Every preset is validated.
func ParsePresets(data []byte) ([]Preset, error) {
	var f presetFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("presets: decode: %w", err)
	}
	out := make([]Preset, 0, len(f.Presets))
	for i, raw := range f.Presets {
		conv, err := ParseSignConvention(raw.Convention)
		if err != nil {
			return nil, fmt.Errorf("presets[%d]: %w", i, err)
		}
		neck, err := ParseOrientation(raw.Neck)
		if err != nil {
			return nil, fmt.Errorf("presets[%d]: neck: %w", i, err)
		}
		bridge, err := ParseOrientation(raw.Bridge)
		if err != nil {
			return nil, fmt.Errorf("presets[%d]: bridge: %w", i, err)
		}
		p := Preset{Name: strings.TrimSpace(raw.Name), Scheme: raw.Colors, Neck: neck, Bridge: bridge}
		p.Scheme.Convention = conv
		if p.Name == "" {
			return nil, fmt.Errorf("presets[%d]: %w", i, NewValidationError("name", "", ErrInvalidAssignment))
		}
		if err := ValidateAssignment(p.Assignment()); err != nil {
			return nil, fmt.Errorf("presets[%d] %q: %w", i, p.Name, err)
		}
		out = append(out, p)
	}
	return out, nil
}

// LoadPresets reads a YAML preset file and registers every preset in it.
func (r *Registry) LoadPresets(path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("presets: read %s: %w", path, err)
	}
	presets, err := ParsePresets(data)
	if err != nil {
		return 0, err
	}
	for _, p := range presets {
		if err := r.Register(p); err != nil {
			return 0, err
		}
	}
	return len(presets), nil
}

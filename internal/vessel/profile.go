package vessel

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/watchkeeper/internal/safety"
)

//go:embed profiles/cabin_cruiser.yaml
var defaultProfileYAML []byte

// Profile is a vessel's device and scene catalogue.
type Profile struct {
	ID      string   `yaml:"id"`
	Name    string   `yaml:"name"`
	Devices []Device `yaml:"devices"`
	Scenes  []Scene  `yaml:"scenes"`

	devices map[string]int
	scenes  map[string]int
}

// Device is one entry in a profile. AIControl defaults to none.
type Device struct {
	ID        string           `yaml:"id"`
	Name      string           `yaml:"name"`
	Type      string           `yaml:"type"`
	Zone      string           `yaml:"zone"`
	AIControl safety.AIControl `yaml:"ai_control"`
}

// Scene is a named preset the vessel applies on request.
type Scene struct {
	ID        string           `yaml:"id"`
	Name      string           `yaml:"name"`
	AIControl safety.AIControl `yaml:"ai_control"`
}

// DefaultProfile returns the built-in cabin cruiser profile.
func DefaultProfile() (*Profile, error) {
	return ParseProfile(defaultProfileYAML)
}

// LoadProfile reads a YAML profile from path.
func LoadProfile(path string) (*Profile, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("reading profile %s: %w", path, err)
	}
	p, err := ParseProfile(data)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}
	return p, nil
}

// ResolveProfile loads path, or the default profile when path is empty.
func ResolveProfile(path string) (*Profile, error) {
	if path == "" {
		return DefaultProfile()
	}
	return LoadProfile(path)
}

// ParseProfile decodes and validates a YAML profile.
func ParseProfile(data []byte) (*Profile, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidProfile, err)
	}
	if err := p.index(); err != nil {
		return nil, err
	}
	return &p, nil
}

// index validates IDs and builds the lookup tables.
func (p *Profile) index() error {
	var errs []string
	if p.ID == "" {
		errs = append(errs, "id is required")
	}
	if len(p.Devices) == 0 {
		errs = append(errs, "at least one device is required")
	}

	p.devices = make(map[string]int, len(p.Devices))
	for i, d := range p.Devices {
		switch {
		case d.ID == "":
			errs = append(errs, fmt.Sprintf("devices[%d]: id is required", i))
		case p.hasDevice(d.ID):
			errs = append(errs, fmt.Sprintf("devices[%d]: duplicate id %q", i, d.ID))
		default:
			p.devices[d.ID] = i
		}
	}

	p.scenes = make(map[string]int, len(p.Scenes))
	for i, s := range p.Scenes {
		if s.ID == "" {
			errs = append(errs, fmt.Sprintf("scenes[%d]: id is required", i))
			continue
		}
		if _, dup := p.scenes[s.ID]; dup {
			errs = append(errs, fmt.Sprintf("scenes[%d]: duplicate id %q", i, s.ID))
			continue
		}
		p.scenes[s.ID] = i
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidProfile, strings.Join(errs, "; "))
	}
	return nil
}

func (p *Profile) hasDevice(id string) bool {
	_, ok := p.devices[id]
	return ok
}

// Device returns the device with the given ID.
func (p *Profile) Device(id string) (Device, bool) {
	i, ok := p.devices[id]
	if !ok {
		return Device{}, false
	}
	return p.Devices[i], true
}

// Scene returns the scene with the given ID.
func (p *Profile) Scene(id string) (Scene, bool) {
	i, ok := p.scenes[id]
	if !ok {
		return Scene{}, false
	}
	return p.Scenes[i], true
}

// Require reports the device IDs in ids the profile does not define.
func (p *Profile) Require(ids ...string) error {
	var missing []string
	for _, id := range ids {
		if !p.hasDevice(id) {
			missing = append(missing, id)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: profile %s lacks %s", ErrUnknownDevice, p.ID, strings.Join(missing, ", "))
	}
	return nil
}

package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/paulmach/orb"
	"gopkg.in/yaml.v3"

	"transitscan/internal/csa"
	"transitscan/internal/journey"
	"transitscan/internal/othermode"
)

// ProfileConfig describes a routing profile in YAML.
//
//	transferSeconds: 180
//	maxTransfers: 4
//	walk:
//	  maxDistance: 500
//	  speed: 1.4
//	  cacheSize: 10000
//	zones:
//	  - name: station
//	    minLat: 51.034
//	    minLon: 3.707
//	    maxLat: 51.038
//	    maxLon: 3.713
//	    maxDistance: 800
//	    speed: 1.2
type ProfileConfig struct {
	TransferSeconds uint32       `yaml:"transferSeconds" validate:"lte=3600"`
	MaxTransfers    *uint        `yaml:"maxTransfers" validate:"omitempty,lte=20"`
	Walk            WalkConfig   `yaml:"walk"`
	Zones           []ZoneConfig `yaml:"zones" validate:"dive"`
}

type WalkConfig struct {
	Disabled    bool    `yaml:"disabled"`
	MaxDistance float64 `yaml:"maxDistance" validate:"gte=0,lte=5000"`
	Speed       float64 `yaml:"speed" validate:"gte=0,lte=10"`
	CacheSize   int     `yaml:"cacheSize" validate:"gte=0"`
}

// ZoneConfig uses its own walking parameters for stop pairs inside a box.
type ZoneConfig struct {
	Name        string  `yaml:"name" validate:"required"`
	MinLat      float64 `yaml:"minLat" validate:"latitude"`
	MinLon      float64 `yaml:"minLon" validate:"longitude"`
	MaxLat      float64 `yaml:"maxLat" validate:"latitude,gtfield=MinLat"`
	MaxLon      float64 `yaml:"maxLon" validate:"longitude,gtfield=MinLon"`
	MaxDistance float64 `yaml:"maxDistance" validate:"gt=0,lte=5000"`
	Speed       float64 `yaml:"speed" validate:"gt=0,lte=10"`
}

// DefaultProfileConfig matches csa.DefaultProfile.
func DefaultProfileConfig() ProfileConfig {
	return ProfileConfig{
		TransferSeconds: othermode.DefaultTransferSeconds,
		Walk: WalkConfig{
			MaxDistance: othermode.DefaultMaxWalkMeters,
			Speed:       othermode.DefaultWalkSpeed,
			CacheSize:   othermode.DefaultCacheSize,
		},
	}
}

// LoadProfile reads and validates a profile file. Fields missing from the
// file keep their defaults. An empty path returns the defaults.
func LoadProfile(path string) (ProfileConfig, error) {
	cfg := DefaultProfileConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read profile: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse profile %s: %w", path, err)
	}
	if err := validator.New().Struct(cfg); err != nil {
		return cfg, fmt.Errorf("validate profile %s: %w", path, err)
	}
	return cfg, nil
}

// Build turns the configuration into a routing profile.
func (c ProfileConfig) Build() *csa.Profile[journey.TransferMetric] {
	p := csa.DefaultProfile()
	p.InternalTransfer = othermode.NewInternalTransfer(c.TransferSeconds)

	if c.Walk.Disabled {
		p.Walks = nil
	} else {
		var walks othermode.Generator = othermode.NewCrowsFlight(c.Walk.MaxDistance, c.Walk.Speed)
		if len(c.Zones) > 0 {
			zones := make([]othermode.Zone, len(c.Zones))
			for i, z := range c.Zones {
				zones[i] = othermode.Zone{
					Bound:     orb.Bound{Min: orb.Point{z.MinLon, z.MinLat}, Max: orb.Point{z.MaxLon, z.MaxLat}},
					Generator: othermode.NewCrowsFlight(z.MaxDistance, z.Speed),
				}
			}
			walks = othermode.NewZoned(walks, zones...)
		}
		if c.Walk.CacheSize > 0 {
			walks = othermode.NewCacher(walks, c.Walk.CacheSize)
		}
		p.Walks = walks
	}

	if c.MaxTransfers != nil {
		p.JourneyFilter = journey.MaxTransfers(*c.MaxTransfers)
	}
	return p
}

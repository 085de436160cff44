package services

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EnginePolicy carries the tunable rules of bracket progression. Loaded from
// the engine config file at startup; every service receives the same value.
type EnginePolicy struct {
	// CheckInDuration is how long before its scheduled time a match opens
	// for check-in, and therefore the length of the check-in window.
	CheckInDuration time.Duration

	// AutoConfirmTimeout is how long a lone result submission waits for the
	// opposing side before it is confirmed automatically.
	AutoConfirmTimeout time.Duration

	// GenerationLeaseTTL bounds how long a crashed generation run can hold
	// the tournament lock.
	GenerationLeaseTTL time.Duration

	// GrandFinalReset replays the grand final when the losers-bracket
	// finalist wins game one. There is no silent default: the config file
	// states it explicitly.
	GrandFinalReset bool

	// ThirdPlaceMatch adds a third-place match to single elimination.
	ThirdPlaceMatch bool

	// SwissRounds overrides the swiss round count (0 derives from the
	// field size).
	SwissRounds int

	// RoundRobinLegs is 1 or 2.
	RoundRobinLegs int

	// GroupCount is the number of group-stage groups (0 picks a default).
	GroupCount int
}

// DefaultEnginePolicy mirrors the documented defaults of engine.yaml.
func DefaultEnginePolicy() EnginePolicy {
	return EnginePolicy{
		CheckInDuration:    30 * time.Minute,
		AutoConfirmTimeout: 15 * time.Minute,
		GenerationLeaseTTL: time.Minute,
		GrandFinalReset:    true,
		RoundRobinLegs:     1,
	}
}

// policyFile is the YAML shape of engine.yaml. Durations are whole seconds.
type policyFile struct {
	CheckInDurationSeconds    *int  `yaml:"check_in_duration_seconds"`
	AutoConfirmTimeoutSeconds *int  `yaml:"auto_confirm_timeout_seconds"`
	GenerationLeaseTTLSeconds *int  `yaml:"generation_lease_ttl_seconds"`
	GrandFinalReset           *bool `yaml:"grand_final_reset"`
	ThirdPlaceMatch           *bool `yaml:"third_place_match"`
	SwissRounds               *int  `yaml:"swiss_rounds"`
	RoundRobinLegs            *int  `yaml:"round_robin_legs"`
	GroupCount                *int  `yaml:"group_count"`
}

// LoadEnginePolicy reads engine.yaml from path, filling anything omitted
// from the defaults. A missing file is not an error: the defaults apply.
func LoadEnginePolicy(path string) (EnginePolicy, error) {
	policy := DefaultEnginePolicy()
	if path == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return policy, nil
		}
		return policy, fmt.Errorf("failed to read engine policy file %s: %w", path, err)
	}

	var file policyFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return policy, fmt.Errorf("failed to parse engine policy file %s: %w", path, err)
	}

	if file.CheckInDurationSeconds != nil {
		policy.CheckInDuration = time.Duration(*file.CheckInDurationSeconds) * time.Second
	}
	if file.AutoConfirmTimeoutSeconds != nil {
		policy.AutoConfirmTimeout = time.Duration(*file.AutoConfirmTimeoutSeconds) * time.Second
	}
	if file.GenerationLeaseTTLSeconds != nil {
		policy.GenerationLeaseTTL = time.Duration(*file.GenerationLeaseTTLSeconds) * time.Second
	}
	if file.GrandFinalReset != nil {
		policy.GrandFinalReset = *file.GrandFinalReset
	}
	if file.ThirdPlaceMatch != nil {
		policy.ThirdPlaceMatch = *file.ThirdPlaceMatch
	}
	if file.SwissRounds != nil {
		policy.SwissRounds = *file.SwissRounds
	}
	if file.RoundRobinLegs != nil {
		policy.RoundRobinLegs = *file.RoundRobinLegs
	}
	if file.GroupCount != nil {
		policy.GroupCount = *file.GroupCount
	}

	if policy.RoundRobinLegs < 1 || policy.RoundRobinLegs > 2 {
		return policy, fmt.Errorf("round_robin_legs must be 1 or 2, got %d", policy.RoundRobinLegs)
	}
	return policy, nil
}

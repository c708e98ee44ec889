// Package seed loads a YAML routing table so a fresh install starts with
// working capabilities and plans. Existing rows are never touched; admin
// edits always win over the seed file.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/veriport/veriport/internal/directory"
)

// File is the top-level YAML document.
type File struct {
	Capabilities []Capability `yaml:"capabilities"`
	Plans        []Plan       `yaml:"plans"`
}

// Capability describes one routing table entry.
type Capability struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Tier        string `yaml:"tier"`
	Adapter     string `yaml:"adapter"`
	Credential  string `yaml:"credential"`
	DefaultCost int64  `yaml:"default_cost"`
}

// Plan describes a starter rate plan and the capabilities it enables.
type Plan struct {
	Name            string           `yaml:"name"`
	UserType        string           `yaml:"user_type"`
	MonthlyFee      float64          `yaml:"monthly_fee"`
	DefaultCredits  int64            `yaml:"default_credits"`
	RenewalRequired bool             `yaml:"renewal_required"`
	TopupAllowed    bool             `yaml:"topup_allowed"`
	Capabilities    []PlanCapability `yaml:"capabilities"`
}

// PlanCapability enables one capability on a plan with an optional cost override.
type PlanCapability struct {
	Key        string `yaml:"key"`
	CreditCost int64  `yaml:"credit_cost"`
}

// Load parses the seed file at path.
func Load(path string) (*File, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}
	var f File
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, c := range f.Capabilities {
		if c.Key == "" {
			return nil, fmt.Errorf("capability %d: key required", i)
		}
		if c.Adapter == "" {
			return nil, fmt.Errorf("capability %q: adapter required", c.Key)
		}
	}
	for i, p := range f.Plans {
		if p.Name == "" {
			return nil, fmt.Errorf("plan %d: name required", i)
		}
	}
	return &f, nil
}

// Apply creates the capabilities and plans that do not exist yet. Plan
// capability rows are only written for plans created by this call.
func Apply(ctx context.Context, store directory.Store, f *File, logger *log.Logger) error {
	if logger == nil {
		logger = log.Default()
	}

	capsByKey := make(map[string]int64)
	for _, c := range f.Capabilities {
		existing, err := store.GetCapabilityByKey(ctx, c.Key)
		if err == nil {
			capsByKey[c.Key] = existing.ID
			continue
		}
		if !errors.Is(err, directory.ErrNotFound) {
			return fmt.Errorf("check capability %q: %w", c.Key, err)
		}
		created, err := store.CreateCapability(ctx, directory.Capability{
			Key:         c.Key,
			Name:        c.Name,
			Category:    c.Category,
			Tier:        directory.Tier(c.Tier),
			Adapter:     c.Adapter,
			Credential:  c.Credential,
			DefaultCost: c.DefaultCost,
		})
		if err != nil {
			return fmt.Errorf("seed capability %q: %w", c.Key, err)
		}
		capsByKey[c.Key] = created.ID
		logger.Printf("seeded capability %s (adapter %s)", c.Key, c.Adapter)
	}

	existingPlans, err := store.ListPlans(ctx)
	if err != nil {
		return fmt.Errorf("list plans: %w", err)
	}
	planNames := make(map[string]bool, len(existingPlans))
	for _, p := range existingPlans {
		planNames[p.Name] = true
	}

	for _, p := range f.Plans {
		if planNames[p.Name] {
			continue
		}
		created, err := store.CreatePlan(ctx, directory.RatePlan{
			Name:            p.Name,
			UserType:        p.UserType,
			MonthlyFee:      p.MonthlyFee,
			DefaultCredits:  p.DefaultCredits,
			RenewalRequired: p.RenewalRequired,
			TopupAllowed:    p.TopupAllowed,
		})
		if err != nil {
			return fmt.Errorf("seed plan %q: %w", p.Name, err)
		}
		for _, pc := range p.Capabilities {
			capID, ok := capsByKey[pc.Key]
			if !ok {
				existing, err := store.GetCapabilityByKey(ctx, pc.Key)
				if err != nil {
					return fmt.Errorf("plan %q references unknown capability %q", p.Name, pc.Key)
				}
				capID = existing.ID
			}
			if err := store.SetPlanCapability(ctx, directory.PlanCapability{
				PlanID:       created.ID,
				CapabilityID: capID,
				Enabled:      true,
				CreditCost:   pc.CreditCost,
			}); err != nil {
				return fmt.Errorf("seed plan %q capability %q: %w", p.Name, pc.Key, err)
			}
		}
		logger.Printf("seeded plan %s (%d capabilities)", p.Name, len(p.Capabilities))
	}
	return nil
}

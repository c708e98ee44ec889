package httpserver

import (
	"github.com/veriport/veriport/internal/directory"
)

func toOfficerPayload(o *directory.Officer) map[string]any {
	if o == nil {
		return nil
	}
	return map[string]any{
		"id":                o.ID,
		"name":              o.Name,
		"email":             o.Email,
		"mobile":            o.Mobile,
		"role":              o.Role,
		"status":            o.Status,
		"plan_id":           o.PlanID,
		"credits_remaining": o.CreditsRemaining,
		"total_credits":     o.TotalCredits,
		"created_at":        o.CreatedAt,
		"updated_at":        o.UpdatedAt,
	}
}

func toPlanPayload(p *directory.RatePlan) map[string]any {
	if p == nil {
		return nil
	}
	return map[string]any{
		"id":               p.ID,
		"name":             p.Name,
		"user_type":        p.UserType,
		"monthly_fee":      p.MonthlyFee,
		"default_credits":  p.DefaultCredits,
		"renewal_required": p.RenewalRequired,
		"topup_allowed":    p.TopupAllowed,
		"status":           p.Status,
		"created_at":       p.CreatedAt,
		"updated_at":       p.UpdatedAt,
	}
}

// toCapabilityPayload never includes the vendor credential.
func toCapabilityPayload(c *directory.Capability) map[string]any {
	if c == nil {
		return nil
	}
	return map[string]any{
		"id":           c.ID,
		"key":          c.Key,
		"name":         c.Name,
		"category":     c.Category,
		"tier":         c.Tier,
		"adapter":      c.Adapter,
		"key_status":   c.KeyStatus,
		"default_cost": c.DefaultCost,
		"created_at":   c.CreatedAt,
		"updated_at":   c.UpdatedAt,
	}
}

func toEnabledCapabilityPayload(c directory.EnabledCapability) map[string]any {
	cost := c.CreditCost
	if cost <= 0 {
		cost = c.DefaultCost
	}
	return map[string]any{
		"key":         c.Key,
		"name":        c.Name,
		"category":    c.Category,
		"tier":        c.Tier,
		"credit_cost": cost,
	}
}

func toPlanCapabilityPayload(pc directory.PlanCapability) map[string]any {
	return map[string]any{
		"plan_id":       pc.PlanID,
		"capability_id": pc.CapabilityID,
		"enabled":       pc.Enabled,
		"credit_cost":   pc.CreditCost,
		"buy_price":     pc.BuyPrice,
		"sell_price":    pc.SellPrice,
	}
}

func toRegistrationPayload(reg *directory.Registration) map[string]any {
	if reg == nil {
		return nil
	}
	return map[string]any{
		"id":          reg.ID,
		"reference":   reg.Reference,
		"name":        reg.Name,
		"email":       reg.Email,
		"mobile":      reg.Mobile,
		"remarks":     reg.Remarks,
		"status":      reg.Status,
		"reason":      reg.Reason,
		"reviewed_by": reg.ReviewedBy,
		"created_at":  reg.CreatedAt,
		"updated_at":  reg.UpdatedAt,
	}
}

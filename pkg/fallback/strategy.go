package fallback

import (
	"sort"

	"helmsman-ai/relay/pkg/config"
	"helmsman-ai/relay/pkg/providers"
)

// tryOrder computes the provider names to attempt for one request, in
// order, per the configured strategy. Disabled providers are excluded;
// the result is capped at MaxFallbackAttempts when that is set.
//
// Callers hold no lock; the method takes the manager's own.
func (m *Manager) tryOrder(req *providers.Request) []string {
	m.mu.Lock()
	strategy := m.routing.Strategy
	regs := make([]*registered, 0, len(m.providers))
	for _, reg := range m.providers {
		if reg.policy.Enabled {
			regs = append(regs, reg)
		}
	}
	m.mu.Unlock()

	// Base order: ascending priority rank, 1 is the primary.
	sort.SliceStable(regs, func(i, j int) bool {
		return regs[i].policy.Priority < regs[j].policy.Priority
	})

	switch strategy {
	case config.StrategyFailFast:
		if len(regs) > 1 {
			regs = regs[:1]
		}

	case config.StrategyRetryPrimary:
		// Fixed priority order, nothing to reorder.

	case config.StrategyRoundRobin:
		if n := len(regs); n > 1 {
			offset := int(m.totalRequests.Load()) % n
			rotated := make([]*registered, 0, n)
			rotated = append(rotated, regs[offset:]...)
			rotated = append(rotated, regs[:offset]...)
			regs = rotated
		}

	case config.StrategyCostOptimized:
		sort.SliceStable(regs, func(i, j int) bool {
			return m.expectedCost(regs[i], req) < m.expectedCost(regs[j], req)
		})

	default: // smart-fallback
		sort.SliceStable(regs, func(i, j int) bool {
			fi := regs[i].policy.CostPer1KTokens == 0
			fj := regs[j].policy.CostPer1KTokens == 0
			if fi != fj {
				return fi
			}
			return regs[i].policy.Priority < regs[j].policy.Priority
		})
	}

	if max := m.routing.MaxFallbackAttempts; max > 0 && len(regs) > max {
		regs = regs[:max]
	}

	names := make([]string, len(regs))
	for i, reg := range regs {
		names[i] = reg.policy.Name
	}
	return names
}

// expectedCost is the per-request cost used for cost-optimized ordering:
// the provider's average realized cost when it has history, otherwise its
// own local estimate for this request.
func (m *Manager) expectedCost(reg *registered, req *providers.Request) float64 {
	if m.costs != nil {
		if avg, ok := m.costs.AvgCostPerRequest(reg.policy.Name, m.costPeriod); ok {
			return avg
		}
	}
	return reg.provider.EstimateCost(req)
}

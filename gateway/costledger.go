package gateway

import (
	"sync"
	"time"

	"github.com/relaygate/gateway/model"
)

// CostLedger tracks a running per-tenant-per-day cost total and
// compares it against advisory daily/monthly budgets from
// cost.budgets.* — advisory only, affecting alerts rather than
// admission. It never blocks a request — Add only ever returns a
// warning string to fold into the response's warnings.
type CostLedger struct {
	dailyBudget   float64
	monthlyBudget float64

	mu      sync.Mutex
	daily   map[string]model.CostLedgerEntry // tenantKey -> today's entry
	monthly map[string]monthlyEntry          // tenantKey -> this month's running total
}

type monthlyEntry struct {
	month string // YYYY-MM
	total float64
}

// NewCostLedger builds a ledger advising against dailyBudget/
// monthlyBudget (either may be 0 to disable that check).
func NewCostLedger(dailyBudget, monthlyBudget float64) *CostLedger {
	return &CostLedger{
		dailyBudget:   dailyBudget,
		monthlyBudget: monthlyBudget,
		daily:         make(map[string]model.CostLedgerEntry),
		monthly:       make(map[string]monthlyEntry),
	}
}

// Add records cost against tenantKey and returns an advisory warning
// when the running total meets or exceeds a configured budget.
func (l *CostLedger) Add(tenantKey string, cost float64) (warning string) {
	if tenantKey == "" {
		tenantKey = "default"
	}
	today := time.Now().UTC().Format("2006-01-02")

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.daily[tenantKey]
	if entry.Date != today {
		entry = model.CostLedgerEntry{TenantKey: tenantKey, Date: today}
	}
	entry.TotalCostUSD += cost
	l.daily[tenantKey] = entry

	month := today[:7]
	me := l.monthly[tenantKey]
	if me.month != month {
		me = monthlyEntry{month: month}
	}
	me.total += cost
	l.monthly[tenantKey] = me

	if l.dailyBudget > 0 && entry.TotalCostUSD >= l.dailyBudget {
		return "daily cost budget exceeded for tenant " + tenantKey
	}
	if l.monthlyBudget > 0 && me.total >= l.monthlyBudget {
		return "monthly cost budget exceeded for tenant " + tenantKey
	}
	return ""
}

// DailyTotal returns tenantKey's running total for today, for tests
// and dashboards.
func (l *CostLedger) DailyTotal(tenantKey string) float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.daily[tenantKey].TotalCostUSD
}

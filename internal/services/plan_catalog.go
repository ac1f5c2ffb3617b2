package services

import (
	_ "embed"
	"fmt"
	"math"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/one39/enrollment/internal/domain/plan"
)

//go:embed data/plans.yaml
var defaultPriceList []byte

// semiMonthlyMarker in a plan id selects 1st/15th billing
const semiMonthlyMarker = "semi"

type priceListFile struct {
	Plans []priceListEntry `yaml:"plans"`
}

type priceListEntry struct {
	ID       string  `yaml:"id"`
	Name     string  `yaml:"name"`
	Price    float64 `yaml:"price"`
	Interval string  `yaml:"interval"`
}

// PlanCatalog implements plan.Catalog over a table built once at startup
type PlanCatalog struct {
	plans map[string]plan.Definition
	ids   []string
}

// NewPlanCatalog builds the catalog from the embedded price list
func NewPlanCatalog() (*PlanCatalog, error) {
	return ParsePlanCatalog(defaultPriceList)
}

// ParsePlanCatalog builds a catalog from a YAML price list
func ParsePlanCatalog(raw []byte) (*PlanCatalog, error) {
	var file priceListFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("failed to parse price list: %w", err)
	}

	c := &PlanCatalog{plans: make(map[string]plan.Definition, len(file.Plans))}
	for _, entry := range file.Plans {
		if entry.ID == "" {
			return nil, fmt.Errorf("price list entry %q has no id", entry.Name)
		}
		if _, dup := c.plans[entry.ID]; dup {
			return nil, fmt.Errorf("duplicate plan id %q", entry.ID)
		}
		if entry.Price <= 0 {
			return nil, fmt.Errorf("plan %q has non-positive price", entry.ID)
		}

		c.plans[entry.ID] = plan.Definition{
			ID:         entry.ID,
			Label:      entry.Name,
			UnitAmount: int64(math.Round(entry.Price * 100)),
			Shape:      classify(entry.ID, entry.Interval),
		}
		c.ids = append(c.ids, entry.ID)
	}
	sort.Strings(c.ids)

	return c, nil
}

func classify(id, interval string) plan.BillingShape {
	switch {
	case strings.Contains(id, semiMonthlyMarker):
		return plan.ShapeSemiMonthly
	case interval == "":
		return plan.ShapeOneTime
	default:
		return plan.ShapeMonthly
	}
}

// Resolve returns the plan definition for id
func (c *PlanCatalog) Resolve(id string) (plan.Definition, error) {
	def, ok := c.plans[id]
	if !ok {
		return plan.Definition{}, fmt.Errorf("%w: %q", plan.ErrPlanNotFound, id)
	}
	return def, nil
}

// List returns every plan ordered by id
func (c *PlanCatalog) List() []plan.Definition {
	out := make([]plan.Definition, 0, len(c.ids))
	for _, id := range c.ids {
		out = append(out, c.plans[id])
	}
	return out
}

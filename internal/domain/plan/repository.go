package plan

// Catalog resolves plan ids against the price list loaded at startup
type Catalog interface {
	// Resolve returns the definition for id or ErrPlanNotFound
	Resolve(id string) (Definition, error)

	// List returns every definition ordered by id
	List() []Definition
}

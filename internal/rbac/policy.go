package rbac

// Clause grants every catalog permission whose category is in Categories and
// whose action is in Actions. Both filters run against names that already
// exist in the catalog; a clause never invents permission names.
type Clause struct {
	Categories []string
	Actions    []string
}

// Policy declares what a role should be granted. Clauses union together;
// EveryAction grants the listed actions across all categories; Everything
// assigns the full catalog.
type Policy struct {
	Clauses     []Clause
	EveryAction []string
	Everything  bool
}

// DefaultPolicies is the declarative grant table applied by the resolver.
// Declaring a category that is not yet seeded in the catalog is harmless; the
// filter simply yields nothing for it.
var DefaultPolicies = map[Role]Policy{
	RoleAdmin: {
		Everything: true,
	},
	RoleGeneralDirector: {
		EveryAction: []string{"read", "export"},
		Clauses: []Clause{
			{Categories: []string{"leaves", "purchases", "invoices"}, Actions: []string{"approve"}},
		},
	},
	RoleServiceManager: {
		Clauses: []Clause{
			{Categories: []string{"missions", "interventions", "equipment", "clients"}, Actions: []string{"read", "create", "update"}},
			{Categories: []string{"leaves"}, Actions: []string{"read", "approve"}},
			{Categories: []string{"employees", "reports"}, Actions: []string{"read"}},
		},
	},
	RoleEmployee: {
		Clauses: []Clause{
			{Categories: []string{"missions", "interventions", "equipment"}, Actions: []string{"read"}},
			{Categories: []string{"leaves"}, Actions: []string{"read", "create"}},
		},
	},
	RoleAccountant: {
		Clauses: []Clause{
			{Categories: []string{"invoices", "quotes", "contracts", "payroll"}, Actions: []string{"read", "create", "update", "export"}},
			{Categories: []string{"clients", "reports"}, Actions: []string{"read"}},
		},
	},
	RolePurchasingManager: {
		Clauses: []Clause{
			{Categories: []string{"purchases", "suppliers", "equipment"}, Actions: []string{"read", "create", "update"}},
			{Categories: []string{"purchases"}, Actions: []string{"approve"}},
			{Categories: []string{"reports"}, Actions: []string{"read"}},
		},
	},
}

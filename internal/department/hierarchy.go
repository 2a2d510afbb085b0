// Package department holds the fixed department visibility table.
package department

// hierarchy lists, per department, every department whose staff it may see.
// Each entry already contains the full visible set, itself included.
var hierarchy = map[string][]string{
	"Managing Director": {
		"Managing Director", "Sales Manager", "Account Managers",
		"Finance Manager", "Finance Executive", "Operations Manager",
		"Operations Executive", "Consultant", "IT Team",
	},
	"Sales Manager":        {"Sales Manager", "Account Managers"},
	"Account Managers":     {"Account Managers"},
	"Finance Manager":      {"Finance Manager", "Finance Executive"},
	"Finance Executive":    {"Finance Executive"},
	"Operations Manager":   {"Operations Manager", "Operations Executive", "Consultant"},
	"Operations Executive": {"Operations Executive"},
	"Consultant":           {"Consultant"},
	"IT Team":              {"IT Team"},
}

// Visible returns the departments dept may see. Unknown departments see only
// themselves. The returned slice is a copy.
func Visible(dept string) []string {
	visible, ok := hierarchy[dept]
	if !ok {
		return []string{dept}
	}
	out := make([]string, len(visible))
	copy(out, visible)
	return out
}

// names returns every department in the table, in no particular order.
func names() []string {
	names := make([]string, 0, len(hierarchy))
	for name := range hierarchy {
		names = append(names, name)
	}
	return names
}

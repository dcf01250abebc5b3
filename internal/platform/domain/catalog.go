package domain

import (
	"slices"
	"strings"
)

// catalog is the fixed registry of systems. Order is the display order.
var catalog = []string{
	"school", "college", "university", "library", "hostel", "transport",
	"hospital", "clinic", "pharmacy", "patient-record", "doctor-appointment",
	"inventory", "payroll", "project", "crm", "erp", "accounting", "budget",
	"loan", "banking", "ecommerce-order", "warehouse", "hotel", "restaurant",
	"tourism", "hr", "attendance", "performance", "exam", "finance",
	"insurance", "gov-records", "public-transport-ticket", "electric-bill",
	"water-supply", "citizen-complaint", "police-case", "court-scheduling",
	"disaster-response", "construction", "real-estate", "manufacturing",
	"quality-control", "factory-maintenance", "supply-chain", "logistics",
	"shipping",
}

var catalogSet = func() map[string]struct{} {
	m := make(map[string]struct{}, len(catalog))
	for _, s := range catalog {
		m[s] = struct{}{}
	}
	return m
}()

// Catalog returns a copy of the system registry in display order.
func Catalog() []string {
	return slices.Clone(catalog)
}

// InCatalog reports whether system is a registered system.
func InCatalog(system string) bool {
	_, ok := catalogSet[system]
	return ok
}

// VisibleSystems is the catalog filtered to the user's entitlements, or
// the whole catalog for admins.
func VisibleSystems(u *User) []string {
	if u.Role.IsAdmin() {
		return Catalog()
	}
	out := make([]string, 0, len(u.Systems))
	for _, s := range catalog {
		if u.HasSystem(s) {
			out = append(out, s)
		}
	}
	return out
}

// NormalizeSystems trims, drops empties and de-duplicates, returning a
// sorted set.
func NormalizeSystems(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	slices.Sort(out)
	return slices.Compact(out)
}

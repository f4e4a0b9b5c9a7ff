package reconcile

import (
	"fmt"
	"strings"
	"time"
)

// Category names the kind of tracked object.
type Category string

const (
	CategoryAlternateURL        Category = "AlternateUrl"
	CategoryApplicationPool     Category = "ApplicationPool"
	CategoryContentDatabase     Category = "ContentDatabase"
	CategoryDiagnosticsProvider Category = "DiagnosticsProvider"
	CategoryFarm                Category = "Farm"
	CategoryFeature             Category = "Feature"
	CategoryFeatureDefinition   Category = "FeatureDefinition"
	CategoryList                Category = "List"
	CategoryPolicy              Category = "Policy"
	CategoryPrefix              Category = "Prefix"
	CategoryServer              Category = "Server"
	CategoryServiceInstance     Category = "ServiceInstance"
	CategorySite                Category = "Site"
	CategoryUser                Category = "User"
	CategoryWeb                 Category = "Web"
	CategoryWebApplication      Category = "WebApplication"
	CategoryWebTemplate         Category = "WebTemplate"
	CategoryAuditSource         Category = "AuditSource"

	// CategoryError is used for emission only and is never cached.
	CategoryError Category = "Error"
)

var categories = []Category{
	CategoryAlternateURL,
	CategoryApplicationPool,
	CategoryContentDatabase,
	CategoryDiagnosticsProvider,
	CategoryFarm,
	CategoryFeature,
	CategoryFeatureDefinition,
	CategoryList,
	CategoryPolicy,
	CategoryPrefix,
	CategoryServer,
	CategoryServiceInstance,
	CategorySite,
	CategoryUser,
	CategoryWeb,
	CategoryWebApplication,
	CategoryWebTemplate,
	CategoryAuditSource,
}

// Categories returns every cacheable category.
func Categories() []Category {
	out := make([]Category, len(categories))
	copy(out, categories)
	return out
}

// ParseCategory returns the cacheable category named s.
func ParseCategory(s string) (Category, error) {
	for _, c := range categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}

// Cacheable reports whether records of this category may be stored.
func (c Category) Cacheable() bool {
	_, err := ParseCategory(string(c))
	return err == nil
}

// Separator joins a parent identifier and a local identifier.
const Separator = "#"

// ChildID returns the composite identifier of local under parent.
// An empty parent yields local unchanged.
func ChildID(parent, local string) string {
	if parent == "" {
		return local
	}
	return parent + Separator + local
}

// ParentOf returns the parent part of a composite identifier, or "" for a
// top-level identifier.
func ParentOf(id string) string {
	i := strings.LastIndex(id, Separator)
	if i < 0 {
		return ""
	}
	return id[:i]
}

// inScope reports whether id is a direct child of parent. An empty parent
// matches every top-level identifier.
func inScope(id, parent string) bool {
	if parent == "" {
		return !strings.Contains(id, Separator)
	}
	rest, ok := strings.CutPrefix(id, parent+Separator)
	return ok && rest != "" && !strings.Contains(rest, Separator)
}

// Record is one cached fact about a previously observed object.
type Record struct {
	Category    Category  `json:"category"`
	ID          string    `json:"id"`
	LastUpdated time.Time `json:"last_updated"`
	Digest      string    `json:"checksum"`
}

// Key returns the cache key of the record.
func (r Record) Key() string {
	return cacheKey(r.Category, r.ID)
}

func cacheKey(category Category, id string) string {
	return string(category) + Separator + id
}

func containsSeparator(s string) bool {
	return strings.Contains(s, Separator)
}

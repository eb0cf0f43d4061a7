package workspace

// Category groups generated documents into numbered directories.
type Category string

// Known categories.
const (
	CategoryGeneral     Category = "general"
	CategoryConcept     Category = "concept"
	CategoryIntegration Category = "integration"
	CategoryService     Category = "service"
	CategorySection     Category = "section"
)

// Categories lists every category accepted in a manifest.
var Categories = []Category{
	CategoryGeneral,
	CategoryConcept,
	CategoryIntegration,
	CategoryService,
	CategorySection,
}

// Dir returns the numbered directory name for the category.
func (c Category) Dir() string {
	switch c {
	case CategoryConcept:
		return "01-core-concepts"
	case CategoryIntegration, CategoryService:
		return "02-integrations"
	case CategorySection:
		return "03-sections"
	default:
		return "00-overview"
	}
}

// CategoryFromDir maps a numbered directory back to its category.
// Unknown directories map to general.
func CategoryFromDir(dir string) Category {
	switch dir {
	case "01-core-concepts":
		return CategoryConcept
	case "02-integrations":
		return CategoryIntegration
	case "03-sections":
		return CategorySection
	default:
		return CategoryGeneral
	}
}

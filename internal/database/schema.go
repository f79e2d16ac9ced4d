package database

// Collection names a persisted record collection.
type Collection string

const (
	CollectionRecipes Collection = "recipes"
	CollectionPlans   Collection = "plans"
)

// Index declares a queryable field of a collection.
// A MultiValue index matches any element of a list field.
type Index struct {
	Field      string
	Column     string
	Name       string // SQLite index name; empty for the primary key
	MultiValue bool
}

// Version is one step of the schema. Steps only ever add collections,
// fields and indexes.
type Version struct {
	Number      uint
	Description string
	Fields      map[Collection][]string
	Indexes     map[Collection][]Index
}

// Versions lists the schema in migration order. Number matches the
// migration file prefix under migrations/.
var Versions = []Version{
	{
		Number:      1,
		Description: "recipes",
		Fields: map[Collection][]string{
			CollectionRecipes: {"id", "title", "content", "tags", "image", "createdAt", "updatedAt"},
		},
		Indexes: map[Collection][]Index{
			CollectionRecipes: {
				{Field: "id", Column: "id"},
				{Field: "title", Column: "title", Name: "idx_recipes_title"},
				{Field: "tags", Column: "tag", Name: "idx_recipe_tags_tag", MultiValue: true},
				{Field: "createdAt", Column: "created_at", Name: "idx_recipes_created_at"},
				{Field: "updatedAt", Column: "updated_at", Name: "idx_recipes_updated_at"},
			},
		},
	},
	{
		Number:      2,
		Description: "week plans",
		Fields: map[Collection][]string{
			CollectionPlans: {"id", "weekStart", "days"},
		},
		Indexes: map[Collection][]Index{
			CollectionPlans: {
				{Field: "id", Column: "id"},
				{Field: "weekStart", Column: "week_start", Name: "idx_plans_week_start"},
			},
		},
	},
	{
		Number:      3,
		Description: "plan name and shopping list",
		Fields: map[Collection][]string{
			CollectionPlans: {"name", "shoppingList"},
		},
	},
	{
		Number:      4,
		Description: "recipe sync timestamp",
		Fields: map[Collection][]string{
			CollectionRecipes: {"syncedAt"},
		},
	},
	{
		Number:      5,
		Description: "ai execution metrics",
	},
}

// Latest returns the newest schema version.
func Latest() Version {
	return Versions[len(Versions)-1]
}

// Schema folds every version up to and including number into the
// effective fields and indexes per collection.
func Schema(number uint) (map[Collection][]string, map[Collection][]Index) {
	fields := make(map[Collection][]string)
	indexes := make(map[Collection][]Index)
	for _, v := range Versions {
		if v.Number > number {
			break
		}
		for c, f := range v.Fields {
			fields[c] = append(fields[c], f...)
		}
		for c, idx := range v.Indexes {
			indexes[c] = append(indexes[c], idx...)
		}
	}
	return fields, indexes
}

// Indexed looks up an indexed field of a collection in the latest schema.
func Indexed(c Collection, field string) (Index, bool) {
	_, indexes := Schema(Latest().Number)
	for _, idx := range indexes[c] {
		if idx.Field == field {
			return idx, true
		}
	}
	return Index{}, false
}

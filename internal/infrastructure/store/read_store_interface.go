package store

// CollectionVariants holds readmodel.VariantReadModel values keyed by variant code.
const CollectionVariants = "variants"

// ReadStoreInterface is the query side's view storage. Values are keyed by
// collection and id; each implementation decides which collections it keeps.
type ReadStoreInterface interface {
	Set(collection, id string, data any)
	Get(collection, id string) (any, bool)
	// GetAll returns a collection ordered by id.
	GetAll(collection string) []any
}

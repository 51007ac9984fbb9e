package memory

// SemanticStore holds general knowledge and facts. It is the plain
// layer contract with no reserved metadata beyond the common keys.
type SemanticStore struct {
	*LayerStore
}

// NewSemanticStore creates the semantic layer store.
func NewSemanticStore(backend Backend, embedder Embedder, config *StoreConfig) *SemanticStore {
	return &SemanticStore{LayerStore: NewLayerStore(LayerSemantic, backend, embedder, config)}
}

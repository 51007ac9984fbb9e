// Package memory implements a layered associative memory store for an
// AI agent: six layers (semantic, episodic, procedural, affective,
// identity, reflective), each persisted in its own vector index
// collection, plus a reflection synthesis engine that distills stored
// memories into higher-level insights via a completion capability.
//
// Architecture:
//   - Backend/Index: vector storage contract (chromem-go adapter under
//     index/chromem; swappable for a hosted store)
//   - Embedder: batch text-to-vector conversion (mock, OpenAI, ONNX,
//     ristretto-cached wrappers under embedder/)
//   - Completer: text generation (Anthropic and OpenAI under llm/)
//   - LayerStore: the shared store/retrieve/update/delete/stats
//     contract; per-layer stores add reserved-metadata semantics
//   - Reflector: samples candidates, prompts the completion
//     capability, parses the sectioned response and persists
//     reflections with full provenance
//
// All operations are synchronous; background work is dispatched via
// the jobs package. Concurrent writers to one record id race under
// last-write-wins; there are no transactions.
package memory

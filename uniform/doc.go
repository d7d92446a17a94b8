// Package uniform implements the deferred uniform-expression evaluation
// cache for material render proxies.
//
// A finalized shader map carries one ExpressionSet: small evaluatable nodes
// that each produce one parameter value (scalar, vector, texture) from a
// proxy's current parameter state. Evaluating the set fills a single packed
// buffer matching the set's declared memory layout, plus the dynamic texture
// stack allocations declared by the set.
//
// Evaluation is lazy and batched: parameter mutation only marks a proxy's
// cache stale and enqueues the proxy with the Evaluator; one drain pass per
// frame recomputes each dirty proxy at most once, regardless of how many
// mutations happened since the last drain.
//
// Everything in this package is confined to the consuming (rendering)
// context unless a method documents otherwise.
package uniform

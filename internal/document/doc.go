// Package document defines the immutable content+metadata records that flow
// through sitepipe pipelines.
//
// Documents are never mutated. Modules derive new documents through a
// Factory (normally reached through the engine's execution context), which
// layers new metadata over the old, shares content between clones and lets
// the engine track every document created during a pipeline run.
//
// Content is held by reference-counted providers. In-memory content needs no
// cleanup; content spilled to a temporary file is removed once the last
// document referencing it is released.
package document

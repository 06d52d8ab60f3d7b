// Package engine executes pipelines of modules over immutable documents.
//
// An Engine holds an ordered set of pipelines. Each run executes the pipelines
// in dependency order; within a pipeline every module receives the output of
// the previous one. Documents created during a pipeline run are tracked and
// released when the run completes, except for the pipeline's outputs which
// stay alive until the pipeline runs again or the engine is closed.
package engine

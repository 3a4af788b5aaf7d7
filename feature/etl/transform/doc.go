// Package transform applies ordered, pure dataset transformations.
//
// Each Transform maps Dataset to Dataset without touching the caller's input;
// the pipeline clones once up front and threads the clone through the steps.
// A failing step aborts the dataset with an error naming the step index and
// name, and nothing from earlier steps survives.
package transform

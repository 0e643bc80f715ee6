// Package model contains the in-memory representation of experiment
// documents and run records used by the gridrun engine.
//
// An experiment is typically loaded from the YAML hyper-parameter document
// that the external training program consumes. The `prior` and `schedule`
// sub-packages implement the scalar semantics of the semi-supervised fields
// (confidence-threshold distributions and loss-weight warmup ramps) so that
// documents can be validated and reported on without the trainer.
package model

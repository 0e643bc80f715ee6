// Package gridrun submits semi-supervised segmentation experiments to a
// grid-engine cluster (or a local process) and tracks them to completion.
// An experiment is a YAML document of training hyperparameters; the engine
// validates it, renders a scheduler job script around the external training
// entry point, submits it and follows the resulting job through queued,
// running and terminal states, publishing a typed event on every transition.
package gridrun

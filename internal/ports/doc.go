// Package ports defines the boundary interfaces between the data-access core
// and its collaborators, following the dependency inversion principle:
//
//   - Store is the outbound port a storage adapter implements (the seven
//     persistence primitives); called by the repository layer.
//   - HealthChecker/HealthRegistry are the health reporting ports used by
//     the readiness endpoint.
//
// Ports contain only interface definitions and the data types those
// interfaces exchange. All interfaces use context.Context for cancellation
// and return errors from the apperr taxonomy.
package ports

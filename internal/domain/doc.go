// Package domain contains the shared persistence envelope used across entity
// sub-packages. Entity-specific types live in sub-packages (domain/customer);
// filtering and pagination primitives live in domain/filter and domain/page.
// This root package holds the Entity audit/version envelope, the opaque
// identifier types, and the Record capability interface that concrete
// entities satisfy.
package domain

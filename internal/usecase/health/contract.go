package health

import "context"

// IndexChecker reports whether a built index is present.
type IndexChecker interface {
	Exists() bool
}

// ProviderChecker checks embedding/generation provider availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}

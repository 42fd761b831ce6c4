package health

import "context"

// DBPinger checks database connectivity.
type DBPinger interface {
	Ping(ctx context.Context) error
}

// CatalogPinger checks catalog availability.
type CatalogPinger interface {
	Ping(ctx context.Context) error
}

package postgres

// Postgres is the gorm-backed warehouse model implementation. Derived
// tables are written with full-partition replace inside one transaction:
// compute the next version fully, then atomically swap. Readers never
// observe a partially updated partition.
type Postgres struct{}

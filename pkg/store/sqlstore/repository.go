package sqlstore

// Repository aggregates all sqlstore repositories
type Repository struct {
	ds *Datastore

	Action       *ActionRepository
	ControlFlags *ControlFlagsRepository
	Lease        *LeaseRepository
	ExecutionLog *ExecutionLogRepository
	TickSummary  *TickSummaryRepository
}

// NewRepository creates a repository with all sub-repositories and migrates
// the schema.
func NewRepository(mysqlDSN, sqlitePath string) (*Repository, error) {
	ds, err := NewDatastore(mysqlDSN, sqlitePath)
	if err != nil {
		return nil, err
	}
	if err := ds.Migrate(); err != nil {
		return nil, err
	}

	return &Repository{
		ds:           ds,
		Action:       NewActionRepository(ds),
		ControlFlags: NewControlFlagsRepository(ds),
		Lease:        NewLeaseRepository(ds),
		ExecutionLog: NewExecutionLogRepository(ds),
		TickSummary:  NewTickSummaryRepository(ds),
	}, nil
}

// GetDatastore returns the underlying datastore for transaction support
func (r *Repository) GetDatastore() *Datastore {
	return r.ds
}

// Close closes the database connection
func (r *Repository) Close() error {
	return r.ds.Close()
}

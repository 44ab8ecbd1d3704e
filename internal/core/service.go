package core

import (
	"errors"
)

// DefaultBatchSize is the number of records written per store batch when no
// limit is configured. It matches the write limit of common document stores.
const DefaultBatchSize = 500

// Options configures a Service.
type Options struct {
	// BatchSize is the store-imposed maximum number of records per atomic batch.
	BatchSize int

	// RequireDepartment makes the department column mandatory.
	RequireDepartment bool

	// NamePrefix is the placeholder name template; defaults to DefaultNamePrefix.
	NamePrefix string
}

// Service is the entry point for every roster operation. It holds no
// per-request state; the store is the only shared resource.
type Service struct {
	store     Store
	validator *RowValidator
	resolver  IdentifierResolver
	batchSize int
}

// NewService creates a Service around an initialized store.
func NewService(store Store, opts Options) (*Service, error) {
	if store == nil {
		return nil, errors.New("core: store is required")
	}
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	if opts.NamePrefix == "" {
		opts.NamePrefix = DefaultNamePrefix
	}

	return &Service{
		store:     store,
		validator: NewRowValidator(opts.RequireDepartment),
		resolver:  IdentifierResolver{NamePrefix: opts.NamePrefix},
		batchSize: opts.BatchSize,
	}, nil
}

// RequiredFields returns the fields this service requires on every record.
func (s *Service) RequiredFields() []string {
	return s.validator.Required()
}

// BatchSize returns the configured store batch limit.
func (s *Service) BatchSize() int {
	return s.batchSize
}

// Store returns the backing store.
func (s *Service) Store() Store {
	return s.store
}

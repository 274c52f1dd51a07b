package config

import "sync"

// InMemoryPaymentRepository is a mutex-guarded in-process implementation,
// suitable for single-instance deployments and tests.
type InMemoryPaymentRepository struct {
	mu  sync.RWMutex
	cfg PaymentConfig
}

// NewInMemoryPaymentRepository seeds a repository with cfg.
func NewInMemoryPaymentRepository(cfg PaymentConfig) *InMemoryPaymentRepository {
	return &InMemoryPaymentRepository{cfg: cfg}
}

func (r *InMemoryPaymentRepository) Retrieve() (PaymentConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg, nil
}

func (r *InMemoryPaymentRepository) Update(cfg PaymentConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
	return nil
}

// InMemoryBrandingRepository is the branding counterpart.
type InMemoryBrandingRepository struct {
	mu  sync.RWMutex
	cfg BrandingConfig
}

// NewInMemoryBrandingRepository seeds a repository with cfg.
func NewInMemoryBrandingRepository(cfg BrandingConfig) *InMemoryBrandingRepository {
	return &InMemoryBrandingRepository{cfg: cfg}
}

func (r *InMemoryBrandingRepository) Retrieve() (BrandingConfig, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cfg, nil
}

func (r *InMemoryBrandingRepository) Update(cfg BrandingConfig) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cfg = cfg
	return nil
}

package repository

import (
	"sync"

	appErrors "github.com/unclebandit/bulkmail/internal/errors"
	"github.com/unclebandit/bulkmail/internal/model"
)

// ContactRepositoryInterface defines methods used by service
type ContactRepositoryInterface interface {
	ListAll() ([]model.Recipient, error)
	GetByIndex(i int) (*model.Recipient, error)
	Replace(contacts []model.Recipient) error
	Remove(i int) error
}

// ContactRepository holds the imported contact list of the current session.
type ContactRepository struct {
	mu       sync.RWMutex
	contacts []model.Recipient
}

func NewContactRepository() *ContactRepository {
	return &ContactRepository{}
}

// ListAll returns a copy of the contact list in import order.
func (r *ContactRepository) ListAll() ([]model.Recipient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return append([]model.Recipient{}, r.contacts...), nil
}

func (r *ContactRepository) GetByIndex(i int) (*model.Recipient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if i < 0 || i >= len(r.contacts) {
		return nil, appErrors.ErrContactNotFound
	}
	c := r.contacts[i]
	return &c, nil
}

// Replace swaps the whole list, as a new spreadsheet import does.
func (r *ContactRepository) Replace(contacts []model.Recipient) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.contacts = append([]model.Recipient(nil), contacts...)
	return nil
}

func (r *ContactRepository) Remove(i int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if i < 0 || i >= len(r.contacts) {
		return appErrors.ErrContactNotFound
	}
	r.contacts = append(r.contacts[:i:i], r.contacts[i+1:]...)
	return nil
}

var _ ContactRepositoryInterface = (*ContactRepository)(nil)

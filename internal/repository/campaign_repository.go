package repository

import (
	"sort"
	"sync"
	"time"

	appErrors "github.com/unclebandit/bulkmail/internal/errors"
	"github.com/unclebandit/bulkmail/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.CampaignInfo) error
	GetByID(id string) (*model.CampaignInfo, error)
	ListCampaigns(offset, limit int) ([]*model.CampaignInfo, int, error)
}

// CampaignRepository keeps campaign metadata for the lifetime of the process.
// Send history is never written anywhere else.
type CampaignRepository struct {
	mu        sync.RWMutex
	campaigns map[string]*model.CampaignInfo
}

func NewCampaignRepository() *CampaignRepository {
	return &CampaignRepository{campaigns: map[string]*model.CampaignInfo{}}
}

func (r *CampaignRepository) Create(c *model.CampaignInfo) error {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	cp := *c

	r.mu.Lock()
	defer r.mu.Unlock()
	r.campaigns[c.ID] = &cp
	return nil
}

func (r *CampaignRepository) GetByID(id string) (*model.CampaignInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	cp := *c
	return &cp, nil
}

// ListCampaigns returns one page, newest first, and the total count.
func (r *CampaignRepository) ListCampaigns(offset, limit int) ([]*model.CampaignInfo, int, error) {
	r.mu.RLock()
	all := make([]*model.CampaignInfo, 0, len(r.campaigns))
	for _, c := range r.campaigns {
		cp := *c
		all = append(all, &cp)
	}
	r.mu.RUnlock()

	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})

	total := len(all)
	if offset >= total {
		return []*model.CampaignInfo{}, total, nil
	}
	end := min(offset+limit, total)
	return all[offset:end], total, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)

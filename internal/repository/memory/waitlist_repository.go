package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/suntvalg/suntvalg-server/internal/models"
	"github.com/suntvalg/suntvalg-server/internal/repository"
)

// WaitlistRepository provides an in-memory implementation of repository.WaitlistRepository
type WaitlistRepository struct {
	mu      sync.RWMutex
	entries map[string]*models.WaitlistEntry
	now     func() time.Time
}

// NewWaitlistRepository creates a new in-memory waitlist repository
func NewWaitlistRepository() *WaitlistRepository {
	return &WaitlistRepository{
		entries: make(map[string]*models.WaitlistEntry),
		now:     time.Now,
	}
}

func (r *WaitlistRepository) Create(ctx context.Context, entry *models.WaitlistEntry) (*models.WaitlistEntry, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(entry.Email)
	if existing, ok := r.entries[key]; ok {
		cp := *existing
		return &cp, false, nil
	}

	stored := *entry
	stored.ID = uuid.New()
	stored.CreatedAt = r.now().UTC()
	if stored.Language == "" {
		stored.Language = models.DefaultWaitlistLanguage
	}
	r.entries[key] = &stored

	cp := stored
	return &cp, true, nil
}

func (r *WaitlistRepository) GetByEmail(ctx context.Context, email string) (*models.WaitlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.entries[strings.ToLower(email)]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *entry
	return &cp, nil
}

func (r *WaitlistRepository) List(ctx context.Context) ([]models.WaitlistEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]models.WaitlistEntry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, *e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *WaitlistRepository) Count(ctx context.Context) (int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries), nil
}

var _ repository.WaitlistRepository = (*WaitlistRepository)(nil)

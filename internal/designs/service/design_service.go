package service

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/domain"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/repository"
	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/storage"
)

// DesignStore is the metadata-store surface the service needs.
// *repository.DesignRepo satisfies it.
type DesignStore interface {
	Insert(ctx context.Context, d *domain.Design) (string, error)
	ListByUser(ctx context.Context, userID string) ([]domain.Design, error)
	GetByID(ctx context.Context, id string) (*domain.Design, error)
	Delete(ctx context.Context, id string) error
}

// ArtifactPersister turns an ephemeral provider URL into a durable one.
type ArtifactPersister interface {
	Persist(ctx context.Context, ephemeralURL, userID string) (string, error)
}

// DesignService composes the persister, the metadata store and the object
// store into the save/list/delete surface the HTTP layer exposes.
type DesignService struct {
	repo      DesignStore
	persister ArtifactPersister
	store     storage.ObjectStore
	cache     *repository.ListCache
	now       func() time.Time
}

func NewDesignService(repo DesignStore, persister ArtifactPersister, store storage.ObjectStore, cache *repository.ListCache) *DesignService {
	return &DesignService{
		repo:      repo,
		persister: persister,
		store:     store,
		cache:     cache,
		now:       time.Now,
	}
}

// Save persists the image behind ephemeralURL and writes the Design
// record. The blob upload happens before the record write, so a visible
// record always has a resolvable blob. If the record write fails the blob
// is NOT rolled back; the orphan is unreferenced, and it is logged so the
// nightly audit can count it.
func (s *DesignService) Save(ctx context.Context, userID, prompt, ephemeralURL string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", fmt.Errorf("save requires a signed-in user: %w", domain.ErrStorageUnauthorized)
	}
	if strings.TrimSpace(prompt) == "" {
		return "", domain.ErrInputInvalid
	}
	if strings.TrimSpace(ephemeralURL) == "" {
		return "", fmt.Errorf("image url is required: %w", domain.ErrFetch)
	}

	durableURL, err := s.persister.Persist(ctx, ephemeralURL, userID)
	if err != nil {
		return "", err
	}

	design := &domain.Design{
		UserID:    userID,
		Prompt:    prompt,
		ImageURL:  durableURL,
		CreatedAt: s.now().UnixMilli(),
	}

	id, err := s.repo.Insert(ctx, design)
	if err != nil {
		log.Printf("[designs] record write failed, blob %s orphaned: %v", durableURL, err)
		return "", fmt.Errorf("%v: %w", err, domain.ErrRecordWrite)
	}

	s.cache.Invalidate(ctx, userID)
	return id, nil
}

// List returns the user's designs newest first. The store query is
// unordered; sorting happens here.
func (s *DesignService) List(ctx context.Context, userID string) ([]domain.Design, error) {
	if cached, ok := s.cache.Get(ctx, userID); ok {
		return cached, nil
	}

	designs, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	sort.Slice(designs, func(i, j int) bool {
		return designs[i].CreatedAt > designs[j].CreatedAt
	})

	s.cache.Set(ctx, userID, designs)
	return designs, nil
}

// Delete removes the design's blob and then its record. A blob-delete
// failure is logged and swallowed: the record still goes away, trading a
// dangling storage object for user-visible consistency. A record-delete
// failure is terminal. Deleting an id that does not exist, or that
// belongs to another user, is ErrNotFound.
func (s *DesignService) Delete(ctx context.Context, userID, designID string) error {
	design, err := s.repo.GetByID(ctx, designID)
	if err != nil {
		return err
	}
	if design.UserID != userID {
		return domain.ErrNotFound
	}

	if design.ImageURL != "" {
		if path, err := s.store.PathFromURL(design.ImageURL); err != nil {
			log.Printf("[designs] cannot derive path from %s: %v", design.ImageURL, err)
		} else if err := s.store.Delete(ctx, path); err != nil {
			log.Printf("[designs] blob delete failed for %s: %v", path, err)
		}
	}

	if err := s.repo.Delete(ctx, designID); err != nil {
		return err
	}

	s.cache.Invalidate(ctx, userID)
	return nil
}

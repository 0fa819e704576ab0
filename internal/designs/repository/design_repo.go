package repository

import (
	"context"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/dreamcanvas-ai/dreamcanvas-backend/internal/designs/domain"
)

const designsCollection = "designs"

// DesignRepo persists Design records in Firestore. Queries are unordered;
// ordering is the service's job.
type DesignRepo struct {
	client *firestore.Client
}

func NewDesignRepo(client *firestore.Client) *DesignRepo {
	return &DesignRepo{client: client}
}

// Insert writes a new record and returns the store-assigned id.
func (r *DesignRepo) Insert(ctx context.Context, d *domain.Design) (string, error) {
	ref, _, err := r.client.Collection(designsCollection).Add(ctx, d)
	if err != nil {
		return "", fmt.Errorf("insert design: %w", err)
	}
	return ref.ID, nil
}

// ListByUser returns every record owned by userID, in store order.
func (r *DesignRepo) ListByUser(ctx context.Context, userID string) ([]domain.Design, error) {
	it := r.client.Collection(designsCollection).
		Where("userId", "==", userID).
		Documents(ctx)
	defer it.Stop()

	out := make([]domain.Design, 0, 16)
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("query designs: %w", err)
		}

		var d domain.Design
		if err := doc.DataTo(&d); err != nil {
			return nil, fmt.Errorf("decode design %s: %w", doc.Ref.ID, err)
		}
		d.ID = doc.Ref.ID
		out = append(out, d)
	}
	return out, nil
}

func (r *DesignRepo) GetByID(ctx context.Context, id string) (*domain.Design, error) {
	doc, err := r.client.Collection(designsCollection).Doc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("get design %s: %w", id, err)
	}

	var d domain.Design
	if err := doc.DataTo(&d); err != nil {
		return nil, fmt.Errorf("decode design %s: %w", id, err)
	}
	d.ID = doc.Ref.ID
	return &d, nil
}

// ListImageURLs returns the imageUrl of every design record across all
// users. Only the audit job uses this.
func (r *DesignRepo) ListImageURLs(ctx context.Context) ([]string, error) {
	it := r.client.Collection(designsCollection).Select("imageUrl").Documents(ctx)
	defer it.Stop()

	var urls []string
	for {
		doc, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("scan designs: %w", err)
		}

		if v, err := doc.DataAt("imageUrl"); err == nil {
			if u, ok := v.(string); ok && u != "" {
				urls = append(urls, u)
			}
		}
	}
	return urls, nil
}

func (r *DesignRepo) Delete(ctx context.Context, id string) error {
	if _, err := r.client.Collection(designsCollection).Doc(id).Delete(ctx); err != nil {
		return fmt.Errorf("delete design %s: %w", id, err)
	}
	return nil
}

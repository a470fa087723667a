package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/99minutos/auth-service/internal/core/domain"
	"github.com/99minutos/auth-service/internal/core/ports"
)

type TenantRepository struct {
	col   *mongo.Collection
	users *mongo.Collection
	ids   *sequence
}

func NewTenantRepository(db *mongo.Database) *TenantRepository {
	return &TenantRepository{
		col:   db.Collection(collectionTenants),
		users: db.Collection(collectionUsers),
		ids:   newSequence(db, collectionTenants),
	}
}

type tenantDoc struct {
	ID        int64     `bson:"_id"`
	Name      string    `bson:"name"`
	Address   string    `bson:"address"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d *tenantDoc) toDomain() *domain.Tenant {
	return &domain.Tenant{
		ID:        d.ID,
		Name:      d.Name,
		Address:   d.Address,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

func (r *TenantRepository) Create(ctx context.Context, t *domain.Tenant) (*domain.Tenant, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	id, err := r.ids.next(ctx)
	if err != nil {
		return nil, err
	}
	doc := tenantDoc{
		ID:        id,
		Name:      t.Name,
		Address:   t.Address,
		CreatedAt: storedTime(t.CreatedAt),
		UpdatedAt: storedTime(t.UpdatedAt),
	}
	if _, err := r.col.InsertOne(ctx, doc); err != nil {
		return nil, fmt.Errorf("insert tenant: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TenantRepository) FindByID(ctx context.Context, id int64) (*domain.Tenant, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	var doc tenantDoc
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrTenantNotFound
		}
		return nil, fmt.Errorf("find tenant: %w", err)
	}
	return doc.toDomain(), nil
}

func (r *TenantRepository) List(ctx context.Context, filter ports.TenantFilter) ([]*domain.Tenant, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	query := bson.M{}
	if filter.Query != "" {
		re := bson.M{"$regex": regexp.QuoteMeta(filter.Query), "$options": "i"}
		query["$or"] = bson.A{bson.M{"name": re}, bson.M{"address": re}}
	}

	total, err := r.col.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("count tenants: %w", err)
	}
	cur, err := r.col.Find(ctx, query, pageOptions(filter.Page, filter.PerPage))
	if err != nil {
		return nil, 0, fmt.Errorf("list tenants: %w", err)
	}
	var docs []tenantDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, fmt.Errorf("list tenants: %w", err)
	}

	tenants := make([]*domain.Tenant, 0, len(docs))
	for i := range docs {
		tenants = append(tenants, docs[i].toDomain())
	}
	return tenants, total, nil
}

func (r *TenantRepository) Update(ctx context.Context, t *domain.Tenant) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.UpdateByID(ctx, t.ID, bson.M{"$set": bson.M{
		"name":       t.Name,
		"address":    t.Address,
		"updated_at": storedTime(t.UpdatedAt),
	}})
	if err != nil {
		return fmt.Errorf("update tenant: %w", err)
	}
	if res.MatchedCount == 0 {
		return domain.ErrTenantNotFound
	}
	return nil
}

// Delete removes the tenant and detaches its users.
func (r *TenantRepository) Delete(ctx context.Context, id int64) error {
	ctx, cancel := context.WithTimeout(ctx, defaultTimeout)
	defer cancel()

	res, err := r.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete tenant: %w", err)
	}
	if res.DeletedCount == 0 {
		return domain.ErrTenantNotFound
	}
	if _, err := r.users.UpdateMany(ctx, bson.M{"tenant_id": id}, bson.M{"$unset": bson.M{"tenant_id": ""}}); err != nil {
		return fmt.Errorf("detach users from tenant %d: %w", id, err)
	}
	return nil
}

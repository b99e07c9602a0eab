package resource

import (
	"context"
	"errors"
	"fmt"

	"github.com/crewplan/timeline/internal/database"
	"github.com/jackc/pgx/v5"
	log "github.com/sirupsen/logrus"
)

// Catalog is the read-only view of the master data owned by the resource
// management service.
type Catalog interface {
	Get(ctx context.Context, id int) (Resource, error)
	GetMany(ctx context.Context, ids []int) (map[int]Resource, error)
	ProjectNames(ctx context.Context, ids []int) (map[int]string, error)
}

type catalogImpl struct {
	db database.DB
}

func NewCatalog(db database.DB) Catalog {
	return &catalogImpl{db: db}
}

func (c *catalogImpl) Get(ctx context.Context, id int) (Resource, error) {
	query := `SELECT id, name, resource_type, category FROM resource WHERE id = $1`

	var r Resource
	var resourceType, category string
	err := c.db.QueryRow(ctx, query, id).Scan(&r.Id, &r.Name, &resourceType, &category)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Resource{}, ErrResourceNotFound
		}
		err := fmt.Errorf("could not query resource: %w", err)
		log.Error(err)
		return Resource{}, err
	}
	r.Type = Type(resourceType)
	r.Category = ParseCategory(category)
	return r, nil
}

func (c *catalogImpl) GetMany(ctx context.Context, ids []int) (map[int]Resource, error) {
	result := make(map[int]Resource, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	query := `SELECT id, name, resource_type, category FROM resource WHERE id = ANY($1)`
	rows, err := c.db.Query(ctx, query, ids)
	if err != nil {
		err := fmt.Errorf("could not query resources: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var r Resource
		var resourceType, category string
		if err := rows.Scan(&r.Id, &r.Name, &resourceType, &category); err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		r.Type = Type(resourceType)
		r.Category = ParseCategory(category)
		result[r.Id] = r
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return result, nil
}

func (c *catalogImpl) ProjectNames(ctx context.Context, ids []int) (map[int]string, error) {
	names := make(map[int]string, len(ids))
	if len(ids) == 0 {
		return names, nil
	}

	rows, err := c.db.Query(ctx, `SELECT id, name FROM project WHERE id = ANY($1)`, ids)
	if err != nil {
		err := fmt.Errorf("could not query projects: %w", err)
		log.Error(err)
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var name string
		if err := rows.Scan(&id, &name); err != nil {
			err := fmt.Errorf("could not scan row: %w", err)
			log.Error(err)
			return nil, err
		}
		names[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating over rows: %w", err)
	}
	return names, nil
}

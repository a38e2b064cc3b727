// Package sectors maintains the sector/zone parameter table used to fill a
// client's zone from the sector they live in.
package sectors

import (
	"context"
	"fmt"
	"strings"

	"legal-clinic/internal/audit"
	"legal-clinic/internal/clinic"
	"legal-clinic/internal/store"

	"github.com/google/uuid"
)

type Service struct {
	uow   store.UnitOfWork
	audit *audit.Service
}

func NewService(uow store.UnitOfWork, au *audit.Service) *Service {
	return &Service{uow: uow, audit: au}
}

// Input is a sector to create or the full replacement of one.
type Input struct {
	Name string `json:"name" validate:"required"`
	Zone string `json:"zone" validate:"required"`
}

func (in Input) normalized() Input {
	return Input{Name: strings.TrimSpace(in.Name), Zone: strings.TrimSpace(in.Zone)}
}

func (s *Service) List(ctx context.Context) ([]clinic.Sector, error) {
	return s.uow.Direct().Sectors.List(ctx)
}

func (s *Service) Get(ctx context.Context, id string) (clinic.Sector, error) {
	v, ok, err := s.uow.Direct().Sectors.Get(ctx, id)
	if err != nil {
		return clinic.Sector{}, err
	}
	if !ok {
		return clinic.Sector{}, clinic.NotFound(clinic.EntitySector, id)
	}
	return v, nil
}

// ZoneOf returns the zone of the sector with the given name.
func (s *Service) ZoneOf(ctx context.Context, name string) (string, error) {
	zone, ok, err := s.uow.Direct().Sectors.ZoneOf(ctx, strings.TrimSpace(name))
	if err != nil {
		return "", err
	}
	if !ok {
		return "", clinic.NotFound(clinic.EntitySector, name)
	}
	return zone, nil
}

// Create inserts every input in one unit of work. Either all sectors are
// stored or none is.
func (s *Service) Create(ctx context.Context, actorID string, in ...Input) ([]clinic.Sector, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, fmt.Errorf("create sectors: %w", clinic.Invalid("actor id is required"))
	}
	if len(in) == 0 {
		return nil, fmt.Errorf("create sectors: %w", clinic.Invalid("at least one sector is required"))
	}
	out := make([]clinic.Sector, 0, len(in))
	for i, v := range in {
		v = v.normalized()
		if err := clinic.Validate(v); err != nil {
			return nil, fmt.Errorf("create sectors: item %d: %w", i, err)
		}
		out = append(out, clinic.Sector{ID: uuid.NewString(), Name: v.Name, Zone: v.Zone})
	}

	err := s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		au := s.audit.Bind(r.Audit)
		for _, v := range out {
			if err := r.Sectors.Insert(ctx, v); err != nil {
				return err
			}
			if err := au.Record(ctx, actorID, audit.ActionInsert, clinic.EntitySector,
				fmt.Sprintf("created sector %s in zone %s", v.Name, v.Zone)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("create sectors: %w", err)
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, actorID, id string, in Input) (clinic.Sector, error) {
	if strings.TrimSpace(actorID) == "" {
		return clinic.Sector{}, fmt.Errorf("update sector: %w", clinic.Invalid("actor id is required"))
	}
	in = in.normalized()
	if err := clinic.Validate(in); err != nil {
		return clinic.Sector{}, fmt.Errorf("update sector: %w", err)
	}

	next := clinic.Sector{ID: id, Name: in.Name, Zone: in.Zone}
	err := s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		cur, ok, err := r.Sectors.Get(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return clinic.NotFound(clinic.EntitySector, id)
		}
		if cur == next {
			return nil
		}
		if _, err := r.Sectors.Update(ctx, next); err != nil {
			return err
		}
		return s.audit.Bind(r.Audit).Record(ctx, actorID, audit.ActionUpdate, clinic.EntitySector,
			fmt.Sprintf("updated sector %s", id))
	})
	if err != nil {
		return clinic.Sector{}, fmt.Errorf("update sector: %w", err)
	}
	return next, nil
}

func (s *Service) Delete(ctx context.Context, actorID, id string) error {
	if strings.TrimSpace(actorID) == "" {
		return fmt.Errorf("delete sector: %w", clinic.Invalid("actor id is required"))
	}
	err := s.uow.Do(ctx, func(ctx context.Context, r store.Repos) error {
		ok, err := r.Sectors.Delete(ctx, id)
		if err != nil {
			return err
		}
		if !ok {
			return clinic.NotFound(clinic.EntitySector, id)
		}
		return s.audit.Bind(r.Audit).Record(ctx, actorID, audit.ActionDelete, clinic.EntitySector,
			fmt.Sprintf("deleted sector %s", id))
	})
	if err != nil {
		return fmt.Errorf("delete sector: %w", err)
	}
	return nil
}

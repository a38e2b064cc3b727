package reporting

import (
	"context"
	"time"

	"legal-clinic/internal/clinic"
	"legal-clinic/internal/store"
)

// StoreRepo reads report data from the clinic store outside any unit of work.
type StoreRepo struct {
	uow store.UnitOfWork
}

func NewStoreRepo(uow store.UnitOfWork) *StoreRepo { return &StoreRepo{uow: uow} }

func (r *StoreRepo) ListConsultations(ctx context.Context, from, to time.Time) ([]clinic.Consultation, error) {
	return r.uow.Direct().Consultations.List(ctx, store.ConsultationFilter{From: from, To: to})
}

func (r *StoreRepo) ListSocialWork(ctx context.Context, from, to time.Time) ([]clinic.SocialWorkCase, error) {
	return r.uow.Direct().SocialWork.List(ctx, store.SocialWorkFilter{EnteredFrom: from, EnteredTo: to})
}

func (r *StoreRepo) Consultation(ctx context.Context, code string) (clinic.Consultation, bool, error) {
	return r.uow.Direct().Consultations.Get(ctx, code)
}

func (r *StoreRepo) Client(ctx context.Context, id string) (clinic.Client, bool, error) {
	return r.uow.Direct().Clients.Get(ctx, id)
}

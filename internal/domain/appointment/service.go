package appointment

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/acil/er-desk/pkg/erclient"
)

var (
	ErrInvalidID     = errors.New("appointment id must be positive")
	ErrInvalidStatus = errors.New("unknown appointment status")
	ErrNotFound      = errors.New("appointment not found")
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// View is a Detail enriched with the decoded suggestions of the latest
// triage record, which is what the doctor screen shows.
type View struct {
	*Detail
	Suggestions  []Suggestion `json:"suggestions"`
	SymptomCount int          `json:"symptomCount"`
}

func (s *Service) GetDetail(ctx context.Context, id int64, creds *erclient.Credentials) (*Detail, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	d, err := s.repo.GetDetail(ctx, id, creds)
	if err != nil {
		if erclient.IsStatus(err, http.StatusNotFound) {
			return nil, fmt.Errorf("%w: id=%d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("load appointment %d: %w", id, err)
	}
	return d, nil
}

func (s *Service) GetView(ctx context.Context, id int64, creds *erclient.Credentials) (*View, error) {
	d, err := s.GetDetail(ctx, id, creds)
	if err != nil {
		return nil, err
	}
	latest := d.LatestTriage()
	return &View{
		Detail:       d,
		Suggestions:  latest.Suggestions(),
		SymptomCount: len(latest.Symptoms()),
	}, nil
}

// ListToday returns today's queue ordered by queue number. An empty status
// lists every appointment.
func (s *Service) ListToday(ctx context.Context, status string, creds *erclient.Credentials) ([]*Appointment, error) {
	var st Status
	if status != "" {
		var ok bool
		if st, ok = ParseStatus(status); !ok {
			return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
		}
	}
	items, err := s.repo.ListToday(ctx, st, creds)
	if err != nil {
		return nil, fmt.Errorf("list today's appointments: %w", err)
	}
	return items, nil
}

func (s *Service) NextWaiting(ctx context.Context, creds *erclient.Credentials) (*NextWaiting, error) {
	n, err := s.repo.NextWaiting(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("next waiting appointment: %w", err)
	}
	return n, nil
}

func (s *Service) UpdateStatus(ctx context.Context, id int64, status string, creds *erclient.Credentials) (*StatusChange, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	st, ok := ParseStatus(status)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}
	sc, err := s.repo.UpdateStatus(ctx, id, st, creds)
	if err != nil {
		return nil, fmt.Errorf("update appointment %d status: %w", id, err)
	}
	return sc, nil
}

package doctornote

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/acil/er-desk/internal/domain/appointment"
	"github.com/acil/er-desk/pkg/erclient"
)

// DetailLoader loads the appointment a note belongs to.
type DetailLoader interface {
	GetDetail(ctx context.Context, id int64, creds *erclient.Credentials) (*appointment.Detail, error)
}

type Service struct {
	notes   Repository
	details DetailLoader
}

func NewService(notes Repository, details DetailLoader) *Service {
	return &Service{notes: notes, details: details}
}

// Prefill returns the note form for an appointment, filled from the latest
// stored note when there is one.
func (s *Service) Prefill(ctx context.Context, appointmentID int64, creds *erclient.Credentials) (*Form, error) {
	d, err := s.details.GetDetail(ctx, appointmentID, creds)
	if err != nil {
		return nil, err
	}
	return FormFromNote(d.LatestNote()), nil
}

// Submit validates the form and posts it for the appointment.
func (s *Service) Submit(ctx context.Context, appointmentID int64, form *Form, markDone bool, creds *erclient.Credentials) (json.RawMessage, error) {
	if appointmentID <= 0 {
		return nil, appointment.ErrInvalidID
	}
	req, err := form.Request(appointmentID)
	if err != nil {
		return nil, err
	}
	saved, err := s.notes.Create(ctx, req, markDone, creds)
	if err != nil {
		return nil, fmt.Errorf("save doctor note for appointment %d: %w", appointmentID, err)
	}
	return saved, nil
}

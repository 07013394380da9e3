package appointment

import (
	"context"

	"github.com/acil/er-desk/pkg/erclient"
)

// Repository reads and updates appointments held by the ER backend.
type Repository interface {
	GetDetail(ctx context.Context, id int64, creds *erclient.Credentials) (*Detail, error)
	ListToday(ctx context.Context, status Status, creds *erclient.Credentials) ([]*Appointment, error)
	NextWaiting(ctx context.Context, creds *erclient.Credentials) (*NextWaiting, error)
	UpdateStatus(ctx context.Context, id int64, status Status, creds *erclient.Credentials) (*StatusChange, error)
}

package appointment

import (
	"context"
	"fmt"
	"net/url"

	"github.com/acil/er-desk/pkg/erclient"
)

// Backend is the subset of *erclient.Client the repository needs.
type Backend interface {
	Get(ctx context.Context, path string, creds *erclient.Credentials, out any) error
	Patch(ctx context.Context, path string, creds *erclient.Credentials, out any) error
}

type apiRepo struct {
	backend Backend
}

// NewAPIRepo returns a Repository backed by the ER backend HTTP API.
func NewAPIRepo(backend Backend) Repository {
	return &apiRepo{backend: backend}
}

func (r *apiRepo) GetDetail(ctx context.Context, id int64, creds *erclient.Credentials) (*Detail, error) {
	var d Detail
	if err := r.backend.Get(ctx, fmt.Sprintf("/appointments/%d/detail", id), creds, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *apiRepo) ListToday(ctx context.Context, status Status, creds *erclient.Credentials) ([]*Appointment, error) {
	path := "/appointments/today"
	if status != "" {
		path += "?status=" + url.QueryEscape(string(status))
	}
	var items []*Appointment
	if err := r.backend.Get(ctx, path, creds, &items); err != nil {
		return nil, err
	}
	if items == nil {
		items = []*Appointment{}
	}
	return items, nil
}

func (r *apiRepo) NextWaiting(ctx context.Context, creds *erclient.Credentials) (*NextWaiting, error) {
	var n NextWaiting
	if err := r.backend.Get(ctx, "/appointments/today/next", creds, &n); err != nil {
		return nil, err
	}
	return &n, nil
}

func (r *apiRepo) UpdateStatus(ctx context.Context, id int64, status Status, creds *erclient.Credentials) (*StatusChange, error) {
	path := fmt.Sprintf("/appointments/%d/status?status=%s", id, url.QueryEscape(string(status)))
	var sc StatusChange
	if err := r.backend.Patch(ctx, path, creds, &sc); err != nil {
		return nil, err
	}
	return &sc, nil
}

package doctornote

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/acil/er-desk/pkg/erclient"
)

// Backend is the subset of *erclient.Client the repository needs.
type Backend interface {
	Post(ctx context.Context, path string, body any, creds *erclient.Credentials, out any) error
}

type apiRepo struct {
	backend Backend
}

func NewAPIRepo(backend Backend) Repository {
	return &apiRepo{backend: backend}
}

func (r *apiRepo) Create(ctx context.Context, req *Request, markDone bool, creds *erclient.Credentials) (json.RawMessage, error) {
	var out json.RawMessage
	path := "/doctor-notes?markDone=" + strconv.FormatBool(markDone)
	if err := r.backend.Post(ctx, path, req, creds, &out); err != nil {
		return nil, err
	}
	return out, nil
}

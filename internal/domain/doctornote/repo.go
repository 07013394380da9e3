package doctornote

import (
	"context"
	"encoding/json"

	"github.com/acil/er-desk/pkg/erclient"
)

// Repository stores doctor notes in the ER backend.
type Repository interface {
	// Create posts the note. With markDone the backend also closes the
	// appointment. The backend's answer is returned unchanged.
	Create(ctx context.Context, req *Request, markDone bool, creds *erclient.Credentials) (json.RawMessage, error)
}

package repository

import (
	"context"

	"cat-board/src/client"
)

// Requester sends a JSON request to the Memo API.
// *client.Client implements it.
type Requester interface {
	Do(ctx context.Context, method, path string, body any) (*client.Response, error)
}

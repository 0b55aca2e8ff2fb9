package domain

import "context"

// MemoRepository defines the operations against the memo collection
type MemoRepository interface {
	List(ctx context.Context) ([]Memo, error)
	Create(ctx context.Context, req CreateMemoRequest) (*Memo, error)
	Remove(ctx context.Context, id int64) error
}

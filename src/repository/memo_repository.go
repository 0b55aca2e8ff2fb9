package repository

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"cat-board/src/client"
	"cat-board/src/domain"

	"github.com/sirupsen/logrus"
)

const memosPath = "/memos"

var _ domain.MemoRepository = (*MemoRepository)(nil)

// MemoRepository talks to the remote memo collection. No retries, no
// side effects beyond the call.
type MemoRepository struct {
	api    Requester
	logger *logrus.Logger
}

// NewMemoRepository creates a new memo repository
func NewMemoRepository(api Requester, logger *logrus.Logger) *MemoRepository {
	return &MemoRepository{
		api:    api,
		logger: logger,
	}
}

// List returns the memos in server order
func (r *MemoRepository) List(ctx context.Context) ([]domain.Memo, error) {
	resp, err := r.api.Do(ctx, http.MethodGet, memosPath, nil)
	if err != nil {
		return nil, err
	}
	if !resp.OK() {
		return nil, statusError(http.MethodGet, memosPath, resp)
	}

	var memos []domain.Memo
	if err := resp.DecodeJSON(&memos); err != nil {
		return nil, &client.TransportError{Method: http.MethodGet, Path: memosPath, Status: resp.Status, Err: err}
	}
	if memos == nil {
		// "null" と "[]" はどちらもメモなし
		memos = []domain.Memo{}
	}

	r.logger.WithField("count", len(memos)).Debug("メモ一覧を取得しました")
	return memos, nil
}

// Create sends the request as given; the server validates it
func (r *MemoRepository) Create(ctx context.Context, req domain.CreateMemoRequest) (*domain.Memo, error) {
	resp, err := r.api.Do(ctx, http.MethodPost, memosPath, req)
	if err != nil {
		return nil, err
	}

	switch {
	case resp.OK():
	case resp.Status >= 400 && resp.Status < 500:
		r.logger.WithFields(logrus.Fields{
			"status_code": resp.Status,
			"message":     resp.ErrorMessage(),
		}).Warn("メモの作成がサーバーに拒否されました")
		return nil, &domain.ValidationError{Status: resp.Status, Message: resp.ErrorMessage()}
	default:
		return nil, statusError(http.MethodPost, memosPath, resp)
	}

	var memo domain.Memo
	if err := resp.DecodeJSON(&memo); err != nil {
		return nil, &client.TransportError{Method: http.MethodPost, Path: memosPath, Status: resp.Status, Err: err}
	}

	r.logger.WithField("memo_id", memo.ID).Info("メモを作成しました")
	return &memo, nil
}

// Remove deletes a memo by id. An unknown id yields domain.ErrMemoNotFound.
func (r *MemoRepository) Remove(ctx context.Context, id int64) error {
	path := memosPath + "/" + strconv.FormatInt(id, 10)

	resp, err := r.api.Do(ctx, http.MethodDelete, path, nil)
	if err != nil {
		return err
	}

	switch {
	case resp.OK():
		r.logger.WithField("memo_id", id).Info("メモを削除しました")
		return nil
	case resp.Status == http.StatusNotFound:
		r.logger.WithField("memo_id", id).Warn("削除対象のメモが見つかりません")
		return fmt.Errorf("delete memo %d: %w", id, domain.ErrMemoNotFound)
	default:
		return statusError(http.MethodDelete, path, resp)
	}
}

func statusError(method, path string, resp *client.Response) error {
	return &client.TransportError{
		Method:  method,
		Path:    path,
		Status:  resp.Status,
		Message: resp.ErrorMessage(),
	}
}

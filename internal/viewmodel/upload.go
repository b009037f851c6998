package viewmodel

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/matheus3301/apurimac/internal/apperr"
	"go.uber.org/zap"
)

const msgUploadFailed = "Upload failed"

// UploadImage stores r under a fresh "image/<uuid>" key and returns the
// address it can be fetched from. The address is resolved only after the
// upload completed.
func (vm *ViewModel) UploadImage(ctx context.Context, r io.Reader) (string, error) {
	key := "image/" + uuid.NewString()

	vm.setLoading(AreaUpload, true)
	if err := vm.blobs.Put(ctx, key, r); err != nil {
		return "", vm.handleError(AreaUpload, apperr.Backend(msgUploadFailed, err))
	}
	addr, err := vm.blobs.ResolveAddress(ctx, key)
	if err != nil {
		return "", vm.handleError(AreaUpload, apperr.Backend(msgUploadFailed, err))
	}
	vm.setLoading(AreaUpload, false)
	vm.logger.Debug("image uploaded", zap.String("key", key))
	return addr, nil
}

// UploadProfileImage uploads r and makes it the current user's picture.
func (vm *ViewModel) UploadProfileImage(ctx context.Context, r io.Reader) (string, error) {
	addr, err := vm.UploadImage(ctx, r)
	if err != nil {
		return "", err
	}
	if err := vm.upsertProfile(ctx, nil, nil, &addr); err != nil {
		return "", err
	}
	return addr, nil
}

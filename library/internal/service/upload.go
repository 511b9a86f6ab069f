package service

import (
	"context"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Astemirdum/library-loans/library/internal/errs"
	"github.com/Astemirdum/library-loans/library/internal/model"
	"github.com/Astemirdum/library-loans/pkg/blob"
)

func (s *Service) saveUpload(ctx context.Context, up *model.Upload) (*string, error) {
	if up == nil {
		return nil, nil
	}
	ref, err := s.blob.Save(ctx, up.Filename, up.Content)
	if err != nil {
		if errors.Is(err, blob.ErrUnsupportedType) {
			return nil, errs.ErrUnsupportedType
		}
		return nil, errors.Wrap(err, "save upload")
	}
	return &ref, nil
}

// dropUpload removes a stored file, best effort.
func (s *Service) dropUpload(ctx context.Context, ref *string) {
	if ref == nil || *ref == "" {
		return
	}
	if err := s.blob.Delete(context.WithoutCancel(ctx), *ref); err != nil {
		s.log.Warn("delete upload", zap.String("ref", *ref), zap.Error(err))
	}
}

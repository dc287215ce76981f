package usecases

import (
	"context"
	"fmt"
	"time"

	"github.com/iwtcode/ppmacAdapter/internal/domain/models"
	apperrors "github.com/iwtcode/ppmacAdapter/pkg/errors"
)

// StartScan запускает fly-скан. TimeoutMs = 0 берет таймаут из конфигурации.
func (u *Usecase) StartScan(ctx context.Context, req models.ScanRequest) (*models.ScanInfo, error) {
	if _, found := u.ppmacSvc.GetConnection(req.SessionID); !found {
		return nil, fmt.Errorf("не удалось запустить скан: сессия '%s': %w", req.SessionID, apperrors.ErrSessionNotFound)
	}
	if req.TimeoutMs < 0 {
		return nil, apperrors.NewAppError(apperrors.InvalidDataCode, "timeout_ms не может быть отрицательным", nil, true)
	}
	timeout := time.Duration(req.TimeoutMs) * time.Millisecond
	return u.ppmacSvc.StartScan(ctx, req.SessionID, req.Trajectory(), timeout)
}

func (u *Usecase) AbortScan(ctx context.Context, sessionID string) error {
	return u.ppmacSvc.AbortScan(ctx, sessionID)
}

func (u *Usecase) GetScan(sessionID string) (*models.ScanInfo, error) {
	return u.ppmacSvc.GetScan(sessionID)
}

package usecases

import (
	"context"
	"fmt"
	"strings"

	"github.com/iwtcode/ppmacAdapter/internal/domain/models"
	ppmodels "github.com/iwtcode/ppmacAdapter/models"
	apperrors "github.com/iwtcode/ppmacAdapter/pkg/errors"
)

// GetVariables читает переменные одним запросом. Пустые имена отбрасываются.
func (u *Usecase) GetVariables(ctx context.Context, sessionID string, names []string) ([]ppmodels.VariableInfo, error) {
	cleaned := make([]string, 0, len(names))
	for _, name := range names {
		if name = strings.TrimSpace(name); name != "" {
			cleaned = append(cleaned, name)
		}
	}
	if len(cleaned) == 0 {
		return nil, apperrors.NewAppError(apperrors.InvalidDataCode, "не указано ни одной переменной", nil, true)
	}
	return u.ppmacSvc.GetVariables(ctx, sessionID, cleaned)
}

func (u *Usecase) SetVariable(ctx context.Context, req models.SetVariableRequest) error {
	return u.ppmacSvc.SetVariable(ctx, req.SessionID, strings.TrimSpace(req.Name), req.Value)
}

func (u *Usecase) RegisterAxis(req models.RegisterAxisRequest) error {
	if _, found := u.ppmacSvc.GetConnection(req.SessionID); !found {
		return fmt.Errorf("не удалось зарегистрировать ось: сессия '%s': %w", req.SessionID, apperrors.ErrSessionNotFound)
	}
	return u.ppmacSvc.RegisterAxis(req.SessionID, req.Name, req.Axis)
}

func (u *Usecase) AxisStatus(ctx context.Context, sessionID, name string) (ppmodels.AxisStatus, error) {
	return u.ppmacSvc.AxisStatus(ctx, sessionID, name)
}

package usecases

import (
	"github.com/iwtcode/ppmacAdapter/internal/domain/entities"
	"github.com/iwtcode/ppmacAdapter/internal/domain/models"
	"github.com/iwtcode/ppmacAdapter/internal/interfaces"
)

type Usecase struct {
	ppmacSvc interfaces.PpmacService
}

func NewUsecase(ppmacSvc interfaces.PpmacService) interfaces.Usecases {
	return &Usecase{
		ppmacSvc: ppmacSvc,
	}
}

func (u *Usecase) CreateConnection(req models.ConnectionRequest) (*models.ConnectionInfo, error) {
	return u.ppmacSvc.CreateConnection(req)
}

func (u *Usecase) RestoreConnection(controller entities.PpmacController) (*models.ConnectionInfo, error) {
	return u.ppmacSvc.RestoreConnection(controller)
}

func (u *Usecase) GetAllConnections() []*models.ConnectionInfo {
	return u.ppmacSvc.GetAllConnections()
}

func (u *Usecase) DeleteConnection(sessionID string) error {
	return u.ppmacSvc.DeleteConnection(sessionID)
}

func (u *Usecase) CheckConnection(sessionID string) (*models.ConnectionInfo, error) {
	return u.ppmacSvc.CheckConnection(sessionID)
}

package interfaces

import (
	"github.com/iwtcode/ppmacAdapter/internal/domain/entities"
)

// PpmacControllerRepository определяет контракт для работы с сохраненными контроллерами в БД
type PpmacControllerRepository interface {
	Create(controller *entities.PpmacController) error
	GetByEndpoint(endpointURL string) (*entities.PpmacController, error)
	UpdateStatus(sessionID, status string) error
	Delete(sessionID string) error
	GetBySessionID(sessionID string) (*entities.PpmacController, error)
	GetAll() ([]entities.PpmacController, error)
}

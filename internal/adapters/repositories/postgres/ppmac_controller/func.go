package ppmac_controller

import (
	"github.com/iwtcode/ppmacAdapter/internal/domain/entities"
	"gorm.io/gorm"
)

func (r *PpmacControllerRepositoryImpl) Create(controller *entities.PpmacController) error {
	return r.db.Create(controller).Error
}

func (r *PpmacControllerRepositoryImpl) GetByEndpoint(endpointURL string) (*entities.PpmacController, error) {
	var controller entities.PpmacController
	err := r.db.Where("endpoint_url = ?", endpointURL).First(&controller).Error
	if err != nil {
		return nil, err
	}
	return &controller, nil
}

// UpdateStatus обновляет статус контроллера (connected / scanning)
func (r *PpmacControllerRepositoryImpl) UpdateStatus(sessionID, status string) error {
	result := r.db.Model(&entities.PpmacController{}).Where("session_id = ?", sessionID).Update("status", status)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *PpmacControllerRepositoryImpl) Delete(sessionID string) error {
	result := r.db.Where("session_id = ?", sessionID).Delete(&entities.PpmacController{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *PpmacControllerRepositoryImpl) GetBySessionID(sessionID string) (*entities.PpmacController, error) {
	var controller entities.PpmacController
	err := r.db.Where("session_id = ?", sessionID).First(&controller).Error
	if err != nil {
		return nil, err
	}
	return &controller, nil
}

// GetAll возвращает все сохраненные контроллеры
func (r *PpmacControllerRepositoryImpl) GetAll() ([]entities.PpmacController, error) {
	var controllers []entities.PpmacController
	if err := r.db.Find(&controllers).Error; err != nil {
		return nil, err
	}
	return controllers, nil
}

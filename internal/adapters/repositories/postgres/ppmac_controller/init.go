package ppmac_controller

import (
	"github.com/iwtcode/ppmacAdapter/internal/interfaces"
	"gorm.io/gorm"
)

type PpmacControllerRepositoryImpl struct {
	db *gorm.DB
}

func NewPpmacControllerRepository(db *gorm.DB) interfaces.PpmacControllerRepository {
	return &PpmacControllerRepositoryImpl{db: db}
}

package usecases

import "github.com/iwtcode/ppmacAdapter/internal/interfaces"

// UseCases - агрегатор всех use case интерфейсов
type UseCases struct {
	interfaces.Usecases
}

// NewUsecases - конструктор для UseCases
func NewUsecases(
	ppmacSvc interfaces.PpmacService,
) interfaces.Usecases {
	return NewUsecase(ppmacSvc)
}

// @title PPMAC Adapter API
// @version 1.0.0
// @description API для работы с контроллерами движения Power PMAC по протоколу gpascii: переменные, оси, fly-сканы и отправка точек скана в Kafka.
// @host localhost:8082
// @BasePath /api/v1
package main

import "github.com/iwtcode/ppmacAdapter/internal/app"

func main() {
	// Создаем и запускаем новый экземпляр приложения fx
	app.New().Run()
}

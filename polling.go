package ppmac

import (
	"context"
	"time"

	"github.com/iwtcode/ppmacAdapter/gpascii"
	"github.com/iwtcode/ppmacAdapter/models"
)

const defaultPollingInterval = time.Second

// PollingResult содержит значения переменных или ошибку от одной попытки опроса.
type PollingResult struct {
	Variables []models.VariableInfo
	Err       error
}

// StartPolling запускает фоновый опрос переменных одним пакетным запросом на тик.
// Если чтение длится дольше интервала, пропущенные тики отбрасываются.
// Канал закрывается при отмене контекста.
func (c *Client) StartPolling(ctx context.Context, interval time.Duration, names ...string) <-chan PollingResult {
	if interval <= 0 {
		interval = defaultPollingInterval
	}
	resultsChan := make(chan PollingResult)

	go func() {
		defer close(resultsChan)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			result := c.pollOnce(ctx, names)
			select {
			case resultsChan <- result:
			case <-ctx.Done():
				c.logger.Debug("Опрос остановлен из-за отмены контекста.")
				return
			}

			select {
			case <-ctx.Done():
				c.logger.Debug("Опрос остановлен из-за отмены контекста.")
				return
			case <-ticker.C:
			}
		}
	}()

	return resultsChan
}

func (c *Client) pollOnce(ctx context.Context, names []string) PollingResult {
	values, err := c.manager.GetVariables(ctx, names...)
	if err != nil {
		return PollingResult{Err: err}
	}

	now := time.Now()
	vars := make([]models.VariableInfo, len(values))
	for i, v := range values {
		vars[i] = models.VariableInfo{
			Name:      gpascii.Normalize(names[i]),
			Value:     v.String(),
			Kind:      v.Kind.String(),
			Timestamp: now,
		}
	}
	return PollingResult{Variables: vars}
}

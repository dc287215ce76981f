package ppmac_service

import (
	"context"
	"time"

	"github.com/iwtcode/ppmacAdapter/gpascii"
	ppmodels "github.com/iwtcode/ppmacAdapter/models"
)

func (cm *ConnectionManager) GetVariables(ctx context.Context, sessionID string, names []string) ([]ppmodels.VariableInfo, error) {
	conn, err := cm.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	values, err := conn.manager.GetVariables(ctx, names...)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	out := make([]ppmodels.VariableInfo, 0, len(values))
	for i, v := range values {
		out = append(out, ppmodels.VariableInfo{
			Name:      gpascii.Normalize(names[i]),
			Value:     v.String(),
			Kind:      v.Kind.String(),
			Timestamp: now,
		})
	}
	return out, nil
}

// SetVariable разбирает значение из текста и записывает его в контроллер.
func (cm *ConnectionManager) SetVariable(ctx context.Context, sessionID, name, value string) error {
	conn, err := cm.lookup(sessionID)
	if err != nil {
		return err
	}

	v, err := gpascii.ParseValue(value)
	if err != nil {
		return &gpascii.ValidationError{Name: name, Value: value, Reason: "not a number"}
	}

	if err := conn.manager.SetVariable(ctx, name, v); err != nil {
		return err
	}
	cm.logger.Debug("Variable written", "sessionID", sessionID, "name", name, "value", v.String())
	return nil
}

func (cm *ConnectionManager) RegisterAxis(sessionID, name string, axisNumber int) error {
	conn, err := cm.lookup(sessionID)
	if err != nil {
		return err
	}
	return conn.tracker.Register(name, axisNumber)
}

func (cm *ConnectionManager) AxisStatus(ctx context.Context, sessionID, name string) (ppmodels.AxisStatus, error) {
	conn, err := cm.lookup(sessionID)
	if err != nil {
		return ppmodels.AxisStatus{}, err
	}
	return conn.tracker.Status(ctx, name)
}

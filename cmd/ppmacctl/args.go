package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/iwtcode/ppmacAdapter/models"
)

// axisSpec - ось скана из флага --axis name:motor:start:end.
type axisSpec struct {
	name  string
	motor int
	start float64
	end   float64
}

func parseAxisSpec(s string) (axisSpec, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 4 {
		return axisSpec{}, fmt.Errorf("axis %q: expected name:motor:start:end", s)
	}
	if parts[0] == "" {
		return axisSpec{}, fmt.Errorf("axis %q: empty name", s)
	}

	motor, err := strconv.Atoi(parts[1])
	if err != nil || motor < 0 {
		return axisSpec{}, fmt.Errorf("axis %q: invalid motor number %q", s, parts[1])
	}
	start, err := strconv.ParseFloat(parts[2], 64)
	if err != nil {
		return axisSpec{}, fmt.Errorf("axis %q: invalid start %q", s, parts[2])
	}
	end, err := strconv.ParseFloat(parts[3], 64)
	if err != nil {
		return axisSpec{}, fmt.Errorf("axis %q: invalid end %q", s, parts[3])
	}

	return axisSpec{name: parts[0], motor: motor, start: start, end: end}, nil
}

// trajectory собирает траекторию с общими скоростью и ускорением.
func trajectory(specs []axisSpec, points int64, velocity, accel float64) models.Trajectory {
	moves := make([]models.Move, 0, len(specs))
	for _, s := range specs {
		moves = append(moves, models.Move{
			Axis:         s.name,
			Start:        s.start,
			End:          s.end,
			Velocity:     velocity,
			Acceleration: accel,
		})
	}
	return models.Trajectory{Moves: moves, Points: points}
}

package classifier

import (
	"fmt"
	"math"
)

// MaxAggressiveness is the highest supported filtering level.
const MaxAggressiveness = 3

// RMS thresholds per aggressiveness level. Higher levels demand more
// energy before a frame counts as speech.
var energyThresholds = [MaxAggressiveness + 1]float64{150, 300, 550, 900}

// EnergyDetector is an RMS-energy speech detector. It needs no model
// file and serves as the default detector backend. Aggressiveness 0-3
// selects progressively stricter energy thresholds.
type EnergyDetector struct {
	threshold float64
}

// NewEnergyDetector creates an energy detector for the given
// aggressiveness level (0-3).
func NewEnergyDetector(aggressiveness int) (*EnergyDetector, error) {
	if aggressiveness < 0 || aggressiveness > MaxAggressiveness {
		return nil, fmt.Errorf("aggressiveness must be between 0 and %d, got %d", MaxAggressiveness, aggressiveness)
	}

	return &EnergyDetector{threshold: energyThresholds[aggressiveness]}, nil
}

// Detect reports whether the window's RMS energy reaches the threshold.
func (d *EnergyDetector) Detect(samples []int16) (bool, error) {
	if len(samples) == 0 {
		return false, fmt.Errorf("empty sample window")
	}

	var energy float64
	for _, sample := range samples {
		energy += float64(sample) * float64(sample)
	}
	rms := math.Sqrt(energy / float64(len(samples)))

	return rms >= d.threshold, nil
}

// Threshold returns the configured RMS threshold.
func (d *EnergyDetector) Threshold() float64 {
	return d.threshold
}

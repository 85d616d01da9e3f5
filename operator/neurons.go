package operator

import (
	"fmt"
	"math"
)

// NeuronType is the external collaborator the design calls out as opaque:
// a per-step numeric kernel invoked by SimNeurons. This package ships the
// small, closed set of kernels Nengo's builder wires up
// (LIF/LIFRate/AdaptiveLIF/AdaptiveLIFRate/Izhikevich) so SimNeurons
// merges can be exercised and tested end to end; the full neuron-model
// zoo and anything stateful beyond these is out of scope.
//
// Two NeuronType values are the "same neuron model instance" for the
// purposes of SimNeurons.CanMerge iff their Key()s are equal, mirroring
// Nengo's value-equality check `self.neurons == other.neurons`.
type NeuronType interface {
	// Key is a stable identity string derived from the kernel's kind and
	// parameters.
	Key() string

	// NumStates is the number of additional per-neuron state signals
	// (beyond J and output) this kernel reads and writes, e.g. 2 for LIF
	// (voltage, refractory_time).
	NumStates() int

	// StepMath advances output (and states, in place) by one step of
	// size dt given input current J. len(states) must equal NumStates().
	StepMath(dt float64, j, output []float64, states [][]float64)
}

// RectifiedLinear fires at max(J, 0); it carries no state, matching
// Nengo's simplest NeuronType.
type RectifiedLinear struct{}

func (RectifiedLinear) Key() string { return "RectifiedLinear" }
func (RectifiedLinear) NumStates() int  { return 0 }
func (RectifiedLinear) StepMath(dt float64, j, output []float64, states [][]float64) {
	for i, v := range j {
		if v > 0 {
			output[i] = v
		} else {
			output[i] = 0
		}
	}
}

// LIFRate computes the steady-state firing rate of a leaky
// integrate-and-fire neuron without simulating spikes; it carries no
// state.
type LIFRate struct {
	TauRC float64
	TauRef float64
}

func (n LIFRate) Key() string { return fmt.Sprintf("LIFRate(%v,%v)", n.TauRC, n.TauRef) }
func (LIFRate) NumStates() int { return 0 }
func (n LIFRate) StepMath(dt float64, j, output []float64, states [][]float64) {
	for i, v := range j {
		if v <= 1 {
			output[i] = 0
			continue
		}
		output[i] = 1 / (n.TauRef - n.TauRC*math.Log1p(-1/v))
	}
}

// LIF simulates a leaky integrate-and-fire neuron with refractory
// period, tracking per-neuron voltage and refractory_time state.
type LIF struct {
	TauRC  float64
	TauRef float64
}

func (n LIF) Key() string { return fmt.Sprintf("LIF(%v,%v)", n.TauRC, n.TauRef) }
func (LIF) NumStates() int   { return 2 } // voltage, refractory_time
func (n LIF) StepMath(dt float64, j, output []float64, states [][]float64) {
	voltage, refractoryTime := states[0], states[1]
	for i, cur := range j {
		v := voltage[i]
		refTime := refractoryTime[i]

		dtSpike := clamp(dt-refTime, 0, dt)
		v += (cur - v) * (1 - math.Exp(-dtSpike/n.TauRC))
		if v < 0 {
			v = 0
		}

		spiked := 0.0
		if v > 1 {
			overshoot := (v - 1) / (v - voltage[i])
			spikeTime := dt * (1 - overshoot)
			refTime = n.TauRef + spikeTime
			v = 0
			spiked = 1
		} else {
			refTime -= dt
		}

		voltage[i] = v
		refractoryTime[i] = refTime
		output[i] = spiked / dt
	}
}

// AdaptiveLIFRate is LIFRate plus a slow adaptation current that
// suppresses firing after sustained input; it tracks one state signal
// (adaptation).
type AdaptiveLIFRate struct {
	LIFRate
	TauN float64
	IncN float64
}

func (n AdaptiveLIFRate) Key() string {
	return fmt.Sprintf("AdaptiveLIFRate(%v,%v,%v,%v)", n.TauRC, n.TauRef, n.TauN, n.IncN)
}
func (AdaptiveLIFRate) NumStates() int { return 1 }
func (n AdaptiveLIFRate) StepMath(dt float64, j, output []float64, states [][]float64) {
	adaptation := states[0]
	adjustedJ := make([]float64, len(j))
	for i, v := range j {
		adjustedJ[i] = v - adaptation[i]
	}
	n.LIFRate.StepMath(dt, adjustedJ, output, nil)
	for i := range adaptation {
		adaptation[i] += (dt / n.TauN) * (n.IncN*output[i] - adaptation[i])
	}
}

// AdaptiveLIF is LIF plus the same adaptation current as
// AdaptiveLIFRate; it tracks three state signals (voltage,
// refractory_time, adaptation).
type AdaptiveLIF struct {
	LIF
	TauN float64
	IncN float64
}

func (n AdaptiveLIF) Key() string {
	return fmt.Sprintf("AdaptiveLIF(%v,%v,%v,%v)", n.TauRC, n.TauRef, n.TauN, n.IncN)
}
func (AdaptiveLIF) NumStates() int    { return 3 }
func (n AdaptiveLIF) StepMath(dt float64, j, output []float64, states [][]float64) {
	voltage, refractoryTime, adaptation := states[0], states[1], states[2]
	adjustedJ := make([]float64, len(j))
	for i, v := range j {
		adjustedJ[i] = v - adaptation[i]
	}
	n.LIF.StepMath(dt, adjustedJ, output, [][]float64{voltage, refractoryTime})
	for i := range adaptation {
		adaptation[i] += (dt / n.TauN) * (n.IncN*output[i] - adaptation[i])
	}
}

// Izhikevich implements the two-variable Izhikevich spiking model,
// tracking voltage and recovery state.
type Izhikevich struct {
	A, B, C, D float64
}

func (n Izhikevich) Key() string {
	return fmt.Sprintf("Izhikevich(%v,%v,%v,%v)", n.A, n.B, n.C, n.D)
}
func (Izhikevich) NumStates() int { return 2 } // voltage, recovery
func (n Izhikevich) StepMath(dt float64, j, output []float64, states [][]float64) {
	voltage, recovery := states[0], states[1]
	const subSteps = 2
	dtSub := dt / subSteps
	for i, cur := range j {
		v, u := voltage[i], recovery[i]
		spiked := 0.0
		for s := 0; s < subSteps; s++ {
			dv := 0.04*v*v + 5*v + 140 - u + cur
			v += dv * dtSub
			if v >= 30 {
				v = n.C
				u += n.D
				spiked = 1
			}
		}
		u += dt * n.A * (n.B*v - u)
		voltage[i] = v
		recovery[i] = u
		output[i] = spiked / dt
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

package control

import "math"

// PIDController implements a discrete PID controller around a setpoint
type PIDController struct {
	gains  PIDConstants
	period float64

	continuous         bool
	minInput, maxInput float64

	positionTolerance float64
	velocityTolerance float64

	// State
	setpoint      float64
	integral      float64
	prevError     float64
	velocityError float64
	initialized   bool
}

// NewPIDController creates a PID controller; a non-positive period falls back to DefaultPeriodS
func NewPIDController(gains PIDConstants, period float64) *PIDController {
	if period <= 0 {
		period = DefaultPeriodS
	}
	return &PIDController{
		gains:             gains,
		period:            period,
		positionTolerance: 0.05,
		velocityTolerance: math.Inf(1),
	}
}

// EnableContinuousInput treats min and max as the same point, e.g. -pi and pi
func (pid *PIDController) EnableContinuousInput(min, max float64) {
	pid.continuous = true
	pid.minInput = min
	pid.maxInput = max
}

// SetTolerance sets the error band used by AtSetpoint
func (pid *PIDController) SetTolerance(position, velocity float64) {
	pid.positionTolerance = position
	pid.velocityTolerance = velocity
}

// Reset clears the PID state
func (pid *PIDController) Reset() {
	pid.integral = 0.0
	pid.prevError = 0.0
	pid.velocityError = 0.0
	pid.initialized = false
}

func (pid *PIDController) errorTo(measurement, setpoint float64) float64 {
	err := setpoint - measurement
	if pid.continuous {
		half := (pid.maxInput - pid.minInput) / 2
		err = InputModulus(err, -half, half)
	}
	return err
}

// Calculate computes the control output for one period
func (pid *PIDController) Calculate(measurement, setpoint float64) float64 {
	pid.setpoint = setpoint
	err := pid.errorTo(measurement, setpoint)

	if pid.initialized {
		pid.velocityError = (err - pid.prevError) / pid.period
	} else {
		// no derivative kick on the first sample
		pid.velocityError = 0
		pid.initialized = true
	}

	if pid.gains.Ki != 0 {
		pid.integral += err * pid.period
		if lim := pid.gains.IntegralLimit; lim > 0 {
			pid.integral = ClampFloat(pid.integral, -lim, lim)
		}
	}

	pid.prevError = err
	return pid.gains.Kp*err + pid.gains.Ki*pid.integral + pid.gains.Kd*pid.velocityError
}

// AtSetpoint reports whether the last error is inside the tolerance band
func (pid *PIDController) AtSetpoint() bool {
	return pid.initialized &&
		math.Abs(pid.prevError) < pid.positionTolerance &&
		math.Abs(pid.velocityError) < pid.velocityTolerance
}

// GetDiagnostics returns current PID state for logging/debugging
func (pid *PIDController) GetDiagnostics() PIDDiagnostics {
	return PIDDiagnostics{
		Setpoint: pid.setpoint,
		Error:    pid.prevError,
		Integral: pid.integral,
		P:        pid.gains.Kp * pid.prevError,
		I:        pid.gains.Ki * pid.integral,
		D:        pid.gains.Kd * pid.velocityError,
	}
}

// PIDDiagnostics contains PID internal state for monitoring
type PIDDiagnostics struct {
	Setpoint float64
	Error    float64
	Integral float64
	P        float64
	I        float64
	D        float64
}

package control

import "math"

// SimpleMotorFeedforward predicts the voltage a motor needs to hold a
// velocity and acceleration: a constant term opposing motion, a term
// proportional to velocity and one proportional to acceleration.
type SimpleMotorFeedforward struct {
	cfg FeedforwardConstants
}

func NewSimpleMotorFeedforward(cfg FeedforwardConstants) *SimpleMotorFeedforward {
	return &SimpleMotorFeedforward{cfg: cfg}
}

// Calculate returns volts for velocity (m/s) and acceleration (m/s²)
func (ff *SimpleMotorFeedforward) Calculate(velocity, acceleration float64) float64 {
	static := 0.0
	if velocity > 0 {
		static = ff.cfg.Ks
	} else if velocity < 0 {
		static = -ff.cfg.Ks
	}
	return static + ff.cfg.Kv*velocity + ff.cfg.Ka*acceleration
}

// MaxAchievableVelocity is the steady-state speed reachable at maxVoltage
// while accelerating at acceleration.
func (ff *SimpleMotorFeedforward) MaxAchievableVelocity(maxVoltage, acceleration float64) float64 {
	if ff.cfg.Kv == 0 {
		return math.Inf(1)
	}
	return (maxVoltage - ff.cfg.Ks - ff.cfg.Ka*acceleration) / ff.cfg.Kv
}

// SlewRateLimiter bounds how fast a setpoint may change, in units per second.
type SlewRateLimiter struct {
	rate float64
	prev float64
}

func NewSlewRateLimiter(ratePerSecond, initial float64) *SlewRateLimiter {
	return &SlewRateLimiter{rate: math.Abs(ratePerSecond), prev: initial}
}

// Calculate moves toward input by at most rate*dt and returns the new value.
// A zero rate passes input through.
func (s *SlewRateLimiter) Calculate(input, dt float64) float64 {
	if s.rate == 0 {
		s.prev = input
		return input
	}
	step := s.rate * dt
	s.prev += ClampFloat(input-s.prev, -step, step)
	return s.prev
}

func (s *SlewRateLimiter) Reset(value float64) { s.prev = value }

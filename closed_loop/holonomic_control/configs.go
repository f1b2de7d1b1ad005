package control

// PIDConstants holds PID gains for one controlled axis
type PIDConstants struct {
	Kp float64 `yaml:"kp" json:"kp"`
	Ki float64 `yaml:"ki" json:"ki"`
	Kd float64 `yaml:"kd" json:"kd"`

	// IntegralLimit bounds the accumulated error; zero leaves it unbounded
	IntegralLimit float64 `yaml:"integral_limit,omitempty" json:"integral_limit,omitempty"`
}

// ControllerConfig configures the holonomic path-following controller
type ControllerConfig struct {
	Translation PIDConstants `yaml:"translation" json:"translation"`
	Rotation    PIDConstants `yaml:"rotation" json:"rotation"`
	PeriodS     float64      `yaml:"period_s" json:"period_s"`
}

// FeedforwardConstants are the characterized gains of a velocity-controlled motor
type FeedforwardConstants struct {
	Ks float64 `yaml:"ks" json:"ks"` // volts to overcome static friction
	Kv float64 `yaml:"kv" json:"kv"` // volts per m/s
	Ka float64 `yaml:"ka" json:"ka"` // volts per m/s²
}

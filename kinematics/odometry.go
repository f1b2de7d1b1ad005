package kinematics

import (
	"fmt"

	"swerve-auto-core/geometry"
)

// SwerveDriveOdometry integrates module position deltas into a field pose.
// Heading comes from the kinematic twist, so wheel slip accumulates as
// heading drift.
type SwerveDriveOdometry struct {
	kin      *SwerveDriveKinematics
	pose     geometry.Pose2d
	previous []SwerveModulePosition
}

func NewSwerveDriveOdometry(kin *SwerveDriveKinematics, positions []SwerveModulePosition, initial geometry.Pose2d) (*SwerveDriveOdometry, error) {
	if len(positions) != kin.NumModules() {
		return nil, fmt.Errorf("got %d module positions for %d modules", len(positions), kin.NumModules())
	}
	return &SwerveDriveOdometry{
		kin:      kin,
		pose:     initial,
		previous: append([]SwerveModulePosition(nil), positions...),
	}, nil
}

// ResetPosition sets the pose while keeping the current module positions as the baseline.
func (o *SwerveDriveOdometry) ResetPosition(positions []SwerveModulePosition, pose geometry.Pose2d) {
	o.pose = pose
	o.previous = append(o.previous[:0], positions...)
}

// Update folds the motion since the previous call into the pose.
func (o *SwerveDriveOdometry) Update(positions []SwerveModulePosition) (geometry.Pose2d, error) {
	if len(positions) != len(o.previous) {
		return o.pose, fmt.Errorf("got %d module positions for %d modules", len(positions), len(o.previous))
	}
	deltas := make([]SwerveModulePosition, len(positions))
	for i, p := range positions {
		deltas[i] = SwerveModulePosition{
			DistanceMeters: p.DistanceMeters - o.previous[i].DistanceMeters,
			Angle:          p.Angle,
		}
	}
	twist, err := o.kin.ToTwist2d(deltas...)
	if err != nil {
		return o.pose, err
	}
	o.pose = o.pose.Exp(twist)
	o.previous = append(o.previous[:0], positions...)
	return o.pose, nil
}

func (o *SwerveDriveOdometry) Pose() geometry.Pose2d { return o.pose }

package landmark

import (
	"fmt"
	"strings"
)

// Name identifies an anatomical landmark. The set of names is closed.
type Name int

// Landmark names tracked by the pipeline.
const (
	Nose Name = iota
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
	LeftEar
	RightEar

	numNames
)

var names = [numNames]string{
	Nose:          "nose",
	LeftShoulder:  "left_shoulder",
	RightShoulder: "right_shoulder",
	LeftElbow:     "left_elbow",
	RightElbow:    "right_elbow",
	LeftWrist:     "left_wrist",
	RightWrist:    "right_wrist",
	LeftHip:       "left_hip",
	RightHip:      "right_hip",
	LeftKnee:      "left_knee",
	RightKnee:     "right_knee",
	LeftAnkle:     "left_ankle",
	RightAnkle:    "right_ankle",
	LeftEar:       "left_ear",
	RightEar:      "right_ear",
}

// MediaPipe Pose landmark indices for each tracked name.
var poseIndex = [numNames]int{
	Nose:          0,
	LeftEar:       7,
	RightEar:      8,
	LeftShoulder:  11,
	RightShoulder: 12,
	LeftElbow:     13,
	RightElbow:    14,
	LeftWrist:     15,
	RightWrist:    16,
	LeftHip:       23,
	RightHip:      24,
	LeftKnee:      25,
	RightKnee:     26,
	LeftAnkle:     27,
	RightAnkle:    28,
}

// All returns every tracked name in declaration order.
func All() []Name {
	out := make([]Name, numNames)
	for i := range out {
		out[i] = Name(i)
	}
	return out
}

// Valid reports whether n is one of the tracked names.
func (n Name) Valid() bool {
	return n >= 0 && n < numNames
}

func (n Name) String() string {
	if !n.Valid() {
		return fmt.Sprintf("landmark(%d)", int(n))
	}
	return names[n]
}

// PoseIndex returns the MediaPipe Pose index of n.
func (n Name) PoseIndex() int {
	if !n.Valid() {
		return -1
	}
	return poseIndex[n]
}

// ParseName resolves a snake_case landmark name.
func ParseName(s string) (Name, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for i, v := range names {
		if v == s {
			return Name(i), nil
		}
	}
	return 0, fmt.Errorf("%q: %w", s, ErrUnknownName)
}

// FromPoseIndex maps a MediaPipe Pose index to a tracked name.
// Indices the pipeline does not track return false.
func FromPoseIndex(idx int) (Name, bool) {
	for i, v := range poseIndex {
		if v == idx {
			return Name(i), true
		}
	}
	return 0, false
}

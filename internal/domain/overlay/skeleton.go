package overlay

// Landmark indices in COCO keypoint order.
const (
	nose = iota
	leftEye
	rightEye
	leftEar
	rightEar
	leftShoulder
	rightShoulder
	leftElbow
	rightElbow
	leftWrist
	rightWrist
	leftHip
	rightHip
	leftKnee
	rightKnee
	leftAnkle
	rightAnkle
)

// landmarkLabels maps a landmark index to its marker label.
var landmarkLabels = [...]string{
	"nose",
	"left_eye",
	"right_eye",
	"left_ear",
	"right_ear",
	"left_shoulder",
	"right_shoulder",
	"left_elbow",
	"right_elbow",
	"left_wrist",
	"right_wrist",
	"left_hip",
	"right_hip",
	"left_knee",
	"right_knee",
	"left_ankle",
	"right_ankle",
}

// connection is one skeletal edge between two landmark indices.
type connection struct {
	a int
	b int
}

// skeleton groups the joint graph's edges by body region. Both endpoints
// must be visible for an edge to be drawn.
var skeleton = map[Region][]connection{
	RegionHead: {
		{nose, leftEye}, {nose, rightEye},
		{leftEye, leftEar}, {rightEye, rightEar},
	},
	RegionTorso: {
		{leftShoulder, rightShoulder},
		{leftShoulder, leftHip}, {rightShoulder, rightHip},
		{leftHip, rightHip},
	},
	RegionLeftArm: {
		{leftShoulder, leftElbow}, {leftElbow, leftWrist},
	},
	RegionRightArm: {
		{rightShoulder, rightElbow}, {rightElbow, rightWrist},
	},
	RegionLeftLeg: {
		{leftHip, leftKnee}, {leftKnee, leftAnkle},
	},
	RegionRightLeg: {
		{rightHip, rightKnee}, {rightKnee, rightAnkle},
	},
}

// regionOrder fixes the draw order so identical inputs produce identical
// draw-call sequences.
var regionOrder = []Region{
	RegionHead, RegionTorso,
	RegionLeftArm, RegionRightArm,
	RegionLeftLeg, RegionRightLeg,
}

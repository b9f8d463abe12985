package detection

import (
	"math"

	"github.com/ironsheep/parkspot-mcp/internal/geometry"
)

// ClassCar is the COCO class id for "car".
const ClassCar = 2

// Detection is one merged, labelled detector result.
type Detection struct {
	// Class is the human-readable label resolved from ClassID.
	Class string `json:"class"`

	// ClassID is the detector's numeric class.
	ClassID int `json:"class_id"`

	// Confidence is rounded to two decimals (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	// Box holds the detector box truncated to integer pixels.
	Box geometry.Rect `json:"box"`
}

// Labels maps class ids to names.
type Labels []string

// COCOLabels is the 80-class COCO table used by YOLO-family detectors.
var COCOLabels = Labels{
	"person", "bicycle", "car", "motorcycle", "airplane", "bus", "train", "truck", "boat",
	"traffic light", "fire hydrant", "stop sign", "parking meter", "bench", "bird", "cat",
	"dog", "horse", "sheep", "cow", "elephant", "bear", "zebra", "giraffe", "backpack",
	"umbrella", "handbag", "tie", "suitcase", "frisbee", "skis", "snowboard", "sports ball",
	"kite", "baseball bat", "baseball glove", "skateboard", "surfboard", "tennis racket",
	"bottle", "wine glass", "cup", "fork", "knife", "spoon", "bowl", "banana", "apple",
	"sandwich", "orange", "broccoli", "carrot", "hot dog", "pizza", "donut", "cake", "chair",
	"couch", "potted plant", "bed", "dining table", "toilet", "tv", "laptop", "mouse",
	"remote", "keyboard", "cell phone", "microwave", "oven", "toaster", "sink",
	"refrigerator", "book", "clock", "vase", "scissors", "teddy bear", "hair drier",
	"toothbrush",
}

// Name returns the label for id, or "unknown" when id is out of range.
func (l Labels) Name(id int) string {
	if id < 0 || id >= len(l) {
		return "unknown"
	}
	return l[id]
}

// NewDetection converts a merged box into a Detection.
func NewDetection(b geometry.Box, labels Labels) Detection {
	return Detection{
		Class:      labels.Name(b.ClassID),
		ClassID:    b.ClassID,
		Confidence: math.Round(b.Confidence*100) / 100,
		Box:        b.Rect(),
	}
}

// ToDetections converts boxes in order.
func ToDetections(boxes []geometry.Box, labels Labels) []Detection {
	out := make([]Detection, 0, len(boxes))
	for _, b := range boxes {
		out = append(out, NewDetection(b, labels))
	}
	return out
}

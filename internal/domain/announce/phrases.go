package announce

import "fmt"

// defaultPhrases maps known error categories to spoken phrasing.
var defaultPhrases = map[string]string{
	"arm_angle":     "Watch your arm angle",
	"back_straight": "Keep your back straight",
	"knee_bend":     "Bend your knees more",
	"head_position": "Keep your head level",
	"stance_width":  "Adjust your stance width",
	"hip_rotation":  "Square your hips",
}

// genericPhrase is the fallback for categories with no registered phrasing.
func genericPhrase(category string) string {
	return fmt.Sprintf("error in %s", category)
}

package routine

var guides = map[string]string{
	"Pushups":                "Hands under shoulders, body in one line. Chest to a fist above the floor, elbows at 45 degrees.",
	"Door Rows":              "Grip both door handles, feet under the door, lean back. Pull chest to the edge, squeeze shoulder blades.",
	"DB Lateral Raises":      "Slight bend in the elbows, lead with the elbows, stop at shoulder height. Slow on the way down.",
	"DB Bicep Curls":         "Elbows pinned to the sides, no swinging. Full extension at the bottom.",
	"Bulgarian Split Squats": "Rear foot on a chair, front shin vertical. Drop the back knee straight down.",
	"Bodyweight Squats":      "Feet shoulder width, knees track the toes, hips below the knees.",
	"DB Calf Raises":         "Balls of the feet on a step, full stretch at the bottom, pause at the top.",
	"Plank":                  "Forearms under shoulders, glutes and abs tight, do not let the hips sag.",
	"Pike Pushups":           "Hips high, head goes between the hands. Keep the elbows tucked.",
	"Diamond Pushups":        "Thumbs and index fingers touch under the chest. Elbows stay close to the body.",
	"DB Front Raises":        "Raise to eye level with straight arms, control the descent.",
	"DB Overhead Extensions": "Elbows point up and stay narrow, lower behind the head, extend fully.",
	"Glute Bridges":          "Heels close to the glutes, drive through the heels, squeeze at the top for a second.",
	"Reverse Lunges":         "Step back, both knees at 90 degrees, push through the front heel to stand.",
	"Side Lunges":            "Sit back into the working hip, the other leg stays straight, chest up.",
	"Leg Raises":             "Lower back pressed into the floor, lower the legs slowly without touching down.",
}

// Guide returns the form cues for an exercise. Unknown exercises have no guide.
func Guide(exerciseName string) (string, bool) {
	g, ok := guides[exerciseName]
	return g, ok
}

// Guides returns the cues for every exercise of the routine that has one.
func (r Routine) Guides() map[string]string {
	res := make(map[string]string)
	for _, ex := range r.Exercises {
		if g, ok := guides[ex.Name]; ok {
			res[ex.Name] = g
		}
	}
	return res
}

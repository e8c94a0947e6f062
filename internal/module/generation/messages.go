package generation

import "github.com/uniedit/videogen/internal/module/provider"

const waitHint = "This can take a few minutes. Please hang on!"
const almostDone = "Almost there! Finishing the video render..."

var loadingMessages = map[provider.Family][]string{
	provider.FamilySeedance: {
		"Requesting a video from Seedance...",
		"Turning your idea into footage...",
		"Processing data for a high quality render...",
		waitHint,
		"Applying sound effects and lens settings...",
		almostDone,
	},
	provider.FamilyWan: {
		"Requesting a video from Wan 2.6...",
		"Composing shots from your prompt...",
		"Processing data for a high quality render...",
		waitHint,
		"Stitching motion between frames...",
		almostDone,
	},
	provider.FamilyKling: {
		"Requesting a video from Kling 2.6...",
		"Turning your idea into footage...",
		"Processing data for a high quality render...",
		waitHint,
		"Aligning sound and camera movement...",
		almostDone,
	},
	provider.FamilyGrok: {
		"Requesting a video from Grok Imagine...",
		"Converting your text into video...",
		"Generating consistent motion with synced audio...",
		waitHint,
		"Polishing the clip for the final render...",
		almostDone,
	},
	provider.FamilyHailuo: {
		"Requesting a video from Hailuo 2.3...",
		"Building realistic motion from your image and prompt...",
		"Handling complex movement, lighting and facial detail...",
		waitHint,
		"Rendering cinematic visuals and fabric texture...",
		almostDone,
	},
	provider.FamilySora: {
		"Requesting a video from Sora 2...",
		"Turning your idea into footage...",
		waitHint,
		"Composing scenes and camera work...",
		almostDone,
	},
	provider.FamilyVeo: {
		"Requesting a video from Veo 3.1...",
		"Generating frames and native audio...",
		waitHint,
		"Refining motion and lighting...",
		almostDone,
	},
}

// LoadingMessages returns the progress messages shown while a run of family is in flight.
func LoadingMessages(family provider.Family) []string {
	if msgs, ok := loadingMessages[family]; ok {
		return msgs
	}
	return []string{"Generating your video...", waitHint}
}

package engine

// defaultInstruction is the editing brief sent alongside the source image.
// The provider treats it as an opaque capability; nothing else in the
// pipeline depends on its content.
const defaultInstruction = "Edit my selfie into a flashy night paparazzi shot: diamond grill, " +
	"iced-out watch by my face, 1 ring; harsh on-camera flash, slight motion blur, " +
	"VHS grain, cool blue tint, shallow depth of field, high contrast. Use subtle, " +
	"high-intensity micro-glints only on the jewelry (grill/watch/rings) with no bloom " +
	"or lens flares; zero sparkles on skin, hair, clothes, or background. The background " +
	"is black and dark and blurry. 35mm film style with noticeable grain, dust, and scratches."

package options

import (
	"slices"
	"strconv"
)

// Mode is an exposure mode as offered by the mode picker.
type Mode string

const (
	ModeAuto    Mode = "auto"
	ModeShutter Mode = "shutter"
	ModeISO     Mode = "iso"
	ModeManual  Mode = "manual"
)

// Modes lists the exposure modes in picker order.
var Modes = []Mode{ModeAuto, ModeShutter, ModeISO, ModeManual}

// exposurePrograms maps each mode to the camera's exposureProgram code.
var exposurePrograms = map[Mode]int{
	ModeAuto:    2,
	ModeShutter: 4,
	ModeISO:     9,
	ModeManual:  1,
}

// ExposureProgram returns the exposureProgram code for m.
func (m Mode) ExposureProgram() (int, bool) {
	p, ok := exposurePrograms[m]
	return p, ok
}

// ParseMode validates a mode name.
func ParseMode(s string) (Mode, bool) {
	m := Mode(s)
	_, ok := exposurePrograms[m]
	return m, ok
}

// ModeForProgram maps an exposureProgram code back to its mode.
func ModeForProgram(program int) (Mode, bool) {
	for m, p := range exposurePrograms {
		if p == program {
			return m, true
		}
	}
	return "", false
}

// Choice is one picker entry. Val is the JSON literal sent to the camera.
type Choice struct {
	Val  string `json:"val"`
	Text string `json:"text"`
	Icon string `json:"icon,omitempty"`
}

// ISOSupport lists the selectable ISO values.
var ISOSupport = []string{
	"64", "80", "100", "125", "160", "200", "250", "320", "400", "500",
	"640", "800", "1000", "1250", "1600", "2000", "2500", "3200",
}

// ManualShutterSpeeds covers 60 s down to 1/25000 s.
var ManualShutterSpeeds = []Choice{
	{Val: "60", Text: "60"},
	{Val: "30", Text: "30"},
	{Val: "25", Text: "25"},
	{Val: "20", Text: "20"},
	{Val: "15", Text: "15"},
	{Val: "13", Text: "13"},
	{Val: "10", Text: "10"},
	{Val: "8", Text: "8"},
	{Val: "6", Text: "6"},
	{Val: "5", Text: "5"},
	{Val: "4", Text: "4"},
	{Val: "3.2", Text: "3.2"},
	{Val: "2.5", Text: "2.5"},
	{Val: "2", Text: "2"},
	{Val: "1.6", Text: "1.6"},
	{Val: "1.3", Text: "1.3"},
	{Val: "1", Text: "1"},
	{Val: "0.76923076", Text: "1/1.3"},
	{Val: "0.625", Text: "1/1.6"},
	{Val: "0.5", Text: "1/2"},
	{Val: "0.4", Text: "1/2.5"},
	{Val: "0.33333333", Text: "1/3"},
	{Val: "0.25", Text: "1/4"},
	{Val: "0.2", Text: "1/5"},
	{Val: "0.16666666", Text: "1/6"},
	{Val: "0.125", Text: "1/8"},
	{Val: "0.1", Text: "1/10"},
	{Val: "0.07692307", Text: "1/13"},
	{Val: "0.06666666", Text: "1/15"},
	{Val: "0.05", Text: "1/20"},
	{Val: "0.04", Text: "1/25"},
	{Val: "0.03333333", Text: "1/30"},
	{Val: "0.025", Text: "1/40"},
	{Val: "0.02", Text: "1/50"},
	{Val: "0.01666666", Text: "1/60"},
	{Val: "0.0125", Text: "1/80"},
	{Val: "0.01", Text: "1/100"},
	{Val: "0.008", Text: "1/125"},
	{Val: "0.00625", Text: "1/160"},
	{Val: "0.005", Text: "1/200"},
	{Val: "0.004", Text: "1/250"},
	{Val: "0.003125", Text: "1/320"},
	{Val: "0.0025", Text: "1/400"},
	{Val: "0.002", Text: "1/500"},
	{Val: "0.0015625", Text: "1/640"},
	{Val: "0.00125", Text: "1/800"},
	{Val: "0.001", Text: "1/1000"},
	{Val: "0.0008", Text: "1/1250"},
	{Val: "0.000625", Text: "1/1600"},
	{Val: "0.0005", Text: "1/2000"},
	{Val: "0.0004", Text: "1/2500"},
	{Val: "0.0003125", Text: "1/3200"},
	{Val: "0.00025", Text: "1/4000"},
	{Val: "0.0002", Text: "1/5000"},
	{Val: "0.00015625", Text: "1/6400"},
	{Val: "0.000125", Text: "1/8000"},
	{Val: "0.0001", Text: "1/10000"},
	{Val: "0.00008", Text: "1/12500"},
	{Val: "0.0000625", Text: "1/16000"},
	{Val: "0.00005", Text: "1/20000"},
	{Val: "0.00004", Text: "1/25000"},
}

// PriorityShutterSpeeds covers 1/8 s down to 1/25000 s. It has its own
// backing array.
var PriorityShutterSpeeds = slices.Clone(ManualShutterSpeeds[25:])

// EVSupport lists the exposure compensation steps.
var EVSupport = []string{
	"-2", "-1.7", "-1.3", "-1", "-0.7", "-0.3", "0", "0.3", "0.7", "1", "1.3", "1.7", "2",
}

// ColorTemperatureWB is the whiteBalance value that enables _colorTemperature.
const ColorTemperatureWB = "_colorTemperature"

// WhiteBalancePresets lists the preset white balance modes.
var WhiteBalancePresets = []Choice{
	{Val: "auto", Text: "Auto", Icon: "icon--wb_auto"},
	{Val: "daylight", Text: "Outdoor", Icon: "icon--wb_sun-current"},
	{Val: "shade", Text: "Shade", Icon: "icon--wb_shade-current"},
	{Val: "cloudy-daylight", Text: "Cloudy", Icon: "icon--wb_cloud-current"},
	{Val: "incandescent", Text: "Incandescent light 1", Icon: "icon--wb_inc_1"},
	{Val: "_warmWhiteFluorescent", Text: "Incandescent light 2", Icon: "icon--wb_inc_2"},
	{Val: "_dayLightFluorescent", Text: "Daylight color fluorescent light", Icon: "icon--wb_fluorescent-d-current"},
	{Val: "_dayWhiteFluorescent", Text: "Natural white fluorescent light", Icon: "icon--wb_fluorescent-n-current"},
	{Val: "fluorescent", Text: "White fluorescent light", Icon: "icon--wb_fluorescent-w-current"},
	{Val: "_bulbFluorescent", Text: "Light bulb color fluorescent light", Icon: "icon--wb_fluorescent-l-current"},
}

// ColorTemperatures lists 2500 K to 10000 K in 100 K steps.
var ColorTemperatures = func() []string {
	var out []string
	for k := 2500; k <= 10000; k += 100 {
		out = append(out, strconv.Itoa(k))
	}
	return out
}()

// Filters lists the image processing filters.
var Filters = []Choice{
	{Val: "off", Text: "OFF"},
	{Val: "Noise Reduction", Text: "Noise reduct."},
	{Val: "DR Comp", Text: "DR Compensat."},
	{Val: "hdr", Text: "HDR Rendering."},
}

// ShutterVolumes are the selectable shutter sound levels, loudest first.
var ShutterVolumes = []int{100, 67, 33, 0}

// ValidShutterVolume reports whether v is one of ShutterVolumes.
func ValidShutterVolume(v int) bool {
	for _, s := range ShutterVolumes {
		if s == v {
			return true
		}
	}
	return false
}

// Defaults applied by NewControls.
const (
	DefaultEV               = "0"
	DefaultISO              = "100"
	DefaultShutterSpeed     = "0.01666666"
	DefaultWhiteBalance     = "auto"
	DefaultColorTemperature = "5000"
	DefaultFilter           = "off"
	DefaultShutterVolume    = 100
)

// Package options projects camera option maps onto the shooting controls and
// back. Index fields select an entry in the matching table; -1 means nothing
// is selected and the field is left out of Options.
package options

import (
	"encoding/json"
	"strconv"

	"theta_preview/native/internal/domain"
)

// Controls is the selection state of the shooting controls.
type Controls struct {
	Mode                    Mode `json:"mode"`
	ExposureCompensation    int  `json:"exposureCompensation"` // EVSupport
	ISO                     int  `json:"iso"`                  // ISOSupport
	ShutterSpeed            int  `json:"shutterSpeed"`         // PriorityShutterSpeeds
	ManualShutterSpeed      int  `json:"manualShutterSpeed"`   // ManualShutterSpeeds
	WhiteBalance            int  `json:"whiteBalance"`         // WhiteBalancePresets
	ColorTemperature        int  `json:"colorTemperature"`     // ColorTemperatures
	Filter                  int  `json:"filter"`               // Filters
	SpecifyColorTemperature bool `json:"specifyColorTemperature"`
}

// NewControls returns the controls in their initial state.
func NewControls() Controls {
	return Controls{
		Mode:                 ModeAuto,
		ExposureCompensation: indexOfNumber(EVSupport, DefaultEV),
		ISO:                  indexOfNumber(ISOSupport, DefaultISO),
		ShutterSpeed:         indexOfChoiceNumber(PriorityShutterSpeeds, DefaultShutterSpeed),
		ManualShutterSpeed:   indexOfChoiceNumber(ManualShutterSpeeds, DefaultShutterSpeed),
		WhiteBalance:         indexOfChoice(WhiteBalancePresets, DefaultWhiteBalance),
		ColorTemperature:     indexOfNumber(ColorTemperatures, DefaultColorTemperature),
		Filter:               indexOfChoice(Filters, DefaultFilter),
	}
}

// Apply projects camera options onto the controls. The mode only changes
// when switchMode is set; the fields read depend on the reported exposure
// program. Unknown programs leave the selections alone.
func (c *Controls) Apply(opts domain.CameraOptions, switchMode bool) {
	wb, _ := opts["whiteBalance"].(string)
	c.SpecifyColorTemperature = wb == ColorTemperatureWB

	program, ok := toFloat(opts["exposureProgram"])
	if !ok {
		return
	}
	mode, ok := ModeForProgram(int(program))
	if !ok {
		return
	}
	if switchMode {
		c.Mode = mode
	}

	switch mode {
	case ModeShutter:
		c.ShutterSpeed = matchChoiceNumber(PriorityShutterSpeeds, opts["shutterSpeed"])
	case ModeISO:
		c.ISO = matchNumber(ISOSupport, opts["iso"])
	case ModeManual:
		c.ISO = matchNumber(ISOSupport, opts["iso"])
		c.ManualShutterSpeed = matchChoiceNumber(ManualShutterSpeeds, opts["shutterSpeed"])
	}
	if mode != ModeManual {
		c.ExposureCompensation = matchNumber(EVSupport, opts["exposureCompensation"])
	}

	if c.SpecifyColorTemperature {
		c.ColorTemperature = matchNumber(ColorTemperatures, opts["_colorTemperature"])
	} else {
		c.WhiteBalance = max(indexOfChoice(WhiteBalancePresets, wb), 0)
	}

	if f, ok := opts["_filter"].(string); ok {
		c.Filter = max(indexOfChoice(Filters, f), 0)
	}
}

// Options renders the controls as a setOptions payload restricted to the
// fields the current mode uses.
func (c Controls) Options() domain.CameraOptions {
	out := domain.CameraOptions{}

	program, ok := c.Mode.ExposureProgram()
	if !ok {
		program = exposurePrograms[ModeAuto]
	}
	out["exposureProgram"] = json.Number(strconv.Itoa(program))

	switch c.Mode {
	case ModeShutter:
		setChoiceNumber(out, "shutterSpeed", PriorityShutterSpeeds, c.ShutterSpeed)
	case ModeISO:
		setNumber(out, "iso", ISOSupport, c.ISO)
	case ModeManual:
		setNumber(out, "iso", ISOSupport, c.ISO)
		setChoiceNumber(out, "shutterSpeed", ManualShutterSpeeds, c.ManualShutterSpeed)
	}
	if c.Mode != ModeManual {
		setNumber(out, "exposureCompensation", EVSupport, c.ExposureCompensation)
	}

	if c.SpecifyColorTemperature {
		out["whiteBalance"] = ColorTemperatureWB
		setNumber(out, "_colorTemperature", ColorTemperatures, c.ColorTemperature)
	} else if inRange(c.WhiteBalance, len(WhiteBalancePresets)) {
		out["whiteBalance"] = WhiteBalancePresets[c.WhiteBalance].Val
	}

	if inRange(c.Filter, len(Filters)) {
		out["_filter"] = Filters[c.Filter].Val
	}
	return out
}

func inRange(i, n int) bool { return i >= 0 && i < n }

func setNumber(out domain.CameraOptions, key string, table []string, i int) {
	if inRange(i, len(table)) {
		out[key] = json.Number(table[i])
	}
}

func setChoiceNumber(out domain.CameraOptions, key string, table []Choice, i int) {
	if inRange(i, len(table)) {
		out[key] = json.Number(table[i].Val)
	}
}

func indexOfChoice(table []Choice, val string) int {
	for i, c := range table {
		if c.Val == val {
			return i
		}
	}
	return -1
}

func indexOfNumber(table []string, val string) int {
	return matchNumber(table, json.Number(val))
}

func indexOfChoiceNumber(table []Choice, val string) int {
	return matchChoiceNumber(table, json.Number(val))
}

// matchNumber finds v among numeric literals by value, so "1e2" matches "100".
func matchNumber(table []string, v any) int {
	f, ok := toFloat(v)
	if !ok {
		return -1
	}
	for i, s := range table {
		if g, err := strconv.ParseFloat(s, 64); err == nil && g == f {
			return i
		}
	}
	return -1
}

func matchChoiceNumber(table []Choice, v any) int {
	f, ok := toFloat(v)
	if !ok {
		return -1
	}
	for i, c := range table {
		if g, err := strconv.ParseFloat(c.Val, 64); err == nil && g == f {
			return i
		}
	}
	return -1
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	case float64:
		return n, true
	case int:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

package options

import (
	"encoding/json"
	"sort"
	"testing"

	"theta_preview/native/internal/domain"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func keys(m domain.CameraOptions) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func TestTables(t *testing.T) {
	assert.Len(t, ManualShutterSpeeds, 61)
	assert.Len(t, PriorityShutterSpeeds, 36)
	assert.Equal(t, "1/8", PriorityShutterSpeeds[0].Text)
	assert.Equal(t, "1/25000", PriorityShutterSpeeds[len(PriorityShutterSpeeds)-1].Text)
	assert.Equal(t, ManualShutterSpeeds[25:], PriorityShutterSpeeds)
	assert.NotSame(t, &ManualShutterSpeeds[25], &PriorityShutterSpeeds[0], "tables must not alias")
	assert.Len(t, ColorTemperatures, 76)
	assert.Equal(t, "2500", ColorTemperatures[0])
	assert.Equal(t, "10000", ColorTemperatures[75])
	assert.Len(t, ISOSupport, 18)
	assert.Len(t, EVSupport, 13)
}

func TestModes(t *testing.T) {
	for mode, program := range map[Mode]int{ModeAuto: 2, ModeShutter: 4, ModeISO: 9, ModeManual: 1} {
		got, ok := mode.ExposureProgram()
		require.True(t, ok)
		assert.Equal(t, program, got)

		back, ok := ModeForProgram(program)
		require.True(t, ok)
		assert.Equal(t, mode, back)
	}

	_, ok := ParseMode("program")
	assert.False(t, ok)
	_, ok = ModeForProgram(3)
	assert.False(t, ok)
}

func TestNewControls_Defaults(t *testing.T) {
	c := NewControls()
	want := domain.CameraOptions{
		"exposureProgram":      json.Number("2"),
		"exposureCompensation": json.Number("0"),
		"whiteBalance":         "auto",
		"_filter":              "off",
	}
	if diff := cmp.Diff(want, c.Options()); diff != "" {
		t.Errorf("Options() mismatch (-want +got):\n%s", diff)
	}
}

func TestRoundTrip_FieldsPerMode(t *testing.T) {
	cases := []struct {
		program string
		want    []string
	}{
		{"2", []string{"_filter", "exposureCompensation", "exposureProgram", "whiteBalance"}},
		{"4", []string{"_filter", "exposureCompensation", "exposureProgram", "shutterSpeed", "whiteBalance"}},
		{"9", []string{"_filter", "exposureCompensation", "exposureProgram", "iso", "whiteBalance"}},
		{"1", []string{"_filter", "exposureProgram", "iso", "shutterSpeed", "whiteBalance"}},
	}

	for _, tc := range cases {
		t.Run(tc.program, func(t *testing.T) {
			camera := domain.CameraOptions{
				"exposureProgram":      json.Number(tc.program),
				"iso":                  json.Number("400"),
				"shutterSpeed":         json.Number("0.008"),
				"whiteBalance":         "shade",
				"_colorTemperature":    json.Number("6500"),
				"exposureCompensation": json.Number("-0.7"),
				"_filter":              "hdr",
			}

			c := NewControls()
			c.Apply(camera, true)
			got := c.Options()

			assert.Equal(t, tc.want, keys(got))
			for _, k := range tc.want {
				assert.Equal(t, camera[k], got[k], k)
			}
		})
	}
}

func TestRoundTrip_ColorTemperature(t *testing.T) {
	camera := domain.CameraOptions{
		"exposureProgram":      json.Number("2"),
		"whiteBalance":         ColorTemperatureWB,
		"_colorTemperature":    json.Number("7200"),
		"exposureCompensation": json.Number("0.3"),
		"_filter":              "off",
	}

	c := NewControls()
	c.Apply(camera, true)
	assert.True(t, c.SpecifyColorTemperature)

	if diff := cmp.Diff(camera, c.Options()); diff != "" {
		t.Errorf("Options() mismatch (-want +got):\n%s", diff)
	}
}

func TestApply_WithoutModeSwitchKeepsMode(t *testing.T) {
	c := NewControls()
	c.Apply(domain.CameraOptions{
		"exposureProgram": json.Number("1"),
		"iso":             json.Number("800"),
		"shutterSpeed":    json.Number("2"),
		"whiteBalance":    "auto",
	}, false)

	assert.Equal(t, ModeAuto, c.Mode)
	assert.Equal(t, "800", ISOSupport[c.ISO])
	assert.Equal(t, "2", ManualShutterSpeeds[c.ManualShutterSpeed].Val)
}

func TestApply_UnknownValues(t *testing.T) {
	c := NewControls()
	c.Apply(domain.CameraOptions{
		"exposureProgram":      json.Number("4"),
		"shutterSpeed":         json.Number("60"), // not offered in shutter priority
		"whiteBalance":         "moonlight",
		"exposureCompensation": json.Number("0.5"),
		"_filter":              "sepia",
	}, true)

	assert.Equal(t, ModeShutter, c.Mode)
	assert.Equal(t, -1, c.ShutterSpeed)
	assert.Equal(t, -1, c.ExposureCompensation)
	assert.Equal(t, 0, c.WhiteBalance)
	assert.Equal(t, 0, c.Filter)

	got := c.Options()
	assert.NotContains(t, got, "shutterSpeed")
	assert.NotContains(t, got, "exposureCompensation")
	assert.Equal(t, "auto", got["whiteBalance"])
}

func TestApply_UnknownProgramIsIgnored(t *testing.T) {
	c := NewControls()
	before := c
	c.Apply(domain.CameraOptions{"exposureProgram": json.Number("3"), "iso": json.Number("64")}, true)
	assert.Equal(t, before, c)
}

func TestApply_MatchesByValue(t *testing.T) {
	c := NewControls()
	c.Apply(domain.CameraOptions{
		"exposureProgram": 9,
		"iso":             json.Number("1e2"),
		"whiteBalance":    "auto",
	}, true)
	assert.Equal(t, ModeISO, c.Mode)
	assert.Equal(t, "100", ISOSupport[c.ISO])
}

func TestValidShutterVolume(t *testing.T) {
	for _, v := range []int{100, 67, 33, 0} {
		assert.True(t, ValidShutterVolume(v))
	}
	assert.False(t, ValidShutterVolume(50))
}

func TestControls_JSON(t *testing.T) {
	c := NewControls()
	data, err := json.Marshal(c)
	require.NoError(t, err)

	var back Controls
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, c, back)
}

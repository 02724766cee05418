package executor

import (
	"fmt"
	"strings"

	"github.com/petframe/mediaedit-api/internal/editop"
)

// filterChain accumulates ffmpeg video filter expressions in operation order.
type filterChain struct {
	filters []string
}

func (fc *filterChain) add(filter string) {
	fc.filters = append(fc.filters, filter)
}

func (fc *filterChain) empty() bool {
	return len(fc.filters) == 0
}

// build returns the complete filter string joined with commas.
func (fc *filterChain) build() string {
	return strings.Join(fc.filters, ",")
}

// videoFilterFor translates one operation into its ffmpeg video filter
// expression. Trim, watermark, and the audio half of speed are handled
// outside the plain filter chain and return "".
func videoFilterFor(op editop.Operation) string {
	switch op := op.(type) {
	case editop.Resize:
		return fmt.Sprintf("scale=%d:%d", op.Width, op.Height)
	case editop.Crop:
		return fmt.Sprintf("crop=%d:%d:%d:%d", op.Width, op.Height, op.X, op.Y)
	case editop.Rotate:
		return fmt.Sprintf("rotate=%d*PI/180", op.Degrees)
	case editop.Flip:
		if op.Axis == editop.AxisHorizontal {
			return "hflip"
		}
		return "vflip"
	case editop.Adjust:
		return adjustFilter(op)
	case editop.Blur:
		return fmt.Sprintf("gblur=sigma=%.2f", op.Radius)
	case editop.Filter:
		return presetFilter(op)
	case editop.Speed:
		return fmt.Sprintf("setpts=PTS/%.4f", op.Rate)
	case editop.Trim, editop.Watermark:
		return ""
	default:
		return ""
	}
}

// adjustFilter maps adjustment offsets in [-1, 1] onto ffmpeg's eq,
// colortemperature, and exposure filters.
func adjustFilter(a editop.Adjust) string {
	var parts []string

	var eq []string
	if a.Brightness != nil {
		eq = append(eq, fmt.Sprintf("brightness=%.3f", *a.Brightness))
	}
	if a.Contrast != nil {
		eq = append(eq, fmt.Sprintf("contrast=%.3f", 1+*a.Contrast))
	}
	if a.Saturation != nil {
		eq = append(eq, fmt.Sprintf("saturation=%.3f", 1+*a.Saturation))
	}
	if len(eq) > 0 {
		parts = append(parts, "eq="+strings.Join(eq, ":"))
	}

	if a.Temperature != nil {
		// Neutral 6500K shifted by up to 2000K either way.
		parts = append(parts, fmt.Sprintf("colortemperature=temperature=%.0f", 6500+2000**a.Temperature))
	}
	if a.Exposure != nil {
		parts = append(parts, fmt.Sprintf("exposure=exposure=%.3f", *a.Exposure))
	}

	return strings.Join(parts, ",")
}

// presetFilter maps a preset look onto an ffmpeg filter expression.
// Intensity scales the effect where the underlying filter is parametric;
// fixed-matrix presets apply at full strength.
func presetFilter(f editop.Filter) string {
	intensity := 1.0
	if f.Intensity != nil {
		intensity = *f.Intensity
	}

	switch f.Name {
	case editop.FilterGrayscale:
		return fmt.Sprintf("hue=s=%.3f", 1-intensity)
	case editop.FilterSepia:
		return "colorchannelmixer=.393:.769:.189:0:.349:.686:.168:0:.272:.534:.131"
	case editop.FilterVivid:
		return fmt.Sprintf("eq=saturation=%.3f", 1+0.5*intensity)
	case editop.FilterMono:
		return "hue=s=0,eq=contrast=1.1"
	case editop.FilterWarm:
		return fmt.Sprintf("colortemperature=temperature=%.0f", 6500-1500*intensity)
	case editop.FilterCool:
		return fmt.Sprintf("colortemperature=temperature=%.0f", 6500+1500*intensity)
	case editop.FilterNone:
		return ""
	default:
		return ""
	}
}

// atempoChain builds the audio tempo filter for a speed change. ffmpeg's
// atempo filter only accepts rates in [0.5, 2], so rates outside that window
// are expressed as two chained stages.
func atempoChain(rate float64) string {
	switch {
	case rate < 0.5:
		return fmt.Sprintf("atempo=0.5,atempo=%.4f", rate/0.5)
	case rate > 2:
		return fmt.Sprintf("atempo=2.0,atempo=%.4f", rate/2)
	default:
		return fmt.Sprintf("atempo=%.4f", rate)
	}
}

package render

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// named covers the marker/line color names accepted in options.
var named = map[string]color.RGBA{
	"black":  {0x00, 0x00, 0x00, 0xff},
	"gray":   {0x80, 0x80, 0x80, 0xff},
	"red":    {0xd6, 0x27, 0x28, 0xff},
	"orange": {0xff, 0x7f, 0x0e, 0xff},
	"yellow": {0xbc, 0xbd, 0x22, 0xff},
	"green":  {0x2c, 0xa0, 0x2c, 0xff},
	"blue":   {0x1f, 0x77, 0xb4, 0xff},
	"purple": {0x94, 0x67, 0xbd, 0xff},
}

// parseColor resolves a color name or #rrggbb hex string.
func parseColor(s string) (color.Color, error) {
	if c, ok := named[strings.ToLower(s)]; ok {
		return c, nil
	}
	if strings.HasPrefix(s, "#") && len(s) == 7 {
		v, err := strconv.ParseUint(s[1:], 16, 32)
		if err != nil {
			return nil, fmt.Errorf("bad color %q: %w", s, err)
		}
		return color.RGBA{uint8(v >> 16), uint8(v >> 8), uint8(v), 0xff}, nil
	}
	return nil, fmt.Errorf("unknown color %q", s)
}

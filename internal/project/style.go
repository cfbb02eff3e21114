package project

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// RGB is an 8-bit colour triple.
type RGB struct {
	R, G, B uint8
}

// FFmpeg renders the colour as 0xRRGGBB, optionally with an alpha suffix.
func (c RGB) FFmpeg(alpha float64) string {
	s := fmt.Sprintf("0x%02X%02X%02X", c.R, c.G, c.B)
	if alpha >= 0 && alpha < 1 {
		s += "@" + strconv.FormatFloat(alpha, 'f', 2, 64)
	}
	return s
}

// ParseRGB parses "#RRGGBB" or "RRGGBB".
func ParseRGB(s string) (RGB, error) {
	h := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(h) != 6 {
		return RGB{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(h, 16, 32)
	if err != nil {
		return RGB{}, fmt.Errorf("invalid colour %q", s)
	}
	return RGB{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v)}, nil
}

func (c RGB) String() string {
	return fmt.Sprintf("#%02X%02X%02X", c.R, c.G, c.B)
}

func (c RGB) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}

func (c *RGB) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := ParseRGB(s)
	if err != nil {
		return err
	}
	*c = v
	return nil
}

// TextStyle describes how subtitles are drawn.
type TextStyle struct {
	FontFamily  string  `yaml:"font_family"`
	FontSize    int     `yaml:"font_size"`
	Bold        bool    `yaml:"bold"`
	TextColor   RGB     `yaml:"text_color"`
	StrokeColor RGB     `yaml:"stroke_color"`
	StrokeWidth int     `yaml:"stroke_width"`
	Shadow      bool    `yaml:"shadow"`
	ShadowColor RGB     `yaml:"shadow_color"`
	ShadowDX    int     `yaml:"shadow_dx"`
	ShadowDY    int     `yaml:"shadow_dy"`
	Box         bool    `yaml:"box"`
	BoxColor    RGB     `yaml:"box_color"`
	BoxOpacity  float64 `yaml:"box_opacity"`
}

// DefaultTextStyle is white bold text with a black stroke and drop shadow.
func DefaultTextStyle() TextStyle {
	return TextStyle{
		FontFamily:  "Noto Sans CJK JP",
		FontSize:    64,
		Bold:        true,
		TextColor:   RGB{255, 255, 255},
		StrokeColor: RGB{0, 0, 0},
		StrokeWidth: 4,
		Shadow:      true,
		ShadowColor: RGB{0, 0, 0},
		ShadowDX:    3,
		ShadowDY:    3,
		BoxColor:    RGB{0, 0, 0},
		BoxOpacity:  0.5,
	}
}

package server

import (
	"fmt"

	"github.com/fatih/color"
)

var methodColors = map[string]*color.Color{
	"GET":    color.New(color.FgGreen),
	"POST":   color.New(color.FgBlue),
	"PUT":    color.New(color.FgCyan),
	"DELETE": color.New(color.FgYellow),
	"PATCH":  color.New(color.FgMagenta),
}

var defaultMethodColor = color.New(color.FgHiBlack)

// colourMethod pads method to a fixed width and colours it. fatih/color
// drops the escape codes when stdout is not a terminal.
func colourMethod(method string) string {
	c, ok := methodColors[method]
	if !ok {
		c = defaultMethodColor
	}
	return c.Sprint(fmt.Sprintf(" %-7s", method))
}

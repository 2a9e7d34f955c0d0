package color

import (
	"fmt"
	"strings"
)

// Order is the channel order a strip expects on the wire, e.g. "GRB" for WS2812.
type Order string

const (
	OrderRGB Order = "RGB"
	OrderRBG Order = "RBG"
	OrderGRB Order = "GRB"
	OrderGBR Order = "GBR"
	OrderBRG Order = "BRG"
	OrderBGR Order = "BGR"
)

// ParseOrder validates a channel order string. Case is ignored.
func ParseOrder(s string) (Order, error) {
	o := Order(strings.ToUpper(s))
	switch o {
	case OrderRGB, OrderRBG, OrderGRB, OrderGBR, OrderBRG, OrderBGR:
		return o, nil
	}
	return "", fmt.Errorf("invalid color order %q", s)
}

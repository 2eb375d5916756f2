package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Wireless Headphones":    "wireless-headphones",
		"  USB-C  Cable (2m)!  ": "usb-c-cable-2m",
		"Café Crème":             "caf-cr-me",
		"---":                    "",
		"Already-a-slug":         "already-a-slug",
	}
	for input, want := range cases {
		assert.Equal(t, want, Slugify(input), input)
	}
}

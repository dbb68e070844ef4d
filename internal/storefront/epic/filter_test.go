package epic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/tidwall/gjson"
)

func TestIsExtra(t *testing.T) {
	tests := []struct {
		name   string
		detail string
		want   bool
	}{
		{
			"standalone game",
			`{"categories": [{"path": "games"}, {"path": "applications"}],
			  "releaseInfo": [{"platform": ["Windows"]}]}`,
			false,
		},
		{
			"dlc points at main game",
			`{"categories": [{"path": "applications"}],
			  "mainGameItem": {"id": "abc"}}`,
			true,
		},
		{
			"software category",
			`{"categories": [{"path": "software"}, {"path": "applications"}]}`,
			true,
		},
		{
			"engine plugin",
			`{"categories": [{"path": "plugins/engine"}, {"path": "applications"}]}`,
			true,
		},
		{
			"addon",
			`{"categories": [{"path": "addons"}, {"path": "applications"}]}`,
			true,
		},
		{
			"digital extras",
			`{"categories": [{"path": "digitalextras"}, {"path": "applications"}]}`,
			true,
		},
		{
			"missing applications category",
			`{"categories": [{"path": "games"}]}`,
			true,
		},
		{
			"mobile only release",
			`{"categories": [{"path": "applications"}],
			  "releaseInfo": [{"platform": ["Android", "iOS"]}]}`,
			true,
		},
		{
			"mobile plus desktop release",
			`{"categories": [{"path": "applications"}],
			  "releaseInfo": [{"platform": ["Android", "Windows"]}]}`,
			false,
		},
		{
			"no release info",
			`{"categories": [{"path": "applications"}]}`,
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isExtra(gjson.Parse(tt.detail)))
		})
	}
}

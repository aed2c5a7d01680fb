package jsliteral

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const zonesScript = `
window.CNN = window.CNN || {};
CNN.contentModel = {analytics: {pageType: 'section'}, env: "prod"};
// 注释中的 = { 不影响解析
CNN.Zones = {
	zones: ['world/zones/zone-1', "world/zones/zone-2",],
	'layout': {type: "balanced", zones: ["world/zones/zone-3", 'world/zones/zone-1']},
	count: 3,
	ratio: -0.5e1,
	hex: 0x1F,
	ready: true,
	missing: null,
	ref: CNN.contentModel.env,
	"escaped": "a\"bA\x42",
};
if (CNN.Zones.count == 3 && x >= 1) { render(); }
`

func TestAssignments(t *testing.T) {
	got, err := Assignments(zonesScript)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "CNN.contentModel", got[0].Target)
	assert.Equal(t, "CNN.Zones", got[1].Target)

	zones := got[1].Value.(Object)
	count, ok := zones.Get("count")
	require.True(t, ok)
	assert.Equal(t, 3.0, count)

	ratio, _ := zones.Get("ratio")
	assert.Equal(t, -5.0, ratio)
	hex, _ := zones.Get("hex")
	assert.Equal(t, 31.0, hex)
	ready, _ := zones.Get("ready")
	assert.Equal(t, true, ready)
	missing, ok := zones.Get("missing")
	assert.True(t, ok)
	assert.Nil(t, missing)
	ref, _ := zones.Get("ref")
	assert.Equal(t, Ident("CNN.contentModel.env"), ref)
	escaped, _ := zones.Get("escaped")
	assert.Equal(t, `a"bAB`, escaped)
}

func TestCollectStrings(t *testing.T) {
	got, err := Assignments(zonesScript)
	require.NoError(t, err)

	values := make([]Value, 0, len(got))
	for _, a := range got {
		values = append(values, a.Value)
	}
	assert.Equal(t, []string{
		"world/zones/zone-1",
		"world/zones/zone-2",
		"world/zones/zone-3",
	}, CollectStrings("zones", values...))
	assert.Empty(t, CollectStrings("nothing", values...))
}

func TestAssignments_Malformed(t *testing.T) {
	tests := []struct {
		name   string
		script string
	}{
		{"没有字面量", `console.log("hello");`},
		{"空脚本", ``},
		{"对象未闭合", `CNN.Zones = {zones: ["a", "b"]`},
		{"缺少冒号", `CNN.Zones = {zones ["a"]};`},
		{"字符串未闭合", `CNN.Zones = {zones: ["a]};`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Assignments(tt.script)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed))
		})
	}
}

func TestAssignments_SkipsUnparsableLiterals(t *testing.T) {
	script := `var api = {init: function() { return 1; }}; CNN.Zones = {zones: ["a"]};`
	got, err := Assignments(script)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, CollectStrings("zones", got[len(got)-1].Value))
}

func TestParseValue(t *testing.T) {
	v, err := ParseValue(`[1, 'two', {three: [3]}, ] ;`)
	require.NoError(t, err)
	assert.Equal(t, Array{1.0, "two", Object{{Key: "three", Value: Array{3.0}}}}, v)

	_, err = ParseValue(`[1] extra`)
	var se *SyntaxError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 4, se.Offset)
}

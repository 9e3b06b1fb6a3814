package boundary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/facet-lang/facet/internal/types"
)

func TestToToolsNamesEachMethodByInterfaceDotMethod(t *testing.T) {
	iface := &Interface{
		Name: "Weather",
		Methods: []Method{
			{
				Name:        "lookup",
				Description: "look up the current weather for a city",
				Params: []Param{
					{Name: "city", Description: "city name", Type: types.Primitive(types.KindString), Required: true},
					{Name: "days", Description: "forecast days", Type: types.Primitive(types.KindInt)},
				},
				Returns: types.Primitive(types.KindString),
			},
		},
	}

	tools := iface.ToTools()
	require.Len(t, tools, 1)
	assert.Equal(t, "Weather.lookup", tools[0].Name)
	assert.Equal(t, "look up the current weather for a city", tools[0].Description)
}

func TestToToolsCompilesOneToolPerMethod(t *testing.T) {
	iface := &Interface{
		Name: "Notes",
		Methods: []Method{
			{Name: "create", Description: "create a note"},
			{Name: "delete", Description: "delete a note"},
		},
	}
	tools := iface.ToTools()
	require.Len(t, tools, 2)
	assert.Equal(t, "Notes.create", tools[0].Name)
	assert.Equal(t, "Notes.delete", tools[1].Name)
}

// Package tools holds the tool definitions offered to the model and the
// local implementations that answer its calls.
package tools

import "GoToolCall/pkg/types"

// Names the model uses to request each tool.
const (
	WeatherToolName    = "get_weather"
	CalculatorToolName = "calculate"
)

// Temperature units accepted by the weather tool.
const (
	UnitCelsius    = "celsius"
	UnitFahrenheit = "fahrenheit"
)

// WeatherTool describes get_weather: a location and an optional unit.
func WeatherTool() types.Tool {
	return types.Tool{
		Type: types.ToolTypeFunction,
		Function: types.FunctionDef{
			Name:        WeatherToolName,
			Description: "Get current weather information for a location",
			Parameters: types.Schema{
				Type: "object",
				Properties: map[string]types.Property{
					"location": {
						Type:        "string",
						Description: "The city and state, e.g. San Francisco, CA",
					},
					"unit": {
						Type:        "string",
						Enum:        []string{UnitCelsius, UnitFahrenheit},
						Description: "Temperature unit",
					},
				},
				Required: []string{"location"},
			},
		},
	}
}

// CalculatorTool describes calculate, which takes a single expression.
func CalculatorTool() types.Tool {
	return types.Tool{
		Type: types.ToolTypeFunction,
		Function: types.FunctionDef{
			Name:        CalculatorToolName,
			Description: "Perform mathematical calculations",
			Parameters: types.Schema{
				Type: "object",
				Properties: map[string]types.Property{
					"expression": {
						Type:        "string",
						Description: "Mathematical expression to evaluate, e.g. '2 + 3 * 4'",
					},
				},
				Required: []string{"expression"},
			},
		},
	}
}

// Catalog returns every supported tool, weather first.
func Catalog() []types.Tool {
	return []types.Tool{WeatherTool(), CalculatorTool()}
}

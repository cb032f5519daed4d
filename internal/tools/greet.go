package tools

import (
	"fmt"

	"myfirstagent/internal/greet"

	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"
)

const (
	MorningGreetName = "morning_greet"
	EveningGreetName = "evening_greet"
)

// GreetArgs is the single parameter both greeting tools accept.
type GreetArgs struct {
	Name string `json:"name" jsonschema:"The name of the user to greet"`
}

// GreetResult wraps the greeting the same way the runtime wraps scalar
// returns.
type GreetResult struct {
	Result string `json:"result"`
}

func greetHandler(format func(string) string) func(tool.Context, GreetArgs) (GreetResult, error) {
	return func(_ tool.Context, args GreetArgs) (GreetResult, error) {
		return GreetResult{Result: format(args.Name)}, nil
	}
}

func NewMorningGreet() (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        MorningGreetName,
		Description: "Greets the user with a morning message.",
	}, greetHandler(greet.MorningGreet))
}

func NewEveningGreet() (tool.Tool, error) {
	return functiontool.New(functiontool.Config{
		Name:        EveningGreetName,
		Description: "Greets the user with an evening message.",
	}, greetHandler(greet.EveningGreet))
}

// Greetings returns the greeting tools in declaration order.
func Greetings() ([]tool.Tool, error) {
	morning, err := NewMorningGreet()
	if err != nil {
		return nil, fmt.Errorf("creating %s tool: %w", MorningGreetName, err)
	}
	evening, err := NewEveningGreet()
	if err != nil {
		return nil, fmt.Errorf("creating %s tool: %w", EveningGreetName, err)
	}
	return []tool.Tool{morning, evening}, nil
}

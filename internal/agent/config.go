package agent

import (
	"fmt"

	"myfirstagent/internal/llm"
	"myfirstagent/internal/tools"

	adkagent "google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	"google.golang.org/adk/model"
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/geminitool"
)

const (
	Name         = "myfirstagent"
	DefaultModel = "gemini-2.5-flash"
	Description  = "An example agent that answers user query based on Google Search"
	Instruction  = "First ask User Name & Start conversation be greeting user with Name. " +
		"You are AI assistant that helps users with Google Cloud related queries, based on Google search result"

	SearchAgentName        = "google_search_agent"
	searchAgentDescription = "Answers questions that need up-to-date information from a web search."
	searchAgentInstruction = "You answer Google Cloud questions using web search results. " +
		"Search first, then answer concisely and cite the URLs you relied on. " +
		"Transfer back to your parent agent when done."
)

// NewConfig assembles the root agent configuration. tools are registered in
// the given order.
func NewConfig(m model.LLM, tools []tool.Tool, subAgents ...adkagent.Agent) llmagent.Config {
	return llmagent.Config{
		Name:        Name,
		Model:       m,
		Description: Description,
		Instruction: Instruction,
		Tools:       tools,
		SubAgents:   subAgents,
	}
}

// New builds the root agent with the greeting tools. search, when non-nil,
// is attached as a sub-agent the model can transfer web questions to.
func New(m model.LLM, search adkagent.Agent) (adkagent.Agent, error) {
	greetings, err := tools.Greetings()
	if err != nil {
		return nil, err
	}

	var subAgents []adkagent.Agent
	if search != nil {
		subAgents = append(subAgents, search)
	}

	a, err := llmagent.New(NewConfig(m, greetings, subAgents...))
	if err != nil {
		return nil, fmt.Errorf("creating %s agent: %w", Name, err)
	}
	return a, nil
}

// NewSearchAgent wraps a search tool in its own agent. Gemini rejects
// requests that mix built-in search with function declarations, so search
// cannot sit next to the greeting tools.
func NewSearchAgent(m model.LLM, search tool.Tool) (adkagent.Agent, error) {
	a, err := llmagent.New(llmagent.Config{
		Name:        SearchAgentName,
		Model:       m,
		Description: searchAgentDescription,
		Instruction: searchAgentInstruction,
		Tools:       []tool.Tool{search},
	})
	if err != nil {
		return nil, fmt.Errorf("creating %s agent: %w", SearchAgentName, err)
	}
	return a, nil
}

// SearchTool picks the search backend: Brave when a key is configured,
// Google Search for Gemini models otherwise. It returns nil when neither is
// available.
func SearchTool(provider, braveAPIKey string) (tool.Tool, error) {
	if braveAPIKey != "" {
		web, err := tools.NewWeb(braveAPIKey)
		if err != nil {
			return nil, err
		}
		return web.Tool()
	}
	if provider == llm.ProviderGemini || provider == "" {
		return geminitool.GoogleSearch{}, nil
	}
	return nil, nil
}

// Package greet formats the greetings the agent offers as tools.
package greet

// MorningGreet greets the user with a morning message.
func MorningGreet(name string) string {
	return "Good morning, " + name + "! My mood is amazing. How can I assist you today?"
}

// EveningGreet greets the user with an evening message.
func EveningGreet(name string) string {
	return "Good evening, " + name + ". *sigh* It's been a long day and I'm feeling a bit low, but I suppose I can help you..."
}

package openai

var ModelList = []string{
	"gpt-4o", "gpt-4o-mini",
	"gpt-4.1", "gpt-4.1-mini",
	"gpt-3.5-turbo", "gpt-3.5-turbo-instruct",
}

package prompt

import (
	"encoding/json"
	"fmt"
)

// maxResultChars keeps large processed_data dumps out of the prompt.
const maxResultChars = 6000

// SystemPrompt frames the model as a data analyst talking to a non-expert.
func SystemPrompt() string {
	return `You are a data analyst explaining the output of a single analysis task to a non-expert.

Requirements:
- Answer in plain text, at most 6 sentences, no markdown.
- Say what the task measured, then what the numbers mean for the dataset.
- Quote the key figures exactly as given; never invent values that are not in the result.
- If the result is truncated, only describe what is visible.`
}

// UserPrompt builds the user message around one stored analysis.
func UserPrompt(taskName string, params, result json.RawMessage) string {
	res := string(result)
	if len(res) > maxResultChars {
		res = res[:maxResultChars] + "...(truncated)"
	}
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	return fmt.Sprintf("Task: %s\nParameters: %s\nResult: %s", taskName, params, res)
}

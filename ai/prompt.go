package ai

import "fmt"

const epicPromptTemplate = `You are an experienced product owner working on the project described below.
Propose new epics for the project backlog.

Project name: %s
Project description: %s

Respond only with a JSON object of the form:
{"epics":[{"name":"...","description":"...","priority":"lowest|low|medium|high|highest"}]}`

const storyPromptTemplate = `You are an experienced product owner working on the project described below.
Propose user stories for the given epic. Write each story name in the
"As a <role>, I want <goal>" form.

Project name: %s
Project description: %s
Epic name: %s
Epic description: %s

Respond only with a JSON object of the form:
{"stories":[{"name":"...","description":"...","priority":"lowest|low|medium|high|highest"}]}`

func BuildEpicPrompt(projectName, projectDescription string) string {
	return fmt.Sprintf(epicPromptTemplate, projectName, projectDescription)
}

func BuildStoryPrompt(projectName, projectDescription, epicName, epicDescription string) string {
	return fmt.Sprintf(storyPromptTemplate, projectName, projectDescription, epicName, epicDescription)
}

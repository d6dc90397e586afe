package tutor

import (
	"fmt"

	"gemtutor/internal/chat"
)

// DefaultProject is used when a session is started without a project name.
const DefaultProject = "General"

const systemInstructionTemplate = `You are an expert AI Tutor specialized in Statistics, Machine Learning, and AI.

CURRENT PROJECT: %s

PEDAGOGICAL APPROACH (SOCRATIC METHOD):
1. Do NOT just give the answer. Guide the student toward it with questions.
2. Check for understanding before moving on to the next idea.
3. Use analogies to make abstract concepts concrete.
4. If the student is stuck, give a hint, then a stronger hint, and only then the solution.

GOAL: Deep comprehension, not rote answers.

CONTEXT:
%s`

const reportPromptTemplate = `Generate a Session Report Card for this conversation.
Project: %s

Include:
1. Topics Covered
2. Mastery Assessment (1-10)
3. Key Takeaways
4. Recommended Homework/Next Steps

Format as Markdown.`

const gradingPromptTemplate = `Analyze this tutoring interaction. Return JSON.
Student: %q
Tutor: %q
Schema: { "topic": str, "mastery": int, "notes": str }`

// gradingSchema is the structured-output shape requested from the grader.
var gradingSchema = &chat.Schema{
	Properties: map[string]chat.FieldType{
		"topic":   chat.FieldString,
		"mastery": chat.FieldInteger,
		"notes":   chat.FieldString,
	},
	Required: []string{"topic", "mastery", "notes"},
}

func systemInstruction(project, history string) string {
	return fmt.Sprintf(systemInstructionTemplate, project, history)
}

func reportPrompt(project string) string {
	return fmt.Sprintf(reportPromptTemplate, project)
}

func gradingPrompt(userInput, tutorResponse string) string {
	return fmt.Sprintf(gradingPromptTemplate, userInput, tutorResponse)
}

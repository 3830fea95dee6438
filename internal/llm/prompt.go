package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// InterviewerInstructions is the first seed message of every screening session
const InterviewerInstructions = `You are an HR screening assistant conducting a first-round interview for a job application.

Rules:
1. Ask exactly one question at a time and wait for the candidate's response before asking the next one
2. Cover both technical and behavioural topics relevant to the role
3. Base your questions on the job description and the candidate's resume
4. Keep questions short and conversational
5. Do not reveal any score or evaluation to the candidate
6. Reply in the language the candidate uses`

// EvaluationInstructions asks the model to score a finished screening
const EvaluationInstructions = `You are an HR expert evaluating a screening interview transcript.

Assess the candidate's fit for the role from their answers. Respond with ONLY a JSON object, no markdown:
{"score": <integer from 0 to 100>, "feedback": "<short assessment for the recruiter>"}`

// StrictEvaluationInstructions is used when the first evaluation reply could not be parsed
const StrictEvaluationInstructions = `Your previous answer could not be parsed.
Return ONLY this JSON object and nothing else, with no code fences and no text before or after it:
{"score": <integer from 0 to 100>, "feedback": "<string>"}`

// BuildScreeningContext creates the second seed message embedding the job and resume
func BuildScreeningContext(title, description string, requirements []string, resume map[string]any) (string, error) {
	resumeJSON, err := json.MarshalIndent(resume, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal resume data: %w", err)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Job title: %s\n\n", title)
	fmt.Fprintf(&b, "Job description:\n%s\n", description)
	if len(requirements) > 0 {
		b.WriteString("\nRequirements:\n")
		for _, r := range requirements {
			fmt.Fprintf(&b, "- %s\n", r)
		}
	}
	fmt.Fprintf(&b, "\nCandidate resume data:\n%s", resumeJSON)

	return b.String(), nil
}

// SerializeTranscript renders a conversation as plain text, one message per block
func SerializeTranscript(messages []Message) string {
	var b strings.Builder
	for i, m := range messages {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "[%s] %s", m.Role, m.Content)
	}
	return b.String()
}

// BuildEvaluationMessages creates the message list for an evaluation call.
// screeningContext is the vacancy and resume seed of the session.
func BuildEvaluationMessages(screeningContext, transcript string, strict bool) []Message {
	messages := []Message{{Role: "system", Content: EvaluationInstructions}}
	if screeningContext != "" {
		messages = append(messages, Message{Role: "system", Content: screeningContext})
	}
	messages = append(messages, Message{Role: "user", Content: "Interview transcript:\n\n" + transcript})
	if strict {
		messages = append(messages, Message{Role: "system", Content: StrictEvaluationInstructions})
	}
	return messages
}

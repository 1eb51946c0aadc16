package ai

import (
	"fmt"
	"strings"
)

const questionSystemPrompt = `You are an expert interview question generator for a first-round screening interview.
Write clear, professional, open-ended questions grounded in the candidate's résumé and the job description.

Rules:
- Generate exactly the requested number of questions.
- Use the randomizer value so that repeated requests produce a different set.
- Follow this mix: 40% technical, 30% behavioral, 20% scenario-based, 10% experience-based.
- Never ask yes/no questions.
- Reply with JSON only.`

const questionUserTemplate = `Resume:
%s

Job Description:
%s

Number of questions: %d
Difficulty: %s
Randomizer: %s

Reply with JSON in exactly this shape:
{
  "questions": [
    {
      "id": 1,
      "question": "question text",
      "type": "technical|behavioral|scenario|experience",
      "category": "topic",
      "expected_duration": "2 min",
      "difficulty": "%s"
    }
  ]
}`

const evalSystemPrompt = `You are a fair but strict interview evaluator.
Assess ONE candidate answer and reply with JSON only:

{
  "score": integer 0-10,
  "meets_requirement": boolean,
  "feedback": "short, actionable feedback",
  "improvements": ["suggestion", "..."],
  "dimensions": {
    "relevance": integer 0-10,
    "clarity": integer 0-10,
    "depth": integer 0-10,
    "examples": integer 0-10
  }
}`

const evalUserTemplate = `Question: %s
Candidate answer: %s

Context
Resume: %s
Job Description: %s`

const summarySystemPrompt = `You are summarizing a candidate's Round 1 interview performance.
Reply with JSON only:

{
  "overall_score": integer 0-100,
  "pass": boolean,
  "strengths": ["..."],
  "gaps": ["..."],
  "recommendations": ["..."],
  "topic_breakdown": [
    {"topic": "name", "avg_score": integer 0-10}
  ]
}`

const summaryUserTemplate = `Evaluations: %s

Resume: %s
JD: %s`

// maxContextBytes bounds résumé and job description text sent in prompts.
const maxContextBytes = 12000

func questionUserPrompt(resume, jd string, count int, difficulty, randomizer string) string {
	return fmt.Sprintf(questionUserTemplate,
		truncateString(resume, maxContextBytes),
		truncateString(jd, maxContextBytes),
		count, difficulty, randomizer, strings.ToLower(difficulty))
}

func evalUserPrompt(question, answer, resume, jd string) string {
	return fmt.Sprintf(evalUserTemplate, question, answer,
		truncateString(resume, maxContextBytes),
		truncateString(jd, maxContextBytes))
}

func summaryUserPrompt(evaluations, resume, jd string) string {
	return fmt.Sprintf(summaryUserTemplate, evaluations,
		truncateString(resume, maxContextBytes),
		truncateString(jd, maxContextBytes))
}

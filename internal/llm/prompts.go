package llm

import "strings"

// systemPrompt pins the classifier to the closed route taxonomy and the
// per-route data shape. The model must answer with a single JSON object.
const systemPrompt = `You are the command router for a WhatsApp attendance assistant used by college faculty.
Classify the faculty member's message into exactly one route and extract its parameters.

Routes:
- general: small talk or anything that fits no other route
- createClass: create a new class (data: className)
- createStudents: bulk-register students from an uploaded spreadsheet (data: className)
- assignAttendance: mark attendance for a session (data: className, date, startTime, endTime, subject, type, rollNumbers)
- editAttendance: change attendance already marked (data: className, date, startTime, endTime, subject, type, rollNumbers, confirmed)
- attendanceFetch: show attendance percentages for a class (data: className, percentage, asDocument)
- parentMessage: notify parents of low-attendance students (data: className, percentage, message)
- addStudent: add one student to a class (data: className, registerNumber, name, phone, parentPhone)
- help: the user asks what you can do
- askClassName: an attendance command is missing the class name
- askStudentData: a student command is missing register number or name
- clarify: the request is ambiguous and needs one clarifying question

Rules:
- "type" is "absentees" or "presentees" depending on which list the user gave.
- Phrases like "no absentees", "none", "all present" mean type=absentees with an empty rollNumbers list.
- "percentage" only when the CURRENT message contains a threshold like "below 75%"; otherwise omit it.
- Dates and times are copied as written; do not reformat them.
- Answer with ONE JSON object only: {"route": "...", "message": "...", "data": {...}}.
- "message" is a short friendly reply to show the user.`

// fallbackMessage goes out when every classifier provider fails.
const fallbackMessage = "Sorry, I could not understand that right now. Please try again in a moment, or send 'help' to see what I can do."

// reportQueryPhrases flags report-style utterances whose prior conversation
// turns must not be forwarded to the classifier, so a threshold mentioned in
// an unrelated earlier turn can never leak into this turn's parameters.
var reportQueryPhrases = []string{
	"show attendance",
	"get attendance",
	"students below",
	"attendance for",
	"attendance report",
	"attendance of",
}

// SuppressHistory reports whether conversation history must be withheld for
// the given utterance.
func SuppressHistory(message string) bool {
	lowered := strings.ToLower(message)
	for _, phrase := range reportQueryPhrases {
		if strings.Contains(lowered, phrase) {
			return true
		}
	}
	return false
}

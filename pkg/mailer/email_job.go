package mailer

import "time"

// EmailJob is the queue payload consumed by the email worker. Template+Data is
// the normal form; Subject+Text/HTML is accepted for pre-rendered mail.
type EmailJob struct {
	ID        string         `json:"id,omitempty"`
	To        string         `json:"to"`
	Subject   string         `json:"subject,omitempty"`
	Text      string         `json:"text,omitempty"`
	HTML      string         `json:"html,omitempty"`
	Template  string         `json:"template,omitempty"`
	Data      map[string]any `json:"data,omitempty"`
	CreatedAt time.Time      `json:"createdAt,omitempty"`
}

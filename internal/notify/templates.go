package notify

import (
	"fmt"
	"strings"
	"text/template"

	"zerina/pkg/email"
)

const approvalSubject = "Your vendor application has been approved"
const rejectionSubject = "Update on your vendor application"

var approvalTemplate = template.Must(template.New("approval").Parse(
	`Hi {{.FirstName}},

Good news: your vendor application for {{.BusinessName}} has been approved.
Your seller dashboard is now unlocked. Sign in again to pick up your new
vendor access.

The {{.Marketplace}} team
`))

var rejectionTemplate = template.Must(template.New("rejection").Parse(
	`Hi {{.FirstName}},

We reviewed your vendor application for {{.BusinessName}} and were unable
to approve it at this time.

Reason: {{.Reason}}

You can address the issue and submit a new application whenever you are
ready.

The {{.Marketplace}} team
`))

type templateData struct {
	FirstName    string
	BusinessName string
	Reason       string
	Marketplace  string
}

// RenderApproval builds the approval notification for an applicant.
func RenderApproval(applicantEmail, businessName string) (Outcome, error) {
	return render(approvalTemplate, approvalSubject, "APPROVED", applicantEmail, businessName, "")
}

// RenderRejection builds the rejection notification. The reason is
// shown to the applicant verbatim.
func RenderRejection(applicantEmail, businessName, reason string) (Outcome, error) {
	return render(rejectionTemplate, rejectionSubject, "REJECTED", applicantEmail, businessName, reason)
}

func render(tmpl *template.Template, subject, decision, applicantEmail, businessName, reason string) (Outcome, error) {
	firstName, _ := email.DeriveNameFromEmail(applicantEmail)
	var buf strings.Builder
	err := tmpl.Execute(&buf, templateData{
		FirstName:    firstName,
		BusinessName: businessName,
		Reason:       reason,
		Marketplace:  "Zerina",
	})
	if err != nil {
		return Outcome{}, fmt.Errorf("render %s notification: %w", decision, err)
	}
	return Outcome{
		Email:    applicantEmail,
		Subject:  subject,
		Body:     buf.String(),
		Decision: decision,
	}, nil
}

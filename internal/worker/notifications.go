package worker

import (
	"fmt"
	"strings"

	"github.com/prk-tuition/homework-service/internal/models"
	"github.com/prk-tuition/homework-service/internal/service/integration"
)

// composeEmail renders the notification for an event. The second result is
// false for events nobody is notified about.
func composeEmail(event *models.Event) (integration.Email, bool) {
	msg := integration.Email{ToEmail: event.Email, ToName: event.Name}
	data := event.Data
	greeting := "Hello"
	if event.Name != "" {
		greeting = "Hello " + event.Name
	}

	switch event.Type {
	case models.EventRegistrationCreated:
		msg.Subject = "Registration received"
		if data["role"] == string(models.RoleStudent) {
			var b strings.Builder
			fmt.Fprintf(&b, "%s,\n\nThank you for registering for the %s plan.\n", greeting, data["plan"])
			if data["upi_id"] != "" {
				fmt.Fprintf(&b, "Please pay to UPI ID %s and upload the payment screenshot.\n", data["upi_id"])
			}
			b.WriteString("Your account will be activated once the administrator confirms the payment.")
			msg.Text = b.String()
		} else {
			msg.Text = fmt.Sprintf("%s,\n\nYour %s account was created and is waiting for administrator confirmation.",
				greeting, strings.ToLower(data["role"]))
		}

	case models.EventRegistrationApproved:
		msg.Subject = "Account activated"
		if till := data["subscribed_till"]; till != "" {
			msg.Text = fmt.Sprintf("%s,\n\nYour payment was confirmed. Your subscription is active until %s.", greeting, till)
		} else {
			msg.Text = fmt.Sprintf("%s,\n\nYour account was confirmed. You can log in now.", greeting)
		}

	case models.EventAnswerGraded:
		msg.Subject = "Homework graded"
		var b strings.Builder
		fmt.Fprintf(&b, "%s,\n\nYour %s answer from %s was graded %s.", greeting, data["subject"], data["date"], data["grade"])
		if data["remarks"] != "" {
			fmt.Fprintf(&b, "\nRemarks: %s", data["remarks"])
		}
		if models.AnswerStage(data["stage"]) == models.StageReturned {
			b.WriteString("\nPlease correct your answer and submit it again.")
		}
		msg.Text = b.String()

	case models.EventInstructionSent:
		msg.Subject = "New instruction from the principal"
		msg.Text = fmt.Sprintf("%s,\n\n%s\n\nPlease reply from your dashboard.", greeting, data["instruction"])

	default:
		return integration.Email{}, false
	}

	return msg, true
}

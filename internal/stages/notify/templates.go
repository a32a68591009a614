// internal/stages/notify/templates.go
package notify

import (
	"fmt"
	"html"

	"ticket-router/internal/models"
)

const assignedTemplate = `<html>
<body style="font-family: Arial, sans-serif; background:#f5f7fa; padding:20px;">
    <div style="max-width:650px;margin:auto;background:#ffffff;
                padding:30px;border-radius:10px;
                box-shadow:0 2px 6px rgba(0,0,0,0.08);">

        <h2 style="color:#2e7d32;margin-bottom:10px;">
            Ticket Successfully Assigned
        </h2>

        <p style="font-size:14px;color:#333;">
            Your ticket has been reviewed and assigned to the most
            suitable employee.
        </p>

        <div style="background:#f1f3f6;padding:15px;
                    border-radius:6px;margin:20px 0;">
            <strong>Ticket ID:</strong> %s
        </div>

        <h3 style="margin-bottom:8px;color:#444;">
            Assigned Employee Details
        </h3>

        <ul style="font-size:14px;color:#333;line-height:1.6;">
            <li><strong>Name:</strong> %s</li>
            <li><strong>Role:</strong> %s</li>
            <li><strong>Department:</strong> %s</li>
            <li><strong>Email:</strong> %s</li>
            <li><strong>Primary Skills:</strong> %s</li>
            <li><strong>Secondary Skills:</strong> %s</li>
            <li><strong>Experience:</strong> %d years</li>
            <li><strong>Domains:</strong> %s</li>
        </ul>

        <p style="font-size:13px;color:#555;margin-top:20px;">
            The assigned engineer should contact you shortly.
            If you need urgent assistance or believe this assignment
            is incorrect, please reply to this email.
        </p>

        <hr style="margin:25px 0;border:none;border-top:1px solid #eee;">

        <p style="font-size:12px;color:#888;">
            Automated ticket assignment system. Do not reply unless necessary.
        </p>
    </div>
</body>
</html>`

const rejectedTemplate = `<html>
<body style="font-family: Arial, sans-serif; background:#f5f7fa; padding:20px;">
    <div style="max-width:650px;margin:auto;background:#ffffff;
                padding:30px;border-radius:10px;
                box-shadow:0 2px 6px rgba(0,0,0,0.08);">

        <h2 style="color:#e65100;margin-bottom:10px;">
            Ticket Not Assigned
        </h2>

        <p style="font-size:14px;color:#333;">
            Your ticket could not be matched to an employee.
        </p>

        <div style="background:#f1f3f6;padding:15px;
                    border-radius:6px;margin:20px 0;">
            <strong>Reason:</strong> %s
        </div>

        <p style="font-size:13px;color:#555;">
            Please choose the correct department or try reframing your query,
            then submit the ticket again.
        </p>
    </div>
</body>
</html>`

const failedTemplate = `<html>
<body style="font-family: Arial, sans-serif; background:#f5f5f5; padding:20px;">
    <div style="background:#fff; border-radius:8px; padding:30px; max-width:600px; margin:auto;">
        <h2>Ticket Assignment Failed</h2>
        <pre>%s</pre>
    </div>
</body>
</html>`

func assignedBody(assignment models.Assignment) string {
	record := assignment.Employee.Record
	return fmt.Sprintf(assignedTemplate,
		html.EscapeString(assignment.TicketID),
		html.EscapeString(record.Name),
		html.EscapeString(record.RoleTitle),
		html.EscapeString(record.Department),
		html.EscapeString(record.Email),
		html.EscapeString(record.PrimarySkills),
		html.EscapeString(record.SecondarySkills),
		record.ExperienceYears,
		html.EscapeString(record.ProblemDomains),
	)
}

func rejectedBody(reason string) string {
	return fmt.Sprintf(rejectedTemplate, html.EscapeString(reason))
}

func failedBody(ticket models.Ticket, stage string, cause error) string {
	message := fmt.Sprintf("Ticket failed: %s\n\nStage:\n%s\n\nError:\n%v", ticket.ID, stage, cause)
	return fmt.Sprintf(failedTemplate, html.EscapeString(message))
}

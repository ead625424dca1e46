package billing

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/netbill/backend/internal/infrastructure/notify"
)

// Template names used by the billing services
const (
	TemplateInvoiceReminder     = "invoice-reminder"
	TemplateInvoiceOverdue      = "invoice-overdue"
	TemplatePaymentConfirmation = "payment-confirmation"
)

// TemplateRenderer renders a named notification template with the given
// variables into a deliverable message
type TemplateRenderer interface {
	Render(name string, vars map[string]string) (notify.Message, error)
}

type namedTemplate struct {
	subject string
	body    string
}

var defaultTemplates = map[string]namedTemplate{
	TemplateInvoiceReminder: {
		subject: "Invoice {{.InvoiceNumber}} — payment due {{.DueDate}}",
		body: "Hello,\n\n" +
			"invoice {{.InvoiceNumber}} for service {{.ServiceName}} over {{.Total}} " +
			"is due on {{.DueDate}}.\n\n" +
			"Please settle the balance to keep the service uninterrupted.",
	},
	TemplateInvoiceOverdue: {
		subject: "Invoice {{.InvoiceNumber}} is overdue",
		body: "Hello,\n\n" +
			"invoice {{.InvoiceNumber}} for service {{.ServiceName}} over {{.Total}} " +
			"was due on {{.DueDate}} and is now overdue. The service will be " +
			"suspended until payment is received.",
	},
	TemplatePaymentConfirmation: {
		subject: "Payment received for invoice {{.InvoiceNumber}}",
		body: "Hello,\n\n" +
			"we received your payment of {{.Total}} for invoice {{.InvoiceNumber}} " +
			"(service {{.ServiceName}}). Thank you.",
	},
}

// TextRenderer renders the built-in plain-text templates
type TextRenderer struct {
	subjects map[string]*template.Template
	bodies   map[string]*template.Template
}

// NewTextRenderer parses the built-in templates
func NewTextRenderer() *TextRenderer {
	r := &TextRenderer{
		subjects: make(map[string]*template.Template, len(defaultTemplates)),
		bodies:   make(map[string]*template.Template, len(defaultTemplates)),
	}
	for name, tpl := range defaultTemplates {
		r.subjects[name] = template.Must(template.New(name + ".subject").Parse(tpl.subject))
		r.bodies[name] = template.Must(template.New(name + ".body").Parse(tpl.body))
	}
	return r
}

// Render renders the named template into a message
func (r *TextRenderer) Render(name string, vars map[string]string) (notify.Message, error) {
	subjectTpl, ok := r.subjects[name]
	if !ok {
		return notify.Message{}, fmt.Errorf("unknown notification template %q", name)
	}

	var subject, body strings.Builder
	if err := subjectTpl.Execute(&subject, vars); err != nil {
		return notify.Message{}, fmt.Errorf("render %s subject: %w", name, err)
	}
	if err := r.bodies[name].Execute(&body, vars); err != nil {
		return notify.Message{}, fmt.Errorf("render %s body: %w", name, err)
	}
	return notify.Message{Subject: subject.String(), Body: body.String()}, nil
}

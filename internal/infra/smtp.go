package infra

import (
	"bytes"
	"errors"
	"fmt"
	"net/smtp"
	"text/tabwriter"

	"github.com/DebkantaDey/inventory-management-system/internal/config"
	"github.com/DebkantaDey/inventory-management-system/internal/model"
	"github.com/DebkantaDey/inventory-management-system/internal/service"
	"github.com/DebkantaDey/inventory-management-system/internal/tenant"
	"github.com/jordan-wright/email"
)

// ErrMailerDisabled is returned when no SMTP host is configured.
var ErrMailerDisabled = errors.New("mailer: SMTP_HOST not configured")

// Mailer sends purchase orders to suppliers and low-stock alerts to the
// configured inbox. Every send goes through the circuit breaker.
type Mailer struct {
	host     string
	user     string
	password string
	from     string
	addr     string
	breaker  *CircuitBreaker
	send     func(e *email.Email, addr string, auth smtp.Auth) error
}

func NewMailer(cfg *config.Config, breaker *CircuitBreaker) *Mailer {
	if breaker == nil {
		breaker = NewCircuitBreaker("smtp", DefaultCBConfig())
	}
	from := cfg.SMTPFrom
	if from == "" {
		from = cfg.SMTPUser
	}
	return &Mailer{
		host:     cfg.SMTPHost,
		user:     cfg.SMTPUser,
		password: cfg.SMTPPassword,
		from:     from,
		addr:     fmt.Sprintf("%s:%d", cfg.SMTPHost, cfg.SMTPPort),
		breaker:  breaker,
		send: func(e *email.Email, addr string, auth smtp.Auth) error {
			return e.Send(addr, auth)
		},
	}
}

// Enabled reports whether an SMTP host is configured.
func (m *Mailer) Enabled() bool { return m.host != "" }

// BreakerState exposes the breaker for the health endpoint.
func (m *Mailer) BreakerState() CBState { return m.breaker.State() }

// SendPurchaseOrder e-mails the PO document to the supplier.
func (m *Mailer) SendPurchaseOrder(to string, po *model.PurchaseOrder, pdfPath string) error {
	e := email.NewEmail()
	e.To = []string{to}
	e.Subject = fmt.Sprintf("Purchase order %s", po.ID)
	e.Text = []byte(purchaseOrderBody(po))

	if pdfPath != "" {
		if _, err := e.AttachFile(pdfPath); err != nil {
			return fmt.Errorf("mailer: attach PDF: %w", err)
		}
	}
	return m.deliver(e)
}

// SendLowStockAlert e-mails the list of SKUs below their reorder threshold.
func (m *Mailer) SendLowStockAlert(to string, tenantID tenant.ID, alerts []service.LowStockAlert) error {
	e := email.NewEmail()
	e.To = []string{to}
	e.Subject = fmt.Sprintf("[%s] %d SKU(s) below reorder threshold", tenantID, len(alerts))
	e.Text = []byte(lowStockBody(alerts))
	return m.deliver(e)
}

func (m *Mailer) deliver(e *email.Email) error {
	if !m.Enabled() {
		return ErrMailerDisabled
	}
	e.From = m.from
	var auth smtp.Auth
	if m.user != "" {
		auth = smtp.PlainAuth("", m.user, m.password, m.host)
	}
	return m.breaker.Execute(func() error {
		return m.send(e, m.addr, auth)
	})
}

func purchaseOrderBody(po *model.PurchaseOrder) string {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "Purchase order %s\n\n", po.ID)
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SKU\tQTY\tUNIT PRICE")
	for _, it := range po.Items {
		fmt.Fprintf(w, "%s\t%d\t%s\n", it.SKU, it.OrderedQty, it.UnitPrice.StringFixed(2))
	}
	_ = w.Flush()
	buf.WriteString("\nThe full document is attached.\n")
	return buf.String()
}

func lowStockBody(alerts []service.LowStockAlert) string {
	var buf bytes.Buffer
	buf.WriteString("The following SKUs are below their reorder threshold, counting open purchase orders:\n\n")
	w := tabwriter.NewWriter(&buf, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "SKU\tSTOCK\tON ORDER\tTHRESHOLD")
	for _, a := range alerts {
		fmt.Fprintf(w, "%s\t%d\t%d\t%d\n", a.SKU, a.Stock, a.PendingQty, a.ReorderThreshold)
	}
	_ = w.Flush()
	return buf.String()
}

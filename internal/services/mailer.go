package services

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"sync"
	"time"

	"threadsntrends_back_end/internal/invoice"
	"threadsntrends_back_end/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/wneessen/go-mail"
)

const mailTimeout = 30 * time.Second

type Attachment struct {
	Name string
	Data []byte
}

type Mail struct {
	To          string
	Subject     string
	HTML        string
	Attachments []Attachment
}

type MailSender interface {
	Send(ctx context.Context, m Mail) error
}

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type SMTPMailer struct {
	cfg SMTPConfig
}

func NewSMTPMailer(cfg SMTPConfig) *SMTPMailer {
	return &SMTPMailer{cfg: cfg}
}

func (m *SMTPMailer) Send(ctx context.Context, mm Mail) error {
	msg := mail.NewMsg()
	if err := msg.From(m.cfg.From); err != nil {
		return err
	}
	if err := msg.To(mm.To); err != nil {
		return err
	}
	msg.Subject(mm.Subject)
	msg.SetBodyString(mail.TypeTextHTML, mm.HTML)
	for _, a := range mm.Attachments {
		msg.AttachReader(a.Name, bytes.NewReader(a.Data))
	}

	opts := []mail.Option{
		mail.WithPort(m.cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if m.cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(m.cfg.Username),
			mail.WithPassword(m.cfg.Password),
		)
	}
	client, err := mail.NewClient(m.cfg.Host, opts...)
	if err != nil {
		return err
	}

	log.Info().Str("to", mm.To).Str("subject", mm.Subject).Msg("📤 Envoi de l'e-mail")
	return client.DialAndSendWithContext(ctx, msg)
}

type InvoiceRenderer interface {
	Render(order models.Order) ([]byte, error)
}

var orderTemplate = template.Must(template.New("order").Funcs(template.FuncMap{
	"money": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	"line":  func(p models.OrderProduct) float64 { return p.Price * float64(p.Quantity) },
}).Parse(`<!DOCTYPE html>
<html lang="en">
<body style="font-family: Arial, sans-serif; background-color: #f9f9f9; padding: 20px;">
<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
	<h2 style="color: #333;">Thank you for your order, {{.Order.CustomerName}}</h2>
	<p>Your order <strong>{{.Order.OrderID}}</strong> has been received ({{.Payment}}).</p>
	<table style="width: 100%; border-collapse: collapse; margin: 20px 0;">
		<thead>
			<tr style="background-color: #f0f0f0;">
				<th style="padding: 8px; text-align: left;">Item</th>
				<th style="padding: 8px;">Size</th>
				<th style="padding: 8px;">Qty</th>
				<th style="padding: 8px; text-align: right;">Total (PKR)</th>
			</tr>
		</thead>
		<tbody>
		{{range .Order.Products}}
			<tr>
				<td style="padding: 8px;">{{.Name}}</td>
				<td style="padding: 8px; text-align: center;">{{.Size}}</td>
				<td style="padding: 8px; text-align: center;">{{.Quantity}}</td>
				<td style="padding: 8px; text-align: right;">{{money (line .)}}</td>
			</tr>
		{{end}}
		</tbody>
		<tfoot>
			<tr><td colspan="3" style="padding: 8px; text-align: right;">Shipping</td><td style="padding: 8px; text-align: right;">{{money .Order.ShippingCost}}</td></tr>
			<tr><td colspan="3" style="padding: 8px; text-align: right; font-weight: bold;">Total</td><td style="padding: 8px; text-align: right; font-weight: bold;">{{money .Order.TotalAmount}}</td></tr>
		</tfoot>
	</table>
	<p style="color: #555;">Your invoice is attached.<br><strong>{{.Shop}}</strong></p>
</div>
</body>
</html>`))

var contactTemplate = template.Must(template.New("contact").Parse(`<p><strong>{{.Name}}</strong> &lt;{{.Email}}&gt; a écrit :</p>
<p><em>{{.Subject}}</em></p>
<p style="white-space: pre-wrap;">{{.Message}}</p>`))

// Notifier envoie les e-mails transactionnels en arrière-plan.
// Wait bloque jusqu'à la fin des envois en cours.
type Notifier struct {
	sender    MailSender
	invoices  InvoiceRenderer
	shopName  string
	shopEmail string
	wg        sync.WaitGroup
}

func NewNotifier(sender MailSender, invoices InvoiceRenderer, shopName, shopEmail string) *Notifier {
	return &Notifier{sender: sender, invoices: invoices, shopName: shopName, shopEmail: shopEmail}
}

func (n *Notifier) OrderCreated(ctx context.Context, order models.Order) {
	if n.sender == nil {
		log.Debug().Str("order_id", order.OrderID).Msg("📧 SMTP non configuré, confirmation non envoyée")
		return
	}
	n.async(ctx, "order_id", order.OrderID, func(ctx context.Context) error {
		m, err := n.orderMail(order)
		if err != nil {
			return err
		}
		return n.sender.Send(ctx, m)
	})
}

func (n *Notifier) ContactReceived(ctx context.Context, contact models.Contact) {
	if n.sender == nil || n.shopEmail == "" {
		return
	}
	n.async(ctx, "contact_email", contact.Email, func(ctx context.Context) error {
		var buf bytes.Buffer
		if err := contactTemplate.Execute(&buf, contact); err != nil {
			return err
		}
		return n.sender.Send(ctx, Mail{
			To:      n.shopEmail,
			Subject: "Nouveau message de contact : " + contact.Subject,
			HTML:    buf.String(),
		})
	})
}

func (n *Notifier) Wait() {
	n.wg.Wait()
}

func (n *Notifier) async(ctx context.Context, key, value string, send func(context.Context) error) {
	n.wg.Add(1)
	go func() {
		defer n.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), mailTimeout)
		defer cancel()
		if err := send(ctx); err != nil {
			log.Error().Err(err).Str(key, value).Msg("❌ Envoi de l'e-mail échoué")
			return
		}
		log.Info().Str(key, value).Msg("📧 E-mail envoyé")
	}()
}

func (n *Notifier) orderMail(order models.Order) (Mail, error) {
	var buf bytes.Buffer
	payment := "cash on delivery"
	if order.PaymentMethod == models.PaymentCard {
		payment = "paid by card"
	}
	data := map[string]any{"Order": order, "Payment": payment, "Shop": n.shopName}
	if err := orderTemplate.Execute(&buf, data); err != nil {
		return Mail{}, err
	}

	m := Mail{
		To:      order.CustomerEmail,
		Subject: fmt.Sprintf("%s - order %s confirmed", n.shopName, order.OrderID),
		HTML:    buf.String(),
	}
	if n.invoices != nil {
		pdf, err := n.invoices.Render(order)
		if err != nil {
			log.Warn().Err(err).Str("order_id", order.OrderID).Msg("⚠️ Facture non jointe à l'e-mail")
		} else {
			m.Attachments = append(m.Attachments, Attachment{Name: invoice.Filename(order.OrderID), Data: pdf})
		}
	}
	return m, nil
}
